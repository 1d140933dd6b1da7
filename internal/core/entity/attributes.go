package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes is the free-form attribute map carried by products, counterparties,
// transactions and lines. Implements sql.Scanner and driver.Valuer so it maps
// onto a JSONB column (Postgres) or a TEXT column (SQLite).
//
// Numbers decode as json.Number so decimal values keep their precision.
type Attributes map[string]any

// Scan implements sql.Scanner for reading from PostgreSQL JSONB.
// Uses custom decoder with UseNumber() to preserve numeric precision.
func (a *Attributes) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}

	var source []byte
	switch v := src.(type) {
	case []byte:
		source = v
	case string:
		source = []byte(v)
	default:
		return fmt.Errorf("unsupported type for Attributes: %T", src)
	}

	if len(source) == 0 {
		*a = nil
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(source))
	decoder.UseNumber()

	var result map[string]any
	if err := decoder.Decode(&result); err != nil {
		return fmt.Errorf("failed to decode Attributes: %w", err)
	}

	*a = result
	return nil
}

// Value implements driver.Valuer. A nil map is stored as an empty object
// so the column can stay NOT NULL.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Merge returns a copy of a with every key of patch applied on top.
// A nil value in patch removes the key.
func (a Attributes) Merge(patch Attributes) Attributes {
	result := a.Clone()
	if result == nil {
		result = make(Attributes, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(result, k)
			continue
		}
		result[k] = v
	}
	return result
}

// Clone creates a shallow copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	result := make(Attributes, len(a))
	for k, v := range a {
		result[k] = v
	}
	return result
}
