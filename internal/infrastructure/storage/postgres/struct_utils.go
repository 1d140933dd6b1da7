package postgres

import (
	"reflect"
	"sync"
)

// column is a db-tagged field reached through an index path, so fields of
// embedded structs (entity.BaseEntity, counterparty.Counterparty) resolve in
// one FieldByIndex call.
type column struct {
	name  string
	index []int
}

// columnsByType caches []column per struct type.
var columnsByType sync.Map

func columnsOf(t reflect.Type) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnsByType.Load(t); ok {
		return cached.([]column)
	}

	var cols []column
	if t.Kind() == reflect.Struct {
		cols = collectColumns(t, nil)
	}
	actual, _ := columnsByType.LoadOrStore(t, cols)
	return actual.([]column)
}

func collectColumns(t reflect.Type, prefix []int) []column {
	var cols []column
	for i := range t.NumField() {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			cols = append(cols, collectColumns(f.Type, path)...)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, column{name: tag, index: path})
		}
	}
	return cols
}

// ExtractDBColumns lists the "db" tag of every field of T in declaration
// order, embedded structs inlined.
//
//	columns := ExtractDBColumns[product.Product]()
//	// ["id", "tenant_id", "version", ..., "sku", "name", ...]
func ExtractDBColumns[T any]() []string {
	cols := columnsOf(reflect.TypeFor[T]())
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// StructToMap maps column name to field value for a struct or a pointer to
// one. Anything else returns nil.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	cols := columnsOf(rv.Type())
	res := make(map[string]any, len(cols))
	for _, c := range cols {
		res[c.name] = rv.FieldByIndex(c.index).Interface()
	}
	return res
}
