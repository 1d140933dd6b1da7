// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"ledgercore/internal/core/id"
)

// UserContext contains the authenticated caller.
// Sub-users carry their main account's id as TenantID and point at it via ParentUserID.
type UserContext struct {
	UserID       id.ID
	TenantID     id.ID
	ParentUserID *id.ID
	Email        string
	Roles        []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or the nil UUID.
func GetUserID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return id.Nil()
}

// GetTenantID returns tenant ID from context or the nil UUID.
func GetTenantID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.TenantID
	}
	return id.Nil()
}

// IsSubUser reports whether the caller acts on behalf of a parent account.
func (u *UserContext) IsSubUser() bool {
	return u.ParentUserID != nil && !id.IsNil(*u.ParentUserID)
}
