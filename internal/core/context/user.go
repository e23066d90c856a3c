// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"slices"
)

// Roles carried in access tokens.
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// UserContext contains authenticated user information.
// A user acts either as a customer (CustomerID set) or as an employee
// (EmployeeID set); admins are employees with the admin role.
type UserContext struct {
	UserID     string
	Email      string
	Roles      []string
	CustomerID string
	EmployeeID string
	SessionID  string
}

// IsStaff reports whether the user may act on behalf of the store.
func (u *UserContext) IsStaff() bool {
	return u.Holds(RoleStaff)
}

// Holds reports whether the user carries role. Admin implies staff.
func (u *UserContext) Holds(role string) bool {
	if slices.Contains(u.Roles, role) {
		return true
	}
	return role == RoleStaff && slices.Contains(u.Roles, RoleAdmin)
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

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

