package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_Holds(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		role  string
		want  bool
	}{
		{"customer is customer", []string{RoleCustomer}, RoleCustomer, true},
		{"customer is not staff", []string{RoleCustomer}, RoleStaff, false},
		{"admin implies staff", []string{RoleAdmin}, RoleStaff, true},
		{"staff is not admin", []string{RoleStaff}, RoleAdmin, false},
		{"admin is not customer", []string{RoleAdmin}, RoleCustomer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &UserContext{Roles: tt.roles}
			assert.Equal(t, tt.want, u.Holds(tt.role))
		})
	}
}

func TestGetUserID(t *testing.T) {
	assert.Empty(t, GetUserID(context.Background()))

	ctx := WithUser(context.Background(), &UserContext{UserID: "u1"})
	assert.Equal(t, "u1", GetUserID(ctx))
}
