package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want error
	}{
		{name: "valid", req: RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "secret1"}},
		{name: "missing name", req: RegisterRequest{Email: "ann@x.com", Password: "secret1"}, want: ErrNameRequired},
		{name: "blank name", req: RegisterRequest{Name: "  ", Email: "ann@x.com", Password: "secret1"}, want: ErrNameRequired},
		{name: "missing email", req: RegisterRequest{Name: "Ann", Password: "secret1"}, want: ErrEmailRequired},
		{name: "invalid email", req: RegisterRequest{Name: "Ann", Email: "ann-at-x", Password: "secret1"}, want: ErrEmailInvalid},
		{name: "missing password", req: RegisterRequest{Name: "Ann", Email: "ann@x.com"}, want: ErrPasswordRequired},
		{name: "short password", req: RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "12345"}, want: ErrPasswordTooShort},
		{name: "six characters", req: RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "123456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Validate())
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, LoginRequest{Email: "ann@x.com", Password: "wrong"}.Validate())
	assert.Equal(t, ErrEmailRequired, LoginRequest{Password: "secret1"}.Validate())
	assert.Equal(t, ErrEmailInvalid, LoginRequest{Email: "ann@", Password: "secret1"}.Validate())
	assert.Equal(t, ErrPasswordRequired, LoginRequest{Email: "ann@x.com"}.Validate())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ann@x.com", NormalizeEmail("  Ann@X.com "))
}

func TestNewUserResponseOmitsHash(t *testing.T) {
	u := &User{ID: "1", Name: "Ann", Email: "ann@x.com", PasswordHash: "$argon2id$...", Roles: []string{RoleUser}}

	resp := NewUserResponse(u)

	assert.Equal(t, "1", resp.ID)
	assert.Equal(t, []string{RoleUser}, resp.Roles)
	assert.False(t, resp.EmailConfirmed)

	resp.Roles[0] = "ADMIN_ROLE"
	assert.Equal(t, []string{RoleUser}, u.Roles, "mutating the response must not change the user's roles")
}
