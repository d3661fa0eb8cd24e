package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("Admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestUser_JSONHidesPasswordHash(t *testing.T) {
	out, err := json.Marshal(User{ID: 1, Email: "a@x.com", PasswordHash: "$2a$10$secret", Role: RoleUser})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "password")
}

func TestProduct_SetPrice(t *testing.T) {
	p := Product{PriceCents: 89999}
	require.NoError(t, p.AfterFind(nil))
	assert.Equal(t, "899.99", p.Price.StringFixed(2))

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"price":"899.99"`)
	assert.Contains(t, string(out), `"price_cents":89999`)
}
