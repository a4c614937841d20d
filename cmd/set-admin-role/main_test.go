package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intechlab/identity"
	"intechlab/models"
)

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	accounts := identity.NewMemory()
	created, err := accounts.CreateUser(ctx, "laura@intechlab.com", "secreta1", "Laura")
	require.NoError(t, err)

	user, err := setRole(ctx, accounts, " Laura@intechlab.com ", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, created.UID, user.UID)

	stored, err := accounts.GetUserByEmail(ctx, "laura@intechlab.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	_, err = setRole(ctx, accounts, "nadie@intechlab.com", models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = setRole(ctx, accounts, "laura@intechlab.com", "superusuario")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = setRole(ctx, accounts, "no-es-correo", models.RoleAdmin)
	assert.ErrorAs(t, err, &verr)
}
