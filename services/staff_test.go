package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intechlab/identity"
	"intechlab/models"
	"intechlab/repository"
)

type brokenStaff struct {
	*repository.MemoryStaff
}

func (brokenStaff) Put(context.Context, models.StaffKind, models.StaffMember) error {
	return errors.New("mongo down")
}

func techInput() models.StaffInput {
	return models.StaffInput{Name: "Ana Torres", Email: "Ana@Lab.com", Phone: "+57 3001234567", Password: "secreto1"}
}

func TestRegisterTechnician(t *testing.T) {
	accounts := identity.NewMemory()
	staff := repository.NewMemoryStaff()
	svc := NewStaffService(accounts, staff)
	ctx := context.Background()

	uid, err := svc.RegisterTechnician(ctx, admin, techInput())
	require.NoError(t, err)

	user, err := accounts.GetUserByEmail(ctx, "ana@lab.com")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.Equal(t, models.RoleWorker, user.Role)

	member, err := staff.Get(ctx, models.KindTechnician, uid)
	require.NoError(t, err)
	assert.Equal(t, "ana@lab.com", member.Email)
	assert.Equal(t, "+57 3001234567", member.Phone)

	_, err = svc.RegisterTechnician(ctx, admin, techInput())
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRegister_Rejections(t *testing.T) {
	svc := NewStaffService(identity.NewMemory(), repository.NewMemoryStaff())
	ctx := context.Background()

	_, err := svc.RegisterTechnician(ctx, tech, techInput())
	assert.ErrorIs(t, err, models.ErrAdminOnly)

	in := techInput()
	in.Role = models.RoleDoctor
	_, err = svc.RegisterTechnician(ctx, admin, in)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)

	in = techInput()
	in.Phone = "+57 123"
	_, err = svc.RegisterTechnician(ctx, admin, in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)
}

func TestRegisterDentist_SetsDoctorRole(t *testing.T) {
	accounts := identity.NewMemory()
	svc := NewStaffService(accounts, repository.NewMemoryStaff())
	ctx := context.Background()

	in := techInput()
	in.Role = models.RoleAdmin
	_, err := svc.RegisterDentist(ctx, admin, in)
	require.NoError(t, err)

	user, err := accounts.GetUserByEmail(ctx, "ana@lab.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, user.Role)

	list, err := svc.ListDentists(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.RoleDoctor, list[0].Role)
}

func TestRegister_ProfileFailureRemovesAccount(t *testing.T) {
	accounts := identity.NewMemory()
	svc := NewStaffService(accounts, brokenStaff{repository.NewMemoryStaff()})
	ctx := context.Background()

	_, err := svc.RegisterTechnician(ctx, admin, techInput())
	require.Error(t, err)

	_, err = accounts.GetUserByEmail(ctx, "ana@lab.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestDeleteTechnician_Idempotent(t *testing.T) {
	svc := NewStaffService(identity.NewMemory(), repository.NewMemoryStaff())
	ctx := context.Background()

	uid, err := svc.RegisterTechnician(ctx, admin, techInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTechnician(ctx, admin, uid))
	require.NoError(t, svc.DeleteTechnician(ctx, admin, uid))
	require.NoError(t, svc.DeleteTechnician(ctx, admin, "no-existe"))

	list, err := svc.ListTechnicians(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, svc.DeleteDentist(ctx, tech, uid), models.ErrAdminOnly)
}
