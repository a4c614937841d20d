package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"intechlab/identity"
	"intechlab/models"
	"intechlab/repository"
)

// StaffService registra y elimina laboratoristas y doctores. Cada registro
// toca dos sistemas: la cuenta de acceso y el perfil.
type StaffService struct {
	accounts identity.Accounts
	staff    repository.Staff
	now      func() time.Time
}

func NewStaffService(accounts identity.Accounts, staff repository.Staff) *StaffService {
	return &StaffService{accounts: accounts, staff: staff, now: time.Now}
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede gestionar el personal.")
	}
	return nil
}

// RegisterTechnician crea la cuenta con rol admin o worker (worker por defecto).
func (s *StaffService) RegisterTechnician(ctx context.Context, actor models.Actor, in models.StaffInput) (string, error) {
	if in.Role == "" {
		in.Role = models.RoleWorker
	}
	if in.Role != models.RoleAdmin && in.Role != models.RoleWorker {
		return "", models.Invalid("role", "el rol debe ser admin o worker")
	}
	return s.register(ctx, actor, models.KindTechnician, in)
}

// RegisterDentist crea la cuenta con rol doctor.
func (s *StaffService) RegisterDentist(ctx context.Context, actor models.Actor, in models.StaffInput) (string, error) {
	in.Role = models.RoleDoctor
	return s.register(ctx, actor, models.KindDentist, in)
}

func (s *StaffService) register(ctx context.Context, actor models.Actor, kind models.StaffKind, in models.StaffInput) (string, error) {
	if err := requireAdmin(actor); err != nil {
		return "", err
	}
	in, err := models.ValidateStaff(in)
	if err != nil {
		return "", err
	}

	user, err := s.accounts.CreateUser(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		return "", err
	}

	member := models.StaffMember{
		ID:        user.UID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: s.now().UTC(),
		Role:      in.Role,
	}
	if err := s.accounts.SetRole(ctx, user.UID, in.Role); err != nil {
		s.compensate(ctx, user.UID, err)
		return "", fmt.Errorf("set role for %s: %w", in.Email, err)
	}
	if err := s.staff.Put(ctx, kind, member); err != nil {
		s.compensate(ctx, user.UID, err)
		return "", fmt.Errorf("save %s profile for %s: %w", kind, in.Email, err)
	}
	log.Printf("Registrado %s en %s con rol %s", in.Email, kind, in.Role)
	return user.UID, nil
}

// compensate borra la cuenta si el perfil no se pudo guardar. Si el borrado
// tambien falla la cuenta queda huerfana y solo queda el registro en el log.
func (s *StaffService) compensate(ctx context.Context, uid string, cause error) {
	if err := s.accounts.DeleteUser(context.WithoutCancel(ctx), uid); err != nil {
		log.Printf("Cuenta %s huerfana: fallo el registro (%v) y tambien la compensacion: %v", uid, cause, err)
		return
	}
	log.Printf("Cuenta %s eliminada tras fallo de registro: %v", uid, cause)
}

func (s *StaffService) DeleteTechnician(ctx context.Context, actor models.Actor, uid string) error {
	return s.delete(ctx, actor, models.KindTechnician, uid)
}

func (s *StaffService) DeleteDentist(ctx context.Context, actor models.Actor, uid string) error {
	return s.delete(ctx, actor, models.KindDentist, uid)
}

// delete es idempotente: una cuenta o perfil ya ausente no es error.
func (s *StaffService) delete(ctx context.Context, actor models.Actor, kind models.StaffKind, uid string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if uid == "" {
		return models.Invalid("uid", "falta el uid")
	}
	if err := s.accounts.DeleteUser(ctx, uid); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return fmt.Errorf("delete account %s: %w", uid, err)
	}
	if err := s.staff.Delete(ctx, kind, uid); err != nil {
		return fmt.Errorf("delete %s profile %s: %w", kind, uid, err)
	}
	log.Printf("Eliminado %s de %s", uid, kind)
	return nil
}

func (s *StaffService) ListTechnicians(ctx context.Context, actor models.Actor) ([]models.Technician, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.staff.List(ctx, models.KindTechnician)
}

func (s *StaffService) ListDentists(ctx context.Context, actor models.Actor) ([]models.Dentist, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.staff.List(ctx, models.KindDentist)
}
