// Package identity maneja las cuentas de acceso y los tokens con claim de rol.
package identity

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"intechlab/models"
)

var (
	ErrEmailExists        = fmt.Errorf("el correo ya esta registrado: %w", models.ErrConflict)
	ErrUserNotFound       = fmt.Errorf("usuario no encontrado: %w", models.ErrNotFound)
	ErrInvalidCredentials = errors.New("credenciales invalidas")
)

// User es una cuenta del proveedor de identidad.
type User struct {
	UID         string
	Email       string
	DisplayName string
	Role        models.Role
	CreatedAt   time.Time
}

// Accounts es lo que el resto del portal necesita del proveedor de identidad.
type Accounts interface {
	CreateUser(ctx context.Context, email, password, displayName string) (User, error)
	DeleteUser(ctx context.Context, uid string) error
	SetRole(ctx context.Context, uid string, role models.Role) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
}

// Store guarda las cuentas en la tabla users de Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const createUsersTable = `CREATE TABLE IF NOT EXISTS users (
	uid           TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// dbErr envuelve una falla de Postgres; las de conexion se reportan como
// models.ErrStoreUnavailable.
func dbErr(msg string, err error) error {
	if unreachable(err) {
		return fmt.Errorf("%s: %w: %v", msg, models.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %v", msg, err)
}

func unreachable(err error) bool {
	var (
		netErr net.Error
		pqErr  *pq.Error
	)
	switch {
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone),
		errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &pqErr):
		// Clase 08: conexion. 57P: el servidor se esta deteniendo.
		return pqErr.Code.Class() == "08" || strings.HasPrefix(string(pqErr.Code), "57P")
	case errors.As(err, &netErr):
		return true
	}
	return false
}

// CreateTable crea la tabla de cuentas si no existe.
func (s *Store) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createUsersTable); err != nil {
		return dbErr("error al crear la tabla users", err)
	}
	return nil
}

// HashPassword genera el hash bcrypt de una contraseña.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (s *Store) CreateUser(ctx context.Context, email, password, displayName string) (User, error) {
	if s.db == nil {
		return User{}, fmt.Errorf("create user: %w", models.ErrStoreUnavailable)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("error al generar hash: %v", err)
	}
	u := User{
		UID:         uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}

	query := `INSERT INTO users (uid, email, display_name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	log.Printf("Ejecutando consulta: %s", query)
	_, err = s.db.ExecContext(ctx, query, u.UID, u.Email, u.DisplayName, hash, u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return User{}, ErrEmailExists
		}
		return User{}, dbErr("error al registrar usuario", err)
	}
	return u, nil
}

// DeleteUser devuelve ErrUserNotFound si la cuenta ya no existe.
func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	if s.db == nil {
		return fmt.Errorf("delete user: %w", models.ErrStoreUnavailable)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return dbErr("error al eliminar usuario "+uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) SetRole(ctx context.Context, uid string, role models.Role) error {
	if s.db == nil {
		return fmt.Errorf("set role: %w", models.ErrStoreUnavailable)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE uid = $2`, string(role), uid)
	if err != nil {
		return dbErr("error al asignar rol a "+uid, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, _, err := s.lookup(ctx, email)
	return u, err
}

// Authenticate verifica las credenciales con bcrypt.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.lookup(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Store) lookup(ctx context.Context, email string) (User, string, error) {
	if s.db == nil {
		return User{}, "", fmt.Errorf("lookup user: %w", models.ErrStoreUnavailable)
	}
	var (
		u    User
		role string
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, password_hash, role, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.UID, &u.Email, &u.DisplayName, &hash, &role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, "", ErrUserNotFound
	}
	if err != nil {
		return User{}, "", dbErr("error al buscar usuario", err)
	}
	u.Role = models.Role(role)
	return u, hash, nil
}
