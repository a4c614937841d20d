package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"intechlab/models"
)

type memoryAccount struct {
	user User
	hash []byte
}

// Memory es el proveedor de identidad del driver de desarrollo.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]memoryAccount
}

func NewMemory() *Memory {
	return &Memory{accounts: map[string]memoryAccount{}}
}

func (m *Memory) CreateUser(_ context.Context, email, password, displayName string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.user.Email == email {
			return User{}, ErrEmailExists
		}
	}
	u := User{UID: uuid.NewString(), Email: email, DisplayName: displayName, CreatedAt: time.Now().UTC()}
	m.accounts[u.UID] = memoryAccount{user: u, hash: hash}
	return u, nil
}

func (m *Memory) DeleteUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[uid]; !ok {
		return ErrUserNotFound
	}
	delete(m.accounts, uid)
	return nil
}

func (m *Memory) SetRole(_ context.Context, uid string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[uid]
	if !ok {
		return ErrUserNotFound
	}
	a.user.Role = role
	m.accounts[uid] = a
	return nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (User, error) {
	a, ok := m.find(email)
	if !ok {
		return User{}, ErrUserNotFound
	}
	return a.user, nil
}

func (m *Memory) Authenticate(_ context.Context, email, password string) (User, error) {
	a, ok := m.find(email)
	if !ok || bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return a.user, nil
}

func (m *Memory) find(email string) (memoryAccount, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.user.Email == email {
			return a, true
		}
	}
	return memoryAccount{}, false
}
