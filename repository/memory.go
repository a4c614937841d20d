package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"intechlab/models"
	"intechlab/workflow"
)

// MemoryCases es el driver de desarrollo y el doble de pruebas.
type MemoryCases struct {
	mu       sync.RWMutex
	cases    map[string]models.Case
	watchers map[int]chan struct{}
	nextID   int
	now      func() time.Time
}

func NewMemoryCases(seed ...models.Case) *MemoryCases {
	m := &MemoryCases{
		cases:    map[string]models.Case{},
		watchers: map[int]chan struct{}{},
		now:      time.Now,
	}
	for _, c := range seed {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		m.cases[c.ID] = c
	}
	return m
}

func (m *MemoryCases) snapshot(filter Filter) []models.Case {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := lo.Filter(lo.Values(m.cases), func(c models.Case, _ int) bool { return filter.matches(c) })
	// Orden estable entre casos con la misma fecha.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	workflow.SortCases(out, workflow.SortByDueDate)
	return out
}

func (m *MemoryCases) List(_ context.Context, filter Filter) ([]models.Case, error) {
	return m.snapshot(filter), nil
}

func (m *MemoryCases) Get(_ context.Context, id string) (models.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return models.Case{}, fmt.Errorf("get case %s: %w", id, models.ErrNotFound)
	}
	return c, nil
}

func (m *MemoryCases) Create(_ context.Context, input models.NewCaseInput) (string, error) {
	nc, err := models.ValidateNewCase(input)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.cases[id] = models.Case{
		ID:             id,
		PatientName:    nc.PatientName,
		Treatment:      nc.Treatment,
		Dentist:        nc.Dentist,
		ArrivalDate:    nc.ArrivalDate,
		DueDate:        nc.DueDate,
		AssignedTo:     nc.AssignedTo,
		AssignedToName: nc.AssignedToName,
		Status:         models.StatusPending,
		Priority:       nc.Priority,
		Notes:          nc.Notes,
		CreatedAt:      m.now().UTC(),
	}
	m.mu.Unlock()
	m.notify()
	return id, nil
}

func (m *MemoryCases) UpdateStatus(_ context.Context, id string, status models.Status, extra models.CaseUpdate) error {
	err := m.mutate(id, func(c *models.Case) {
		c.Status = status
		if extra.CompletionEvidence != nil {
			c.CompletionEvidence = extra.CompletionEvidence
		}
		if extra.DeliveryEvidence != nil {
			c.DeliveryEvidence = extra.DeliveryEvidence
		}
	})
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	return nil
}

func (m *MemoryCases) UpdateAssignment(_ context.Context, id, assignedTo, assignedToName string) error {
	err := m.mutate(id, func(c *models.Case) {
		c.AssignedTo = assignedTo
		c.AssignedToName = assignedToName
	})
	if err != nil {
		return fmt.Errorf("update assignment %s: %w", id, err)
	}
	return nil
}

func (m *MemoryCases) mutate(id string, fn func(*models.Case)) error {
	m.mu.Lock()
	c, ok := m.cases[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrNotFound
	}
	fn(&c)
	m.cases[id] = c
	m.mu.Unlock()
	m.notify()
	return nil
}

// notify despierta a los suscriptores sin bloquear al escritor.
func (m *MemoryCases) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *MemoryCases) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	changed := make(chan struct{}, 1)
	m.mu.Lock()
	key := m.nextID
	m.nextID++
	m.watchers[key] = changed
	m.mu.Unlock()

	return startSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		defer func() {
			m.mu.Lock()
			delete(m.watchers, key)
			m.mu.Unlock()
		}()
		if !emit(m.snapshot(filter)) {
			return ctx.Err()
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
			if !emit(m.snapshot(filter)) {
				return ctx.Err()
			}
		}
	}), nil
}

// MemoryStaff guarda perfiles en memoria.
type MemoryStaff struct {
	mu      sync.RWMutex
	members map[models.StaffKind]map[string]models.StaffMember
}

func NewMemoryStaff() *MemoryStaff {
	return &MemoryStaff{members: map[models.StaffKind]map[string]models.StaffMember{
		models.KindTechnician: {},
		models.KindDentist:    {},
	}}
}

func (s *MemoryStaff) Put(_ context.Context, kind models.StaffKind, member models.StaffMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.members[kind] == nil {
		s.members[kind] = map[string]models.StaffMember{}
	}
	s.members[kind][member.ID] = member
	return nil
}

func (s *MemoryStaff) Get(_ context.Context, kind models.StaffKind, id string) (models.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[kind][id]
	if !ok {
		return models.StaffMember{}, fmt.Errorf("get %s %s: %w", kind, id, models.ErrNotFound)
	}
	return member, nil
}

func (s *MemoryStaff) Delete(_ context.Context, kind models.StaffKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members[kind], id)
	return nil
}

func (s *MemoryStaff) List(_ context.Context, kind models.StaffKind) ([]models.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Values(s.members[kind])
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
