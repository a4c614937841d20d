// Package audit guarda la bitacora de decisiones del flujo de casos.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Resultados posibles de una decision.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// Entry es una fila de la tabla case_audit.
type Entry struct {
	ID         int64          `gorm:"primaryKey;autoIncrement"`
	CaseID     string         `gorm:"type:varchar(64);index;not null"`
	Action     string         `gorm:"type:varchar(40);not null"`
	Actor      string         `gorm:"type:varchar(200);not null"`
	ActorRole  string         `gorm:"type:varchar(20)"`
	FromStatus string         `gorm:"type:varchar(20)"`
	ToStatus   string         `gorm:"type:varchar(20)"`
	Outcome    string         `gorm:"type:varchar(20);not null"`
	Reason     string         `gorm:"type:text"`
	Details    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (Entry) TableName() string { return "case_audit" }

// WithDetails serializa detalles adicionales (archivos, nota, destinatario).
func (e Entry) WithDetails(details map[string]interface{}) Entry {
	if len(details) == 0 {
		return e
	}
	raw, err := json.Marshal(details)
	if err != nil {
		log.Printf("No se pudieron serializar los detalles de auditoria: %v", err)
		return e
	}
	e.Details = datatypes.JSON(raw)
	return e
}

// Recorder guarda entradas de auditoria.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Open conecta con Postgres usando gorm y migra la tabla.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	return db, nil
}

// Gorm es el Recorder de produccion.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Migrate() error {
	return g.db.AutoMigrate(&Entry{})
}

func (g *Gorm) Record(ctx context.Context, e Entry) error {
	if err := g.db.WithContext(ctx).Create(&e).Error; err != nil {
		return fmt.Errorf("error al guardar auditoria del caso %s: %w", e.CaseID, err)
	}
	return nil
}

// Trail devuelve las entradas de un caso, la mas reciente al final.
func (g *Gorm) Trail(ctx context.Context, caseID string) ([]Entry, error) {
	var entries []Entry
	err := g.db.WithContext(ctx).Where("case_id = ?", caseID).Order("id asc").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("error al leer auditoria del caso %s: %w", caseID, err)
	}
	return entries, nil
}

// Memory guarda las entradas en memoria; lo usan el driver de desarrollo y las pruebas.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Trail(_ context.Context, caseID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}
