package models

import "time"

// Role es el claim de rol que lleva el token del usuario.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
	RoleDoctor Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker || r == RoleDoctor
}

// StaffKind distingue las dos colecciones de personal.
type StaffKind string

const (
	KindTechnician StaffKind = "technicians"
	KindDentist    StaffKind = "dentist"
)

// StaffMember es el perfil de un laboratorista o doctor.
type StaffMember struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	Role      Role      `json:"role" bson:"role"`
}

// Technician y Dentist comparten forma; el rol del doctor es fijo.
type (
	Technician = StaffMember
	Dentist    = StaffMember
)

// Actor es el usuario autenticado que intenta una operacion.
type Actor struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }

// StaffInput es el cuerpo de registro de personal.
type StaffInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}
