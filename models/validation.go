package models

import (
	"regexp"
	"strings"
	"time"
)

const (
	MinTextLen     = 3
	MinPasswordLen = 6
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// dateLayouts son los formatos ISO-8601 aceptados desde formularios y datos antiguos.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func IsValidEmail(value string) bool {
	return emailRegex.MatchString(strings.TrimSpace(value))
}

// ParseDate resuelve una fecha ISO-8601. La cadena vacia da el instante cero.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatDate es la forma de cable de una fecha; el cero es "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ValidateNewCase revisa la forma de la carga de creacion y resuelve las fechas.
// Los textos se guardan tal como llegan; el recorte solo aplica a las reglas de longitud.
func ValidateNewCase(in NewCaseInput) (NewCase, error) {
	out := NewCase{
		PatientName:    in.PatientName,
		Treatment:      in.Treatment,
		Dentist:        in.Dentist,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		Priority:       in.Priority,
		Notes:          in.Notes,
	}

	if textLen(in.PatientName) < MinTextLen {
		return NewCase{}, Invalid("patientName", "el nombre del paciente debe tener al menos 3 caracteres")
	}
	if textLen(in.Treatment) < MinTextLen {
		return NewCase{}, Invalid("treatment", "el tratamiento debe tener al menos 3 caracteres")
	}
	if textLen(in.Dentist) < MinTextLen {
		return NewCase{}, Invalid("dentist", "el doctor debe tener al menos 3 caracteres")
	}
	// El correo se valida sin recortar.
	if !emailRegex.MatchString(in.AssignedTo) {
		return NewCase{}, Invalid("assignedTo", "el laboratorista asignado debe ser un correo valido")
	}
	if out.Priority == "" {
		out.Priority = PriorityMedium
	}
	if !out.Priority.Valid() {
		return NewCase{}, Invalid("priority", "la prioridad debe ser alta, media o baja")
	}

	due := strings.TrimSpace(in.DueDate)
	if due == "" {
		return NewCase{}, Invalid("dueDate", "la fecha de entrega es obligatoria")
	}
	dueDate, ok := ParseDate(due)
	if !ok {
		return NewCase{}, Invalid("dueDate", "la fecha de entrega no es una fecha ISO-8601 valida")
	}
	out.DueDate = dueDate

	arrival, ok := ParseDate(in.ArrivalDate)
	if !ok {
		return NewCase{}, Invalid("arrivalDate", "la fecha de llegada no es una fecha ISO-8601 valida")
	}
	out.ArrivalDate = arrival

	return out, nil
}

func textLen(value string) int {
	return len([]rune(strings.TrimSpace(value)))
}

// PhoneCountry es una entrada de la tabla de paises para telefonos.
type PhoneCountry struct {
	Code   string
	Label  string
	Digits int
}

var PhoneCountries = []PhoneCountry{
	{Code: "+57", Label: "Colombia", Digits: 10},
	{Code: "+1", Label: "Estados Unidos", Digits: 10},
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// BuildPhoneNumber arma "<codigo> <digitos>" si los digitos cumplen la regla del pais.
func BuildPhoneNumber(code, digits string) (string, bool) {
	for _, c := range PhoneCountries {
		if c.Code != code {
			continue
		}
		sanitized := nonDigits.ReplaceAllString(digits, "")
		if sanitized == "" || len(sanitized) != c.Digits {
			return "", false
		}
		return c.Code + " " + sanitized, true
	}
	return "", false
}

// NormalizePhone valida un telefono "+57 3001234567". Vacio es valido.
func NormalizePhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", true
	}
	code, rest, found := strings.Cut(phone, " ")
	if !found {
		return "", false
	}
	return BuildPhoneNumber(code, rest)
}

// ValidateStaff revisa el registro de personal. El rol del doctor lo fija el llamador.
func ValidateStaff(in StaffInput) (StaffInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if len([]rune(in.Name)) < MinTextLen {
		return StaffInput{}, Invalid("name", "el nombre debe tener al menos 3 caracteres")
	}
	if !IsValidEmail(in.Email) {
		return StaffInput{}, Invalid("email", "ingresa un correo valido")
	}
	if len(in.Password) < MinPasswordLen {
		return StaffInput{}, Invalid("password", "la contraseña debe tener al menos 6 caracteres")
	}
	phone, ok := NormalizePhone(in.Phone)
	if !ok {
		return StaffInput{}, Invalid("phone", "ingresa un telefono valido con el numero de digitos del pais")
	}
	in.Phone = phone
	return in, nil
}
