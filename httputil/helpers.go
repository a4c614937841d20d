// Package httputil escribe respuestas JSON y traduce errores a codigos HTTP.
package httputil

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"intechlab/identity"
	"intechlab/models"
)

// Mensajes para el usuario.
const (
	MsgStoreUnavailable = "Configura la base de datos para habilitar esta función."
	MsgConflict         = "Ya existe una cuenta con ese correo."
	MsgNotFound         = "No encontrado"
	MsgBusy             = "Otra actualización de este caso está en curso. Intenta de nuevo."
	MsgUnauthorized     = "Inicia sesión para continuar."
	MsgInternal         = "Error interno del servidor"
)

func JSONResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error al codificar la respuesta JSON: %v", err)
	}
}

// JSONError responde {"message": msg}.
func JSONError(w http.ResponseWriter, msg string, status int) {
	JSONResponse(w, map[string]string{"message": msg}, status)
}

// StatusFor traduce un error del portal a su codigo HTTP y mensaje.
func StatusFor(err error) (int, string) {
	var (
		verr *models.ValidationError
		ferr *models.ForbiddenError
	)
	switch {
	case errors.Is(err, identity.ErrTokenExpired):
		return http.StatusUnauthorized, identity.ErrTokenExpired.Error()
	case errors.Is(err, identity.ErrTokenInvalid):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Correo o contraseña incorrectos"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, models.ErrConflict):
		return http.StatusBadRequest, MsgConflict
	case errors.As(err, &ferr):
		if ferr.Message != "" {
			return http.StatusForbidden, ferr.Message
		}
		return http.StatusForbidden, "No tienes permisos para esta acción."
	case errors.Is(err, models.ErrEvidenceRequired):
		return http.StatusUnprocessableEntity, evidenceMessage(err)
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, models.ErrBusy):
		return http.StatusConflict, MsgBusy
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, MsgStoreUnavailable
	}
	return http.StatusInternalServerError, MsgInternal
}

func evidenceMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, models.ErrEvidenceRequired.Error()+": "); i >= 0 {
		return msg[i+len(models.ErrEvidenceRequired.Error())+2:]
	}
	return "Falta evidencia."
}

// WriteError registra el error y responde con el codigo que le corresponde.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error en %s %s: %v", r.Method, r.URL.Path, err)
	} else {
		log.Printf("Solicitud rechazada %s %s (%d): %v", r.Method, r.URL.Path, status, err)
	}
	JSONError(w, msg, status)
}
