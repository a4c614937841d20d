package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"intechlab/httputil"
	"intechlab/models"
)

type (
	listStaffFunc     func(ctx context.Context, actor models.Actor) ([]models.StaffMember, error)
	registerStaffFunc func(ctx context.Context, actor models.Actor, in models.StaffInput) (string, error)
	deleteStaffFunc   func(ctx context.Context, actor models.Actor, uid string) error
)

func ListStaffHandler(w http.ResponseWriter, r *http.Request, list listStaffFunc) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	members, err := list(r.Context(), actor)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if members == nil {
		members = []models.StaffMember{}
	}
	httputil.JSONResponse(w, members, http.StatusOK)
}

// RegisterStaffHandler crea la cuenta y el perfil; responde 201 {"uid"}.
func RegisterStaffHandler(w http.ResponseWriter, r *http.Request, register registerStaffFunc) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var in models.StaffInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.JSONError(w, "Error al decodificar los datos", http.StatusBadRequest)
		return
	}
	uid, err := register(r.Context(), actor, in)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, map[string]string{"uid": uid}, http.StatusCreated)
}

// DeleteStaffHandler recibe {"uid"} en el cuerpo.
func DeleteStaffHandler(w http.ResponseWriter, r *http.Request, remove deleteStaffFunc) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body struct {
		UID string `json:"uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.JSONError(w, "Error al decodificar los datos", http.StatusBadRequest)
		return
	}
	if err := remove(r.Context(), actor, body.UID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, map[string]string{"message": "Eliminado"}, http.StatusOK)
}
