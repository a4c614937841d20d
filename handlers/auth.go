package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"intechlab/httputil"
	"intechlab/identity"
	"intechlab/middleware"
	"intechlab/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  models.Actor `json:"user"`
}

// LoginHandler valida correo y contraseña y devuelve un token con el rol.
func LoginHandler(w http.ResponseWriter, r *http.Request, accounts identity.Accounts, tokens *identity.Tokens) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		log.Printf("Error al decodificar los datos: %v", err)
		httputil.JSONError(w, "Error al decodificar los datos", http.StatusBadRequest)
		return
	}
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		httputil.JSONError(w, "Ingresa correo y contraseña", http.StatusBadRequest)
		return
	}

	user, err := accounts.Authenticate(r.Context(), c.Email, c.Password)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	token, err := tokens.Issue(user)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	role := user.Role
	if role == "" {
		role = models.RoleWorker
	}
	log.Printf("Inicio de sesion de %s (%s)", user.Email, role)
	httputil.JSONResponse(w, loginResponse{
		Token: token,
		User:  models.Actor{UID: user.UID, Email: user.Email, Name: user.DisplayName, Role: role},
	}, http.StatusOK)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSONResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// actorOrFail devuelve el actor autenticado o responde 401.
func actorOrFail(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		httputil.JSONError(w, httputil.MsgUnauthorized, http.StatusUnauthorized)
	}
	return actor, ok
}
