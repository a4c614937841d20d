// Package handlers expone el portal por HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"intechlab/identity"
	"intechlab/middleware"
	"intechlab/services"
	"intechlab/storage"
)

// Deps son los servicios que usan los handlers.
type Deps struct {
	Cases    *services.CaseService
	Staff    *services.StaffService
	Accounts identity.Accounts
	Tokens   *identity.Tokens
	Files    storage.ObjectStore
	Now      func() time.Time
}

// Router arma todas las rutas del portal.
func Router(d Deps) *mux.Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	r := mux.NewRouter()

	r.HandleFunc("/health", HealthHandler).Methods("GET")
	r.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		LoginHandler(w, r, d.Accounts, d.Tokens)
	}).Methods("POST")

	api := r.NewRoute().Subrouter()
	api.Use(middleware.Authenticate(d.Tokens))

	// Las rutas fijas van antes de /cases/{id}.
	api.HandleFunc("/cases", func(w http.ResponseWriter, r *http.Request) {
		ListCasesHandler(w, r, d.Cases)
	}).Methods("GET")
	api.HandleFunc("/cases", func(w http.ResponseWriter, r *http.Request) {
		CreateCaseHandler(w, r, d.Cases)
	}).Methods("POST")
	api.HandleFunc("/cases/board", func(w http.ResponseWriter, r *http.Request) {
		BoardHandler(w, r, d.Cases)
	}).Methods("GET")
	api.HandleFunc("/cases/stream", func(w http.ResponseWriter, r *http.Request) {
		StreamHandler(w, r, d.Cases)
	}).Methods("GET")
	api.HandleFunc("/cases/{id}", func(w http.ResponseWriter, r *http.Request) {
		GetCaseHandler(w, r, d.Cases)
	}).Methods("GET")
	api.HandleFunc("/cases/{id}/actions", func(w http.ResponseWriter, r *http.Request) {
		ActionsHandler(w, r, d.Cases)
	}).Methods("GET")
	api.HandleFunc("/cases/{id}/advance", func(w http.ResponseWriter, r *http.Request) {
		AdvanceHandler(w, r, d.Cases)
	}).Methods("POST")
	api.HandleFunc("/cases/{id}/completion", func(w http.ResponseWriter, r *http.Request) {
		CompletionHandler(w, r, d.Cases)
	}).Methods("POST")
	api.HandleFunc("/cases/{id}/delivery", func(w http.ResponseWriter, r *http.Request) {
		DeliveryHandler(w, r, d.Cases)
	}).Methods("POST")
	api.HandleFunc("/cases/{id}/return", func(w http.ResponseWriter, r *http.Request) {
		ReturnHandler(w, r, d.Cases)
	}).Methods("POST")
	api.HandleFunc("/cases/{id}/assignment", func(w http.ResponseWriter, r *http.Request) {
		AssignmentHandler(w, r, d.Cases)
	}).Methods("PUT")

	api.HandleFunc("/files/{key:.+}", func(w http.ResponseWriter, r *http.Request) {
		FileHandler(w, r, d.Files, d.Cases)
	}).Methods("GET")

	api.HandleFunc("/export/cases", func(w http.ResponseWriter, r *http.Request) {
		ExportCasesHandler(w, r, d.Cases, d.Now)
	}).Methods("GET")

	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/technicians", func(w http.ResponseWriter, r *http.Request) {
		ListStaffHandler(w, r, d.Staff.ListTechnicians)
	}).Methods("GET")
	admin.HandleFunc("/technicians", func(w http.ResponseWriter, r *http.Request) {
		RegisterStaffHandler(w, r, d.Staff.RegisterTechnician)
	}).Methods("POST")
	admin.HandleFunc("/technicians", func(w http.ResponseWriter, r *http.Request) {
		DeleteStaffHandler(w, r, d.Staff.DeleteTechnician)
	}).Methods("DELETE")
	admin.HandleFunc("/dentists", func(w http.ResponseWriter, r *http.Request) {
		ListStaffHandler(w, r, d.Staff.ListDentists)
	}).Methods("GET")
	admin.HandleFunc("/dentists", func(w http.ResponseWriter, r *http.Request) {
		RegisterStaffHandler(w, r, d.Staff.RegisterDentist)
	}).Methods("POST")
	admin.HandleFunc("/dentists", func(w http.ResponseWriter, r *http.Request) {
		DeleteStaffHandler(w, r, d.Staff.DeleteDentist)
	}).Methods("DELETE")
	admin.HandleFunc("/export/technicians", func(w http.ResponseWriter, r *http.Request) {
		ExportStaffHandler(w, r, d.Staff, d.Now, false)
	}).Methods("GET")
	admin.HandleFunc("/export/dentists", func(w http.ResponseWriter, r *http.Request) {
		ExportStaffHandler(w, r, d.Staff, d.Now, true)
	}).Methods("GET")

	return r
}
