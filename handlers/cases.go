package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"intechlab/httputil"
	"intechlab/models"
	"intechlab/repository"
	"intechlab/services"
	"intechlab/workflow"
)

// maxEvidenceMemory es lo que se guarda en memoria de un formulario de evidencia; el resto va a disco.
const maxEvidenceMemory = 32 << 20

// maxEvidenceBody limita el cuerpo completo de un envio de evidencia.
var maxEvidenceBody int64 = 100 << 20

var errEvidenceTooLarge = models.Invalid("files", "Los archivos superan el tamaño maximo permitido.")

// filterFromQuery lee ?assignedTo= y ?status=pendiente,listo.
func filterFromQuery(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	filter := repository.Filter{AssignedTo: strings.TrimSpace(q.Get("assignedTo"))}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := models.ParseStatus(strings.TrimSpace(part))
			if !ok {
				return filter, models.Invalid("status", "estado desconocido "+part)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return filter, nil
}

func ListCasesHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	cases, err := svc.List(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if cases == nil {
		cases = []models.Case{}
	}
	httputil.JSONResponse(w, cases, http.StatusOK)
}

type boardResponse struct {
	Columns []workflow.Column    `json:"columns"`
	Summary models.StatusSummary `json:"summary"`
}

// BoardHandler responde el tablero; ?sort=pendiente:priority,listo:dueDate fija el orden por columna.
func BoardHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	modes, err := workflow.ParseSortModes(r.URL.Query().Get("sort"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	columns, summary, err := svc.Board(r.Context(), actor, modes)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, boardResponse{Columns: columns, Summary: summary}, http.StatusOK)
}

func GetCaseHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	c, err := svc.Get(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}

// ActionsHandler dice que botones puede mostrar el cliente para este caso.
func ActionsHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	actions, err := svc.Actions(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, actions, http.StatusOK)
}

func CreateCaseHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var input models.NewCaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.JSONError(w, "Error al decodificar los datos", http.StatusBadRequest)
		return
	}
	id, err := svc.Create(r.Context(), actor, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, map[string]string{"id": id}, http.StatusCreated)
}

func AdvanceHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	c, err := svc.Advance(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}

// evidenceForm lee la nota y los archivos "files" de un formulario multipart.
// Un cuerpo que no es multipart se trata como evidencia sin archivos.
func evidenceForm(w http.ResponseWriter, r *http.Request) (string, []services.File, error) {
	if r.ContentLength > maxEvidenceBody {
		return "", nil, errEvidenceTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBody)
	err := r.ParseMultipartForm(maxEvidenceMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.FormValue("note"), nil, nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "", nil, errEvidenceTooLarge
	}
	if err != nil {
		return "", nil, models.Invalid("files", "no se pudo leer el formulario")
	}
	return r.FormValue("note"), services.FilesFromMultipart(r.MultipartForm.File["files"]), nil
}

func CompletionHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	note, files, err := evidenceForm(w, r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	c, err := svc.SubmitCompletion(r.Context(), actor, mux.Vars(r)["id"], note, files)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}

func DeliveryHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	note, files, err := evidenceForm(w, r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	c, err := svc.Deliver(r.Context(), actor, mux.Vars(r)["id"], note, files)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}

func ReturnHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	c, err := svc.ReturnToProcess(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}

type assignmentRequest struct {
	AssignedTo     string `json:"assignedTo"`
	AssignedToName string `json:"assignedToName"`
}

func AssignmentHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var body assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.JSONError(w, "Error al decodificar los datos", http.StatusBadRequest)
		return
	}
	c, err := svc.Reassign(r.Context(), actor, mux.Vars(r)["id"], body.AssignedTo, body.AssignedToName)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.JSONResponse(w, c, http.StatusOK)
}
