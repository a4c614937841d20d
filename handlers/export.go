package handlers

import (
	"log"
	"net/http"
	"time"

	"intechlab/export"
	"intechlab/httputil"
	"intechlab/repository"
	"intechlab/services"
	"intechlab/workflow"
)

func writeReport(w http.ResponseWriter, r *http.Request, report *export.Report) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := report.WriteTo(w); err != nil {
		log.Printf("Error al escribir el reporte %s: %v", report.FileName, err)
	}
}

// ExportCasesHandler descarga los casos visibles para el actor.
func ExportCasesHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService, now func() time.Time) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	cases, err := svc.List(r.Context(), actor, repository.Filter{})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	report, err := export.Cases(cases, workflow.Summary(cases), now())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	writeReport(w, r, report)
}

// ExportStaffHandler descarga el directorio de doctores o de laboratoristas.
func ExportStaffHandler(w http.ResponseWriter, r *http.Request, svc *services.StaffService, now func() time.Time, dentists bool) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	var report *export.Report
	if dentists {
		members, err := svc.ListDentists(r.Context(), actor)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		report, err = export.Dentists(members, now())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	} else {
		members, err := svc.ListTechnicians(r.Context(), actor)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		report, err = export.Technicians(members, now())
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	}
	writeReport(w, r, report)
}
