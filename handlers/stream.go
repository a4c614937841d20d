package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"intechlab/httputil"
	"intechlab/models"
	"intechlab/services"
)

// pingInterval mantiene viva la conexion a traves de proxies.
var pingInterval = 25 * time.Second

// StreamHandler envia por SSE una foto completa de los casos visibles en cada cambio.
func StreamHandler(w http.ResponseWriter, r *http.Request, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.JSONError(w, "Streaming no soportado", http.StatusInternalServerError)
		return
	}
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	sub, err := svc.Subscribe(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case cases, open := <-sub.Snapshots():
			if !open {
				if err := sub.Err(); err != nil {
					_, msg := httputil.StatusFor(err)
					data, _ := json.Marshal(map[string]string{"message": msg})
					fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
					flusher.Flush()
				}
				return
			}
			if cases == nil {
				cases = []models.Case{}
			}
			data, err := json.Marshal(cases)
			if err != nil {
				log.Printf("Error al codificar la foto de casos: %v", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
