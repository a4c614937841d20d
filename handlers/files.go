package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"intechlab/httputil"
	"intechlab/models"
	"intechlab/services"
	"intechlab/storage"
)

// caseIDFromKey saca el id de jobs/<id>/<carpeta>/<archivo>.
func caseIDFromKey(key string) (string, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 4 || parts[0] != "jobs" || parts[1] == "" {
		return "", false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return "", false
		}
	}
	return parts[1], true
}

// FileHandler sirve un adjunto solo si el actor puede ver el caso al que pertenece.
func FileHandler(w http.ResponseWriter, r *http.Request, files storage.ObjectStore, svc *services.CaseService) {
	actor, ok := actorOrFail(w, r)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	caseID, ok := caseIDFromKey(key)
	if !ok {
		httputil.WriteError(w, r, fmt.Errorf("file %s: %w", key, models.ErrNotFound))
		return
	}
	if _, err := svc.Get(r.Context(), actor, caseID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	body, info, err := files.Open(r.Context(), key)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Error al enviar el archivo %s: %v", key, err)
	}
}
