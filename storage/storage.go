// Package storage guarda los archivos de evidencia de los casos.
package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// Info describe un objeto guardado.
type Info struct {
	ContentType string
	Size        int64
}

// ObjectStore es el almacenamiento de objetos detras de los adjuntos.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, key string) error
}

// Carpetas de evidencia dentro de jobs/<id>/.
const (
	WorkEvidence     = "work-evidence"
	DeliveryEvidence = "delivery-evidence"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SafeName reemplaza todo lo que no sea [a-zA-Z0-9._-] por "_".
func SafeName(name string) string {
	name = unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if name == "" || strings.Trim(name, ".") == "" {
		return "archivo"
	}
	return name
}

// EvidenceKey arma jobs/<id>/<carpeta>/<unixms>-<nombre seguro>.
func EvidenceKey(caseID, folder string, at time.Time, fileName string) string {
	return fmt.Sprintf("jobs/%s/%s/%d-%s", caseID, folder, at.UnixMilli(), SafeName(fileName))
}

// DownloadURL es la URL publica con la que el portal sirve un objeto.
func DownloadURL(publicURL, key string) string {
	return strings.TrimRight(publicURL, "/") + "/files/" + key
}
