package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"intechlab/models"
	"intechlab/storage"
)

// MaxImageSide es el lado maximo de una imagen de evidencia antes de reducirla.
const MaxImageSide = 4096

// MaxFileBytes es el tamaño maximo por archivo de evidencia.
const MaxFileBytes int64 = 25 << 20

// File es un archivo de evidencia recibido del cliente.
type File struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FilesFromMultipart adapta los archivos de un formulario multipart.
func FilesFromMultipart(headers []*multipart.FileHeader) []File {
	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

// BytesFile arma un File en memoria.
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

type evidenceUploader struct {
	store     storage.ObjectStore
	publicURL string
	maxBytes  int64
	now       func() time.Time
}

// upload sube todos los archivos en paralelo. Si uno falla, borra los ya
// guardados y devuelve el primer error.
func (u *evidenceUploader) upload(ctx context.Context, caseID, folder, uploader string, files []File) ([]models.Attachment, error) {
	base := u.now().UTC()
	attachments := make([]models.Attachment, len(files))

	var (
		mu     sync.Mutex
		stored []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		// Un milisegundo por archivo para que dos nombres iguales no choquen.
		at := base.Add(time.Duration(i) * time.Millisecond)
		key := storage.EvidenceKey(caseID, folder, at, f.Name)
		g.Go(func() error {
			body, contentType, err := prepare(f, u.maxBytes)
			if err != nil {
				return fmt.Errorf("error al procesar %s: %w", f.Name, err)
			}
			if err := u.store.Put(gctx, key, bytes.NewReader(body), contentType); err != nil {
				return fmt.Errorf("error al subir %s: %w", f.Name, err)
			}
			mu.Lock()
			stored = append(stored, key)
			mu.Unlock()
			attachments[i] = models.Attachment{
				FileName:    f.Name,
				DownloadURL: storage.DownloadURL(u.publicURL, key),
				ObjectKey:   key,
				UploadedBy:  uploader,
				UploadedAt:  at,
				ContentType: contentType,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.discard(stored)
		return nil, err
	}
	return attachments, nil
}

// discard borra objetos que quedaron sin caso que los referencie.
func (u *evidenceUploader) discard(keys []string) {
	for _, key := range keys {
		if err := u.store.Delete(context.Background(), key); err != nil {
			log.Printf("No se pudo borrar el objeto huerfano %s: %v", key, err)
		}
	}
}

func (u *evidenceUploader) discardAttachments(atts []models.Attachment) {
	keys := make([]string, 0, len(atts))
	for _, a := range atts {
		keys = append(keys, a.ObjectKey)
	}
	u.discard(keys)
}

// prepare lee hasta limit bytes del archivo y reduce las imagenes jpeg/png
// que exceden MaxImageSide.
func prepare(f File, limit int64) ([]byte, string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", models.Invalid("files", fmt.Sprintf("%s supera el tamaño maximo de %d KB por archivo", f.Name, limit>>10))
	}

	contentType := f.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if contentType != "image/jpeg" && contentType != "image/png" {
		return data, contentType, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= MaxImageSide && cfg.Height <= MaxImageSide) {
		return data, contentType, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", err
	}
	resized := imaging.Fit(img, MaxImageSide, MaxImageSide, imaging.Lanczos)

	out := imaging.JPEG
	if format == "png" {
		out = imaging.PNG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, out); err != nil {
		return nil, "", err
	}
	log.Printf("Imagen %s reducida de %dx%d", f.Name, cfg.Width, cfg.Height)
	return buf.Bytes(), contentType, nil
}
