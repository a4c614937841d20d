package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intechlab/models"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "foto_1_.jpg", SafeName("foto 1!.jpg"))
	assert.Equal(t, "radiograf_a.png", SafeName("radiografía.png"))
	assert.Equal(t, "archivo", SafeName("  "))
	assert.Equal(t, "archivo", SafeName(".."))
	assert.Equal(t, "a-b_c.pdf", SafeName("a-b_c.pdf"))
}

func TestEvidenceKey(t *testing.T) {
	at := time.UnixMilli(1760000000123)
	assert.Equal(t, "jobs/abc/work-evidence/1760000000123-mi_foto.jpg", EvidenceKey("abc", WorkEvidence, at, "mi foto.jpg"))
	assert.Equal(t, "jobs/abc/delivery-evidence/1760000000123-acta.pdf", EvidenceKey("abc", DeliveryEvidence, at, "acta.pdf"))
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/files/jobs/a/b", DownloadURL("http://localhost:8080/", "jobs/a/b"))
}

func TestMemory_PutOpenDelete(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "jobs/1/x.txt", strings.NewReader("hola"), "text/plain"))
	rc, info, err := store.Open(ctx, "jobs/1/x.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))
	assert.Equal(t, Info{ContentType: "text/plain", Size: 4}, info)

	require.NoError(t, store.Delete(ctx, "jobs/1/x.txt"))
	require.NoError(t, store.Delete(ctx, "jobs/1/x.txt"))
	_, _, err = store.Open(ctx, "jobs/1/x.txt")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, store.Keys())
}

func TestGridFS_NilBucketIsUnavailable(t *testing.T) {
	g := NewGridFS(nil)
	err := g.Put(context.Background(), "k", strings.NewReader(""), "")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
