package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"intechlab/models"
)

// GridFS guarda cada objeto como un archivo cuyo nombre es la llave.
type GridFS struct {
	bucket *gridfs.Bucket
}

func NewGridFS(bucket *gridfs.Bucket) *GridFS {
	return &GridFS{bucket: bucket}
}

func (g *GridFS) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if g.bucket == nil {
		return fmt.Errorf("put %s: %w", key, models.ErrStoreUnavailable)
	}
	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{
		"contentType": contentType,
	})
	fileID, err := g.bucket.UploadFromStream(key, body, uploadOpts)
	if err != nil {
		return fmt.Errorf("error al subir archivo a GridFS: %v", err)
	}
	log.Printf("Archivo %s guardado en GridFS con id %s", key, fileID.Hex())
	return nil
}

// Open busca el archivo por nombre y devuelve el flujo de descarga.
func (g *GridFS) Open(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	if g.bucket == nil {
		return nil, Info{}, fmt.Errorf("open %s: %w", key, models.ErrStoreUnavailable)
	}
	stream, err := g.bucket.OpenDownloadStreamByName(key)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, Info{}, fmt.Errorf("open %s: %w", key, models.ErrNotFound)
		}
		return nil, Info{}, fmt.Errorf("open %s: %v", key, err)
	}
	info := Info{ContentType: "application/octet-stream"}
	if file := stream.GetFile(); file != nil {
		info.Size = file.Length
		if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
			info.ContentType = ct
		}
	}
	return stream, info, nil
}

// Delete borra todas las revisiones con ese nombre. Una llave inexistente no es error.
func (g *GridFS) Delete(ctx context.Context, key string) error {
	if g.bucket == nil {
		return fmt.Errorf("delete %s: %w", key, models.ErrStoreUnavailable)
	}
	cursor, err := g.bucket.FindContext(ctx, bson.M{"filename": key})
	if err != nil {
		return fmt.Errorf("delete %s: %v", key, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("delete %s: %v", key, err)
		}
		if err := g.bucket.DeleteContext(ctx, file.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete %s: %v", key, err)
		}
	}
	return cursor.Err()
}
