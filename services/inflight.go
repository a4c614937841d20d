package services

import (
	"fmt"
	"sync"

	"intechlab/models"
)

// inFlight permite una sola mutacion a la vez por caso en esta instancia.
type inFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{ids: map[string]struct{}{}}
}

// acquire devuelve ErrBusy si otra mutacion del mismo caso sigue en curso.
func (f *inFlight) acquire(id string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ids[id]; busy {
		return nil, fmt.Errorf("case %s: %w", id, models.ErrBusy)
	}
	f.ids[id] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.ids, id)
		f.mu.Unlock()
	}, nil
}
