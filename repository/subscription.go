package repository

import (
	"context"
	"errors"
	"sync"

	"intechlab/models"
)

// Subscription entrega fotos completas de la coleccion en cada cambio.
// El consumidor debe llamar Close cuando ya no necesite actualizaciones.
type Subscription struct {
	snapshots chan []models.Case
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once

	mu  sync.Mutex
	err error
}

type emitFunc func([]models.Case) bool

// startSubscription corre run en su propia gorutina hasta que ctx se cancele o run termine.
func startSubscription(parent context.Context, run func(ctx context.Context, emit emitFunc) error) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		snapshots: make(chan []models.Case, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.snapshots)
		err := run(ctx, func(cases []models.Case) bool { return s.emit(ctx, cases) })
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()
	return s
}

// emit deja solo la foto mas reciente si el consumidor va atrasado.
func (s *Subscription) emit(ctx context.Context, cases []models.Case) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case s.snapshots <- cases:
			return true
		default:
		}
		select {
		case <-s.snapshots:
		default:
		}
	}
}

// Snapshots se cierra cuando la suscripcion termina.
func (s *Subscription) Snapshots() <-chan []models.Case {
	return s.snapshots
}

// Err devuelve el error que termino la suscripcion, si hubo.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done se cierra cuando la gorutina de la suscripcion ya salio.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close cancela la suscripcion y espera a que libere sus recursos.
// Se puede llamar varias veces.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Derive aplica fn a cada foto de src. Cerrar la suscripcion derivada cierra src.
func Derive(ctx context.Context, src *Subscription, fn func([]models.Case) []models.Case) *Subscription {
	return startSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		defer src.Close()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cases, ok := <-src.Snapshots():
				if !ok {
					return src.Err()
				}
				if !emit(fn(cases)) {
					return ctx.Err()
				}
			}
		}
	})
}
