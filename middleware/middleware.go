package middleware

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"

	"intechlab/httputil"
	"intechlab/models"
)

type contextKey struct{}

// TokenVerifier valida un token y devuelve el actor que lo porta.
type TokenVerifier interface {
	Verify(raw string) (models.Actor, error)
}

// LoggingMiddleware registra cada solicitud en formato de log combinado.
func LoggingMiddleware(out io.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(out, next)
	}
}

// CORSMiddleware permite los metodos y encabezados que usa el portal.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
}

// WithActor guarda el actor autenticado en el contexto.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// ActorFrom devuelve el actor autenticado, si hay.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(contextKey{}).(models.Actor)
	return actor, ok
}

// bearerToken lee "Authorization: Bearer <token>". EventSource y las etiquetas
// <img> no pueden fijar encabezados, por eso tambien se acepta ?access_token=.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

// Authenticate rechaza con 401 las solicitudes sin token valido.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httputil.JSONError(w, httputil.MsgUnauthorized, http.StatusUnauthorized)
				return
			}
			actor, err := tokens.Verify(raw)
			if err != nil {
				httputil.WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin responde 403 si el actor no es administrador.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			httputil.JSONError(w, httputil.MsgUnauthorized, http.StatusUnauthorized)
			return
		}
		if !actor.IsAdmin() {
			httputil.WriteError(w, r, models.Forbidden(models.ReasonAdminOnly, "Solo un administrador puede realizar esta acción."))
			return
		}
		next.ServeHTTP(w, r)
	})
}
