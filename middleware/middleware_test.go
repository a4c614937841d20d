package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"intechlab/identity"
	"intechlab/models"
)

type fakeVerifier map[string]models.Actor

func (f fakeVerifier) Verify(raw string) (models.Actor, error) {
	if raw == "expired" {
		return models.Actor{}, identity.ErrTokenExpired
	}
	actor, ok := f[raw]
	if !ok {
		return models.Actor{}, identity.ErrTokenInvalid
	}
	return actor, nil
}

var verifier = fakeVerifier{
	"admin": {Email: "admin@lab.com", Role: models.RoleAdmin},
	"tech":  {Email: "tech@lab.com", Role: models.RoleWorker},
}

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		w.Write([]byte(actor.Email))
	})
}

func serve(h http.Handler, target, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if auth != "" {
		r.Header.Set("Authorization", auth)
	}
	h.ServeHTTP(w, r)
	return w
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(verifier)(echoActor())

	w := serve(h, "/cases", "Bearer tech")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tech@lab.com", w.Body.String())

	w = serve(h, "/cases/stream?access_token=admin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@lab.com", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "/cases", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "/cases", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "/cases", "Bearer nope").Code)

	w = serve(h, "/cases", "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expiro")
}

func TestRequireAdmin(t *testing.T) {
	h := Authenticate(verifier)(RequireAdmin(echoActor()))

	assert.Equal(t, http.StatusOK, serve(h, "/technicians", "Bearer admin").Code)
	assert.Equal(t, http.StatusForbidden, serve(h, "/technicians", "Bearer tech").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(RequireAdmin(echoActor()), "/technicians", "").Code)
}
