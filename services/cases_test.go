package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intechlab/audit"
	"intechlab/events"
	"intechlab/models"
	"intechlab/repository"
	"intechlab/storage"
	"intechlab/workflow"
)

var (
	admin  = models.Actor{UID: "a1", Email: "admin@lab.com", Role: models.RoleAdmin}
	tech   = models.Actor{UID: "t1", Email: "tech@lab.com", Role: models.RoleWorker}
	other  = models.Actor{UID: "t2", Email: "otro@lab.com", Role: models.RoleWorker}
	doctor = models.Actor{UID: "d1", Email: "ruiz@clinica.com", Name: "Alejandra Ruiz", Role: models.RoleDoctor}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	delivered []string
}

func (n *recordingNotifier) CaseDelivered(_ context.Context, c models.Case) error {
	n.delivered = append(n.delivered, c.ID)
	return nil
}

// flakyStore falla al guardar archivos cuyo nombre contiene "falla".
type flakyStore struct {
	*storage.Memory
}

func (f flakyStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if strings.Contains(key, "falla") {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, body, contentType)
}

type fixture struct {
	svc      *CaseService
	repo     *repository.MemoryCases
	store    *storage.Memory
	audit    *audit.Memory
	events   *recordingPublisher
	notifier *recordingNotifier
}

func newFixture(t *testing.T, adminMayComplete bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repository.NewMemoryCases(),
		store:    storage.NewMemory(),
		audit:    &audit.Memory{},
		events:   &recordingPublisher{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewCaseService(CaseDeps{
		Cases:     f.repo,
		Store:     flakyStore{f.store},
		Guard:     workflow.New(adminMayComplete),
		PublicURL: "http://localhost:8080",
		Audit:     f.audit,
		Events:    f.events,
		Notifier:  f.notifier,
	})
	f.svc.now = func() time.Time { return time.UnixMilli(1760000000000) }
	return f
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	id, err := f.svc.Create(context.Background(), admin, models.NewCaseInput{
		PatientName: "María Gómez",
		Treatment:   "Corona zirconio",
		Dentist:     "Dra. Alejandra Ruiz — ruiz@clinica.com",
		DueDate:     "2026-10-20T15:00:00Z",
		AssignedTo:  "tech@lab.com",
		Priority:    models.PriorityHigh,
	})
	require.NoError(t, err)
	return id
}

func photo(name string) File {
	return BytesFile(name, "text/plain", []byte("contenido de "+name))
}

func TestScenarioA_AdminCreatesPendingCase(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t)

	c, err := f.svc.Get(context.Background(), admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, []string{events.CaseCreated}, f.events.types())
}

func TestCreate_NonAdminRejected(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Create(context.Background(), tech, models.NewCaseInput{})
	assert.ErrorIs(t, err, models.ErrAdminOnly)
	require.Len(t, f.audit.Entries(), 1)
	assert.Equal(t, audit.OutcomeDenied, f.audit.Entries()[0].Outcome)
}

func TestScenarioB_TechnicianCompletesWithEvidence(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)

	c, err := f.svc.Advance(ctx, tech, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)

	_, err = f.svc.SubmitCompletion(ctx, tech, id, "", []File{photo("a.jpg")})
	assert.ErrorIs(t, err, models.ErrEvidenceRequired)
	assert.Empty(t, f.store.Keys(), "nothing uploaded when the guard rejects")

	c, err = f.svc.SubmitCompletion(ctx, tech, id, "done", []File{photo("a.jpg")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, c.Status)
	require.NotNil(t, c.CompletionEvidence)
	assert.Equal(t, "done", c.CompletionEvidence.Note)
	require.Len(t, c.CompletionEvidence.Attachments, 1)

	att := c.CompletionEvidence.Attachments[0]
	assert.Equal(t, "jobs/"+id+"/work-evidence/1760000000000-a.jpg", att.ObjectKey)
	assert.Equal(t, "http://localhost:8080/files/"+att.ObjectKey, att.DownloadURL)
	assert.Equal(t, "tech@lab.com", att.UploadedBy)
	assert.Equal(t, []string{att.ObjectKey}, f.store.Keys())

	stored, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, stored.Status)
	assert.Equal(t, "done", stored.CompletionEvidence.Note)
}

func TestScenarioC_OnlyAdminDelivers(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)
	_, err := f.svc.Advance(ctx, tech, id)
	require.NoError(t, err)
	_, err = f.svc.SubmitCompletion(ctx, tech, id, "done", []File{photo("a.jpg")})
	require.NoError(t, err)

	_, err = f.svc.Deliver(ctx, tech, id, "", []File{photo("acta.pdf")})
	assert.ErrorIs(t, err, models.ErrAdminOnly)

	c, err := f.svc.Deliver(ctx, admin, id, "", []File{photo("acta.pdf")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, c.Status)
	require.NotNil(t, c.DeliveryEvidence)
	assert.Len(t, c.DeliveryEvidence.Attachments, 1)
	assert.NotNil(t, c.CompletionEvidence)
	assert.Equal(t, []string{id}, f.notifier.delivered)
	assert.Equal(t, []string{events.CaseCreated, events.CaseAdvanced, events.CaseCompleted, events.CaseDelivered}, f.events.types())
}

func TestScenarioD_ReassignDeliveredIsTerminal(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)
	require.NoError(t, f.repo.UpdateStatus(ctx, id, models.StatusDelivered, models.CaseUpdate{}))

	_, err := f.svc.Reassign(ctx, admin, id, "otro@lab.com", "Otro")
	assert.ErrorIs(t, err, models.ErrTerminalState)
	assert.ErrorIs(t, err, models.ErrWrongState)

	_, err = f.svc.Advance(ctx, admin, id)
	assert.ErrorIs(t, err, models.ErrTerminalState)
}

func TestPartialUploadFailureLeavesCaseUnchanged(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)
	_, err := f.svc.Advance(ctx, tech, id)
	require.NoError(t, err)

	files := []File{photo("uno.jpg"), photo("falla.jpg"), photo("tres.jpg")}
	_, err = f.svc.SubmitCompletion(ctx, tech, id, "done", files)
	require.Error(t, err)

	c, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Nil(t, c.CompletionEvidence)
	assert.Empty(t, f.store.Keys(), "stored objects are discarded")

	entries := f.audit.Entries()
	assert.Equal(t, audit.OutcomeFailed, entries[len(entries)-1].Outcome)
}

func TestAdvance_NonAssigneeRejected(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t)

	_, err := f.svc.Advance(context.Background(), doctor, id)
	assert.ErrorIs(t, err, models.ErrNotAssignee)

	entries := f.audit.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, audit.OutcomeDenied, last.Outcome)
	assert.Equal(t, models.ReasonNotAssignee, last.Reason)
}

func TestMutationsOnHiddenCaseAreNotFound(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)
	before := len(f.audit.Entries())

	_, err := f.svc.Advance(ctx, other, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NotErrorIs(t, err, models.ErrNotAssignee)

	_, err = f.svc.SubmitCompletion(ctx, other, id, "done", []File{photo("a.jpg")})
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.ReturnToProcess(ctx, other, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.svc.Reassign(ctx, other, id, "otro@lab.com", "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Empty(t, f.store.Keys())
	assert.Len(t, f.audit.Entries(), before, "hidden cases leave no audit trail")
	c, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, "tech@lab.com", c.AssignedTo)
}

func TestCompletionRejectsOversizedFile(t *testing.T) {
	f := newFixture(t, true)
	f.svc.files.maxBytes = 16
	ctx := context.Background()
	id := f.create(t)
	_, err := f.svc.Advance(ctx, tech, id)
	require.NoError(t, err)

	small := BytesFile("ok.txt", "text/plain", []byte("dieciseis bytes!"))
	big := BytesFile("grande.txt", "text/plain", []byte("diecisiete bytes!"))
	_, err = f.svc.SubmitCompletion(ctx, tech, id, "done", []File{small, big})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "files", verr.Field)
	assert.Contains(t, verr.Message, "grande.txt")

	c, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.Empty(t, f.store.Keys())

	c, err = f.svc.SubmitCompletion(ctx, tech, id, "done", []File{small})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, c.Status)
}

func TestReturnToProcess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)

	_, err := f.svc.ReturnToProcess(ctx, admin, id)
	assert.ErrorIs(t, err, models.ErrWrongState, "a pending case cannot be returned")

	_, err = f.svc.Advance(ctx, tech, id)
	require.NoError(t, err)
	_, err = f.svc.SubmitCompletion(ctx, tech, id, "done", []File{photo("a.jpg")})
	require.NoError(t, err)

	_, err = f.svc.ReturnToProcess(ctx, tech, id)
	assert.ErrorIs(t, err, models.ErrAdminOnly)

	c, err := f.svc.ReturnToProcess(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Status)
	assert.NotNil(t, c.CompletionEvidence, "previous evidence is kept")
}

func TestAdminCompletionFlag(t *testing.T) {
	for _, allowed := range []bool{true, false} {
		f := newFixture(t, allowed)
		ctx := context.Background()
		id := f.create(t)
		_, err := f.svc.Advance(ctx, tech, id)
		require.NoError(t, err)

		_, err = f.svc.SubmitCompletion(ctx, admin, id, "done", []File{photo("a.jpg")})
		if allowed {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, models.ErrNotAssignee)
		}
	}
}

func TestReassign(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.create(t)

	_, err := f.svc.Reassign(ctx, tech, id, "otro@lab.com", "")
	assert.ErrorIs(t, err, models.ErrAdminOnly)

	_, err = f.svc.Reassign(ctx, admin, id, "no-es-correo", "")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)

	c, err := f.svc.Reassign(ctx, admin, id, "otro@lab.com", "Otro Tech")
	require.NoError(t, err)
	assert.Equal(t, "otro@lab.com", c.AssignedTo)

	_, err = f.svc.Get(ctx, tech, id)
	assert.ErrorIs(t, err, models.ErrNotFound, "previous assignee loses visibility")
	_, err = f.svc.Get(ctx, other, id)
	assert.NoError(t, err)
}

func TestInFlightMutationIsBusy(t *testing.T) {
	f := newFixture(t, true)
	id := f.create(t)

	release, err := f.svc.inflight.acquire(id)
	require.NoError(t, err)

	_, err = f.svc.Advance(context.Background(), tech, id)
	assert.ErrorIs(t, err, models.ErrBusy)

	release()
	_, err = f.svc.Advance(context.Background(), tech, id)
	assert.NoError(t, err)
}

func TestVisibilityByRole(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.create(t)

	for _, tc := range []struct {
		actor models.Actor
		want  int
	}{
		{admin, 1}, {tech, 1}, {other, 0}, {doctor, 1},
		{models.Actor{Email: "perez@clinica.com", Name: "Juan Pérez", Role: models.RoleDoctor}, 0},
	} {
		cases, err := f.svc.List(ctx, tc.actor, repository.Filter{})
		require.NoError(t, err)
		assert.Len(t, cases, tc.want, tc.actor.Email)
	}

	cols, summary, err := f.svc.Board(ctx, tech, workflow.SortModes{})
	require.NoError(t, err)
	assert.Len(t, cols, 4)
	assert.Equal(t, 1, summary.Pending)

	actions, err := f.svc.Actions(ctx, tech, cols[0].Cases[0].ID)
	require.NoError(t, err)
	assert.True(t, actions.Advance)
}

func TestSubscribeFiltersByVisibility(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	sub, err := f.svc.Subscribe(ctx, other, repository.Filter{})
	require.NoError(t, err)
	defer sub.Close()

	f.create(t)
	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case cases := <-sub.Snapshots():
			assert.Empty(t, cases)
		case <-deadline:
			return
		}
	}
}
