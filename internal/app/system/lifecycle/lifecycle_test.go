package lifecycle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errMissing = errors.New("missing")

type fakeProjects struct {
	byID     map[primitive.ObjectID]models.Project
	byClient map[primitive.ObjectID]int64
	deleted  []primitive.ObjectID
}

func (f *fakeProjects) GetByID(_ context.Context, id primitive.ObjectID) (models.Project, error) {
	p, ok := f.byID[id]
	if !ok {
		return models.Project{}, errMissing
	}
	return p, nil
}

func (f *fakeProjects) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return 1, nil
}

func (f *fakeProjects) CountByClient(_ context.Context, id primitive.ObjectID) (int64, error) {
	return f.byClient[id], nil
}

type fakeScoped struct {
	n     int64
	err   error
	calls []primitive.ObjectID
}

func (f *fakeScoped) DeleteByProject(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.calls = append(f.calls, id)
	return f.n, f.err
}

type fakeClients struct{ deleted []primitive.ObjectID }

func (f *fakeClients) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	f.deleted = append(f.deleted, id)
	return 1, nil
}

type harness struct {
	svc      *lifecycle.Service
	projects *fakeProjects
	members  *fakeScoped
	files    *fakeScoped
	logs     *fakeScoped
	clients  *fakeClients
	txCalls  int
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		projects: &fakeProjects{byID: map[primitive.ObjectID]models.Project{}, byClient: map[primitive.ObjectID]int64{}},
		members:  &fakeScoped{n: 2},
		files:    &fakeScoped{n: 3},
		logs:     &fakeScoped{n: 4},
		clients:  &fakeClients{},
	}
	h.svc = &lifecycle.Service{
		Root:        t.TempDir(),
		Projects:    h.projects,
		Memberships: h.members,
		Files:       h.files,
		Logs:        h.logs,
		Clients:     h.clients,
		RunInTx: func(ctx context.Context, fn func(context.Context) error) error {
			h.txCalls++
			return fn(ctx)
		},
		IsNotFound: func(err error) bool { return errors.Is(err, errMissing) },
		Log:        zap.NewNop(),
	}
	return h
}

func (h *harness) addProject(name string) models.Project {
	p := models.Project{ID: primitive.NewObjectID(), Name: name}
	h.projects.byID[p.ID] = p
	return p
}

func TestDeleteProject_RemovesFolderAndRows(t *testing.T) {
	h := newHarness(t)
	p := h.addProject("Loja/Virtual")

	folder := filepath.Join(h.svc.Root, "Loja_Virtual")
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "1-a.txt"), []byte("x"), 0o644))

	res, err := h.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.NoError(t, res.FolderErr)
	require.Equal(t, int64(2), res.Memberships)
	require.Equal(t, int64(3), res.Files)
	require.Equal(t, int64(4), res.Logs)

	_, statErr := os.Stat(folder)
	require.True(t, os.IsNotExist(statErr))
	require.Equal(t, []primitive.ObjectID{p.ID}, h.projects.deleted)
	require.Equal(t, 1, h.txCalls)
}

func TestDeleteProject_NoFolderIsFine(t *testing.T) {
	h := newHarness(t)
	p := h.addProject("Site")

	res, err := h.svc.DeleteProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.NoError(t, res.FolderErr)
	require.Len(t, h.projects.deleted, 1)
}

func TestDeleteProject_RowFailureKeepsProject(t *testing.T) {
	h := newHarness(t)
	p := h.addProject("Site")
	h.files.err = errors.New("boom")

	_, err := h.svc.DeleteProject(context.Background(), p.ID)
	require.Error(t, err)
	require.Empty(t, h.logs.calls, "cascade stops at the failing step")
	require.Empty(t, h.projects.deleted)
}

func TestDeleteProject_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.DeleteProject(context.Background(), primitive.NewObjectID())
	require.ErrorIs(t, err, lifecycle.ErrProjectNotFound)
	require.Zero(t, h.txCalls)
}

func TestDeleteClient(t *testing.T) {
	h := newHarness(t)
	busy := primitive.NewObjectID()
	free := primitive.NewObjectID()
	h.projects.byClient[busy] = 1

	err := h.svc.DeleteClient(context.Background(), busy)
	require.ErrorIs(t, err, lifecycle.ErrClientHasProjects)
	require.Empty(t, h.clients.deleted)

	require.NoError(t, h.svc.DeleteClient(context.Background(), free))
	require.Equal(t, []primitive.ObjectID{free}, h.clients.deleted)
}
