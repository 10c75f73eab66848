package projects_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/softmanager/internal/app/features/errors"
	"github.com/dalemusser/softmanager/internal/app/features/projects"
	logstore "github.com/dalemusser/softmanager/internal/app/store/logs"
	"github.com/dalemusser/softmanager/internal/app/system/auditlog"
	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/softmanager/internal/testutil"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type env struct {
	t      *testing.T
	db     *mongo.Database
	fx     *testutil.Fixtures
	root   string
	router http.Handler

	admin   models.User
	member  models.User
	outside models.User
	project models.Project
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	root := t.TempDir()

	store, err := storage.NewLocal(storage.LocalConfig{BasePath: root})
	require.NoError(t, err)

	audit := auditlog.New(logstore.New(db), logger, auditlog.Config{Mode: "db"})
	lc := lifecycle.New(db, root, logger)
	h := projects.NewHandler(db, store, lc, limits.UploadBytes(1), audit, uierrors.NewErrorLogger(logger), logger)

	e := &env{
		t:      t,
		db:     db,
		fx:     testutil.NewFixtures(t, db),
		root:   root,
		router: projects.Routes(h, testutil.NewSessionManager(t)),
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.admin = e.fx.CreateAdmin(ctx, "Ada Admin")
	e.member = e.fx.CreateCollaborator(ctx, "Uma User")
	e.outside = e.fx.CreateCollaborator(ctx, "Otto Outsider")
	client := e.fx.CreateClient(ctx, "Acme")
	e.project = e.fx.CreateProject(ctx, "Site", &client.ID)
	e.fx.AddMember(ctx, e.project.ID, e.member.ID, "Dev")
	return e
}

// serve runs req through the router. Pages that render a template panic
// without a booted engine; the status is already written by then.
func (e *env) serve(req *http.Request, as models.User) *httptest.ResponseRecorder {
	req = testutil.WithUser(req, testutil.FromModel(as))
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	func() {
		defer func() { recover() }()
		e.router.ServeHTTP(rec, req)
	}()
	return rec
}

func (e *env) upload(as models.User, projectID primitive.ObjectID, files map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(e.t, mw.WriteField("projeto_id", projectID.Hex()))
	for name, content := range files {
		part, err := mw.CreateFormFile("arquivo", name)
		require.NoError(e.t, err)
		_, err = io.WriteString(part, content)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.serve(req, as)
}

func (e *env) postForm(path string, form url.Values, as models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, as)
}

func (e *env) fileRecord(name string) models.FileRecord {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var rec models.FileRecord
	require.NoError(e.t, e.db.Collection("files").FindOne(ctx, bson.M{"original_name": name}).Decode(&rec))
	return rec
}

func (e *env) logDetails(action string) []string {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	cur, err := e.db.Collection("project_logs").Find(ctx,
		bson.M{"project_id": e.project.ID, "action": action},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	require.NoError(e.t, err)
	var entries []models.LogEntry
	require.NoError(e.t, cur.All(ctx, &entries))
	out := make([]string, 0, len(entries))
	for _, le := range entries {
		out = append(out, le.Detail)
	}
	return out
}

func (e *env) count(coll string, filter bson.M) int64 {
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection(coll).CountDocuments(ctx, filter)
	require.NoError(e.t, err)
	return n
}

func TestUpload_TeamMemberStoresFileAndLogs(t *testing.T) {
	e := newEnv(t)

	rec := e.upload(e.member, e.project.ID, map[string]string{"report.docx": "quarterly numbers"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/projetos/ver/"+e.project.ID.Hex(), rec.Header().Get("Location"))

	require.Equal(t, int64(1), e.count("files", bson.M{"project_id": e.project.ID}))
	fr := e.fileRecord("report.docx")
	require.Equal(t, e.member.ID, fr.UploaderID)
	require.Equal(t, filepath.Join(e.root, "Site"), filepath.Dir(fr.Path))
	require.True(t, strings.HasSuffix(fr.StoredName, "-report.docx"))

	data, err := os.ReadFile(fr.Path)
	require.NoError(t, err)
	require.Equal(t, "quarterly numbers", string(data))

	require.Equal(t, []string{"Uploaded file: report.docx"}, e.logDetails(models.ActionUpload))
}

func TestUpload_MultipleParts(t *testing.T) {
	e := newEnv(t)

	rec := e.upload(e.admin, e.project.ID, map[string]string{"a.txt": "A", "b.txt": "B"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, int64(2), e.count("files", bson.M{"project_id": e.project.ID}))
	require.Len(t, e.logDetails(models.ActionUpload), 2)
}

func TestUpload_OutsiderForbidden(t *testing.T) {
	e := newEnv(t)

	rec := e.upload(e.outside, e.project.ID, map[string]string{"x.txt": "x"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, e.count("files", bson.M{}))
}

func TestView_Access(t *testing.T) {
	e := newEnv(t)
	path := "/ver/" + e.project.ID.Hex()

	require.Equal(t, http.StatusForbidden, e.serve(httptest.NewRequest("GET", path, nil), e.outside).Code)
	require.NotEqual(t, http.StatusForbidden, e.serve(httptest.NewRequest("GET", path, nil), e.member).Code)
	require.NotEqual(t, http.StatusForbidden, e.serve(httptest.NewRequest("GET", path, nil), e.admin).Code)
}

func TestDownload(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"final report.txt": "hello"})
	fr := e.fileRecord("final report.txt")
	path := "/arquivo/download/" + fr.ID.Hex()

	rec := e.serve(httptest.NewRequest("GET", path, nil), e.member)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = e.serve(httptest.NewRequest("GET", path, nil), e.outside)
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, os.Remove(fr.Path))
	rec = e.serve(httptest.NewRequest("GET", path, nil), e.admin)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.serve(httptest.NewRequest("GET", "/arquivo/download/"+primitive.NewObjectID().Hex(), nil), e.admin)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadAll(t *testing.T) {
	e := newEnv(t)
	path := "/download-all/" + e.project.ID.Hex()

	rec := e.serve(httptest.NewRequest("GET", path, nil), e.member)
	require.Equal(t, http.StatusSeeOther, rec.Code, "empty project redirects with a notice")
	require.Contains(t, rec.Header().Get("Location"), "erro=")

	e.upload(e.member, e.project.ID, map[string]string{"report.docx": "R", "notes.txt": "N"})

	rec = e.serve(httptest.NewRequest("GET", path, nil), e.member)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "Site_completo.zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.ElementsMatch(t, []string{"report.docx", "notes.txt"}, names)

	rec = e.serve(httptest.NewRequest("GET", path, nil), e.outside)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFileDelete(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"old.txt": "bye"})
	fr := e.fileRecord("old.txt")

	rec := e.serve(httptest.NewRequest("GET", "/arquivo/delete/"+fr.ID.Hex(), nil), e.outside)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, int64(1), e.count("files", bson.M{"_id": fr.ID}))

	rec = e.serve(httptest.NewRequest("GET", "/arquivo/delete/"+fr.ID.Hex(), nil), e.member)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/projetos/ver/"+e.project.ID.Hex(), rec.Header().Get("Location"))
	require.Zero(t, e.count("files", bson.M{"_id": fr.ID}))
	_, err := os.Stat(fr.Path)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, []string{"Deleted file: old.txt"}, e.logDetails(models.ActionDeletion))
}

func TestFileDelete_UnlinkFailureShowsNotice(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"stuck.txt": "x"})
	fr := e.fileRecord("stuck.txt")

	// Replace the file with a non-empty directory so the unlink fails.
	require.NoError(t, os.Remove(fr.Path))
	require.NoError(t, os.MkdirAll(filepath.Join(fr.Path, "child"), 0o755))

	rec := e.serve(httptest.NewRequest("GET", "/arquivo/delete/"+fr.ID.Hex(), nil), e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "aviso=")
	require.Zero(t, e.count("files", bson.M{"_id": fr.ID}))
}

func TestEditAndSave(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"main.go": "package main\n"})
	fr := e.fileRecord("main.go")

	rec := e.serve(httptest.NewRequest("GET", "/arquivo/edit/"+fr.ID.Hex(), nil), e.outside)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.postForm("/arquivo/save", url.Values{"id": {fr.ID.Hex()}, "conteudo": {"hijack"}}, e.outside)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.postForm("/arquivo/save", url.Values{"id": {fr.ID.Hex()}, "conteudo": {"package main\n\nfunc main() {}\n"}}, e.member)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	data, err := os.ReadFile(fr.Path)
	require.NoError(t, err)
	require.Equal(t, "package main\n\nfunc main() {}\n", string(data))
	require.Equal(t, []string{"Edited file: main.go"}, e.logDetails(models.ActionEdit))
}

func TestEdit_BinaryRedirectsWithNotice(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"logo.png": "\x89PNG\x00\x01"})
	fr := e.fileRecord("logo.png")

	rec := e.serve(httptest.NewRequest("GET", "/arquivo/edit/"+fr.ID.Hex(), nil), e.member)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "erro=")
}

func TestStatusChange(t *testing.T) {
	e := newEnv(t)
	path := "/status/" + e.project.ID.Hex()

	rec := e.postForm(path, url.Values{"status": {"Done"}}, e.member)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.postForm(path, url.Values{"status": {"Done"}}, e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	var p models.Project
	require.NoError(t, e.db.Collection("projects").FindOne(ctx, bson.M{"_id": e.project.ID}).Decode(&p))
	require.Equal(t, "Done", p.Status)
	require.Equal(t, []string{"Changed status to Done"}, e.logDetails(models.ActionStatus))
}

func TestTeamManagement(t *testing.T) {
	e := newEnv(t)
	pid := e.project.ID.Hex()

	rec := e.postForm("/equipe/add", url.Values{
		"projeto_id": {pid},
		"usuario_id": {e.outside.ID.Hex()},
		"funcao":     {"QA"},
	}, e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, int64(1), e.count("project_members", bson.M{"project_id": e.project.ID, "user_id": e.outside.ID}))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	var m models.Membership
	require.NoError(t, e.db.Collection("project_members").FindOne(ctx, bson.M{"user_id": e.outside.ID}).Decode(&m))

	rec = e.postForm("/equipe/edit/"+m.ID.Hex(), url.Values{"projeto_id": {pid}, "nova_funcao": {"Lead QA"}}, e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.NoError(t, e.db.Collection("project_members").FindOne(ctx, bson.M{"_id": m.ID}).Decode(&m))
	require.Equal(t, "Lead QA", m.Role)

	rec = e.serve(httptest.NewRequest("GET", "/equipe/remove/"+m.ID.Hex()+"/"+pid, nil), e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Zero(t, e.count("project_members", bson.M{"_id": m.ID}))

	require.Equal(t, []string{"Added new member", "Changed member role", "Removed a member"}, e.logDetails(models.ActionTeam))
}

func TestTeamAdd_DuplicateMembershipAllowed(t *testing.T) {
	e := newEnv(t)

	form := url.Values{"projeto_id": {e.project.ID.Hex()}, "usuario_id": {e.member.ID.Hex()}, "funcao": {"Dev"}}
	require.Equal(t, http.StatusSeeOther, e.postForm("/equipe/add", form, e.admin).Code)
	require.Equal(t, int64(2), e.count("project_members", bson.M{"project_id": e.project.ID, "user_id": e.member.ID}))
}

func TestDeleteProject_Cascades(t *testing.T) {
	e := newEnv(t)
	e.upload(e.member, e.project.ID, map[string]string{"a.txt": "A"})
	folder := filepath.Join(e.root, "Site")
	_, err := os.Stat(folder)
	require.NoError(t, err)

	rec := e.serve(httptest.NewRequest("GET", "/delete/"+e.project.ID.Hex(), nil), e.member)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.serve(httptest.NewRequest("GET", "/delete/"+e.project.ID.Hex(), nil), e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/projetos", rec.Header().Get("Location"))

	_, err = os.Stat(folder)
	require.True(t, os.IsNotExist(err))
	for _, coll := range []string{"project_members", "files", "project_logs"} {
		require.Zero(t, e.count(coll, bson.M{"project_id": e.project.ID}), coll)
	}
	require.Zero(t, e.count("projects", bson.M{"_id": e.project.ID}))
}

func TestCreateProject(t *testing.T) {
	e := newEnv(t)

	rec := e.postForm("/add", url.Values{"nome": {"Portal"}, "cliente_id": {""}, "status": {""}}, e.admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	var p models.Project
	require.NoError(t, e.db.Collection("projects").FindOne(ctx, bson.M{"name": "Portal"}).Decode(&p))
	require.Equal(t, models.DefaultProjectStatus, p.Status)
	require.Nil(t, p.ClientID)

	rec = e.postForm("/add", url.Values{"nome": {"Orphan"}, "cliente_id": {primitive.NewObjectID().Hex()}}, e.admin)
	require.Contains(t, rec.Header().Get("Location"), "erro=")
	require.Zero(t, e.count("projects", bson.M{"name": "Orphan"}))
}

func TestNewHandler_UsesInjectedStorageAndLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	root := t.TempDir()

	store, err := storage.NewLocal(storage.LocalConfig{BasePath: root})
	require.NoError(t, err)
	lc := lifecycle.New(db, root, logger)
	audit := auditlog.New(logstore.New(db), logger, auditlog.Config{Mode: "db"})

	h := projects.NewHandler(db, store, lc, limits.UploadBytes(1), audit, uierrors.NewErrorLogger(logger), logger)
	require.Same(t, lc, h.Lifecycle)
	require.Same(t, store, h.Storage)
	require.Same(t, store, h.Repo.Storage)
}
