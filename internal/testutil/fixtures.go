package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Repeated calls on the same request accumulate parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given role. The password hash is a
// placeholder; login tests that need a real hash set it themselves.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Role:         role,
		FullName:     name,
		Email:        email,
		EmailCI:      text.Fold(email),
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAdmin inserts an admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, primitive.NewObjectID().Hex()+"@admin.test", models.RoleAdmin)
}

// CreateCollaborator inserts a collaborator user.
func (f *Fixtures) CreateCollaborator(ctx context.Context, name string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, primitive.NewObjectID().Hex()+"@collab.test", models.RoleCollaborator)
}

// CreateClient inserts a client.
func (f *Fixtures) CreateClient(ctx context.Context, name string) models.Client {
	f.t.Helper()

	c := models.Client{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     "contato@" + primitive.NewObjectID().Hex() + ".test",
		Company:   name + " LTDA",
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("clients").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test client: %v", err)
	}
	return c
}

// CreateProject inserts a project, optionally linked to a client.
func (f *Fixtures) CreateProject(ctx context.Context, name string, clientID *primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Status:    models.DefaultProjectStatus,
		ClientID:  clientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// AddMember puts a user on a project's team.
func (f *Fixtures) AddMember(ctx context.Context, projectID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:        primitive.NewObjectID(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("project_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}
