package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/softmanager/internal/app/store/users"
	"github.com/dalemusser/softmanager/internal/app/system/indexes"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/softmanager/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestStore_Create_NormalizesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:     "  Carla   Mendes ",
		Email:        " Carla@Soft.com ",
		Role:         "Admin",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Carla Mendes" {
		t.Errorf("FullName = %q", created.FullName)
	}
	if created.Email != "carla@soft.com" || created.EmailCI == "" {
		t.Errorf("email not normalized: %q / %q", created.Email, created.EmailCI)
	}
	if created.Role != models.RoleAdmin {
		t.Errorf("Role = %q", created.Role)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@y.z", Role: "guest", PasswordHash: "h"})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	u := models.User{FullName: "Ana", Email: "ana@soft.com", Role: "collaborator", PasswordHash: "h"}
	if _, err := store.Create(ctx, u); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	u.Email = "ANA@soft.com"
	if _, err := store.Create(ctx, u); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{FullName: "Ana", Email: "ana@soft.com", Role: "collaborator", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByEmail(ctx, "  ANA@Soft.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got %v, want %v", got.ID, created.ID)
	}

	if _, err := store.GetByEmail(ctx, "nobody@soft.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_List_OmitsPasswordHash(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateCollaborator(ctx, "Bruno")
	fixtures.CreateAdmin(ctx, "Ana")

	users, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users[0].FullName != "Ana" {
		t.Errorf("expected name order, got %q first", users[0].FullName)
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Error("List must not return password hashes")
		}
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	fetcher := userstore.NewFetcher(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateCollaborator(ctx, "Bruno")

	su, err := fetcher.FetchUser(ctx, u.ID.Hex())
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if su == nil || su.Name != "Bruno" || su.Role != models.RoleCollaborator {
		t.Fatalf("unexpected session user %+v", su)
	}

	su, err = fetcher.FetchUser(ctx, primitive.NewObjectID().Hex())
	if err != nil || su != nil {
		t.Errorf("missing user: got %+v, %v", su, err)
	}

	su, err = fetcher.FetchUser(ctx, "bad")
	if err != nil || su != nil {
		t.Errorf("malformed id: got %+v, %v", su, err)
	}
}
