// Package lifecycle deletes projects and clients together with everything
// that hangs off them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"

	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	filestore "github.com/dalemusser/softmanager/internal/app/store/files"
	logstore "github.com/dalemusser/softmanager/internal/app/store/logs"
	membershipstore "github.com/dalemusser/softmanager/internal/app/store/memberships"
	projectstore "github.com/dalemusser/softmanager/internal/app/store/projects"
	"github.com/dalemusser/softmanager/internal/app/system/projectfs"
	"github.com/dalemusser/softmanager/internal/app/system/txn"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	// ErrProjectNotFound is returned when the project to delete does not exist.
	ErrProjectNotFound = errors.New("lifecycle: project not found")
	// ErrClientHasProjects refuses a client delete while projects reference it.
	ErrClientHasProjects = errors.New("lifecycle: client still has projects")
)

// Projects is the project store surface used here.
type Projects interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	CountByClient(ctx context.Context, clientID primitive.ObjectID) (int64, error)
}

// ProjectScoped is any store with rows keyed by project.
type ProjectScoped interface {
	DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error)
}

// Clients deletes client rows.
type Clients interface {
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// TxRunner runs fn atomically where the backend allows it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// CascadeResult reports what DeleteProject removed. FolderErr is set when
// the rows were deleted but the folder could not be removed.
type CascadeResult struct {
	Project     models.Project
	Folder      string
	FolderErr   error
	Memberships int64
	Files       int64
	Logs        int64
}

// Service wires the stores needed for cascades.
type Service struct {
	Root        string
	Projects    Projects
	Memberships ProjectScoped
	Files       ProjectScoped
	Logs        ProjectScoped
	Clients     Clients
	RunInTx     TxRunner
	IsNotFound  func(error) bool
	Log         *zap.Logger
}

// New wires a Service to the Mongo stores, running cascades in a transaction
// when the deployment supports one.
func New(db *mongo.Database, root string, logger *zap.Logger) *Service {
	return &Service{
		Root:        root,
		Projects:    projectstore.New(db),
		Memberships: membershipstore.New(db),
		Files:       filestore.New(db),
		Logs:        logstore.New(db),
		Clients:     clientstore.New(db),
		RunInTx: func(ctx context.Context, fn func(context.Context) error) error {
			return txn.Run(ctx, db, logger, fn)
		},
		IsNotFound: func(err error) bool { return errors.Is(err, projectstore.ErrNotFound) },
		Log:        logger,
	}
}

// DeleteProject removes the project's folder and then its membership, file
// and log rows and the project itself. A folder failure is recorded in the
// result and does not stop the row deletes.
func (s *Service) DeleteProject(ctx context.Context, projectID primitive.ObjectID) (CascadeResult, error) {
	p, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		if s.IsNotFound != nil && s.IsNotFound(err) {
			return CascadeResult{}, ErrProjectNotFound
		}
		return CascadeResult{}, err
	}

	res := CascadeResult{Project: p, Folder: projectfs.Folder(s.Root, p.Name)}
	if err := os.RemoveAll(res.Folder); err != nil {
		res.FolderErr = err
		s.Log.Warn("project folder removal failed",
			zap.String("project_id", p.ID.Hex()),
			zap.String("folder", res.Folder),
			zap.Error(err))
	}

	run := s.RunInTx
	if run == nil {
		run = func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }
	}
	err = run(ctx, func(ctx context.Context) error {
		var err error
		if res.Memberships, err = s.Memberships.DeleteByProject(ctx, p.ID); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		if res.Files, err = s.Files.DeleteByProject(ctx, p.ID); err != nil {
			return fmt.Errorf("delete file records: %w", err)
		}
		if res.Logs, err = s.Logs.DeleteByProject(ctx, p.ID); err != nil {
			return fmt.Errorf("delete logs: %w", err)
		}
		if _, err = s.Projects.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	s.Log.Info("project deleted",
		zap.String("project_id", p.ID.Hex()),
		zap.String("name", p.Name),
		zap.Int64("memberships", res.Memberships),
		zap.Int64("files", res.Files),
		zap.Int64("logs", res.Logs),
		zap.Bool("folder_removed", res.FolderErr == nil))
	return res, nil
}

// DeleteClient removes a client that no project references.
func (s *Service) DeleteClient(ctx context.Context, clientID primitive.ObjectID) error {
	n, err := s.Projects.CountByClient(ctx, clientID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrClientHasProjects
	}
	_, err = s.Clients.Delete(ctx, clientID)
	return err
}
