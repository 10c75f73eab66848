// Package filerepo stores, serves and edits the files attached to a project.
// Metadata lives in Mongo; content lives in a storage.Local keyed
// "<project folder>/<stored name>".
package filerepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/softmanager/internal/app/system/auditlog"
	"github.com/dalemusser/softmanager/internal/app/system/limits"
	"github.com/dalemusser/softmanager/internal/app/system/projectfs"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("filerepo: file not found")
	ErrProjectNotFound = errors.New("filerepo: project not found")
	ErrForbidden       = errors.New("filerepo: not a member of the file's project")
	ErrNotEditable     = errors.New("filerepo: file is not editable text")
	ErrEmptyName       = errors.New("filerepo: upload has no file name")
)

// maxNameAttempts bounds how often Store bumps the timestamp when a stored
// name is already taken.
const maxNameAttempts = 50

// ProjectLookup resolves a project. It returns a not-found error
// recognised by IsNotFound.
type ProjectLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
}

// FileRecords persists file metadata.
type FileRecords interface {
	Create(ctx context.Context, rec models.FileRecord) (models.FileRecord, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.FileRecord, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	TouchSize(ctx context.Context, id primitive.ObjectID, size int64) error
}

// Membership answers whether a user is on a project's team.
type Membership interface {
	IsMember(ctx context.Context, projectID, userID primitive.ObjectID) (bool, error)
}

// Caller is who is acting.
type Caller struct {
	UserID primitive.ObjectID
	Admin  bool
}

// Upload is one incoming file part.
type Upload struct {
	Name string
	Body io.Reader
}

// DeleteOutcome reports a completed delete. PhysicalErr is set when the
// record was removed but the file could not be unlinked.
type DeleteOutcome struct {
	Record      models.FileRecord
	PhysicalErr error
}

// Download is an open object ready to stream. The caller closes Body.
type Download struct {
	Record  models.FileRecord
	Body    io.ReadCloser
	Size    int64
	ModTime time.Time
}

// Service implements the file repository.
type Service struct {
	Storage    *storage.Local
	Projects   ProjectLookup
	Files      FileRecords
	Members    Membership
	Audit      *auditlog.Logger
	Log        *zap.Logger
	IsNotFound func(error) bool

	now func() time.Time
}

// New builds a Service. isNotFound classifies lookup errors from projects
// and files as "missing".
func New(store *storage.Local, projects ProjectLookup, files FileRecords, members Membership, audit *auditlog.Logger, isNotFound func(error) bool, logger *zap.Logger) *Service {
	return &Service{
		Storage:    store,
		Projects:   projects,
		Files:      files,
		Members:    members,
		Audit:      audit,
		Log:        logger,
		IsNotFound: isNotFound,
		now:        time.Now,
	}
}

// objectKey is the storage key of a stored file inside a project folder.
func objectKey(folder, stored string) string {
	return path.Join(folder, stored)
}

// recordKey recovers the storage key from a record's absolute path. The
// folder is always a single segment directly under the storage root.
func recordKey(rec models.FileRecord) string {
	return objectKey(filepath.Base(filepath.Dir(rec.Path)), rec.StoredName)
}

// Store writes each upload into the project's folder, records it and logs
// an Upload entry per file. Files already written stay in place if a later
// part fails.
func (s *Service) Store(ctx context.Context, caller Caller, projectID primitive.ObjectID, uploads []Upload) ([]models.FileRecord, error) {
	p, err := s.Projects.GetByID(ctx, projectID)
	if err != nil {
		if s.IsNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	folder := projectfs.SanitizeFolderName(p.Name)
	out := make([]models.FileRecord, 0, len(uploads))
	for _, up := range uploads {
		rec, err := s.storeOne(ctx, caller, p, folder, up)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Service) storeOne(ctx context.Context, caller Caller, p models.Project, folder string, up Upload) (models.FileRecord, error) {
	original := filepath.Base(filepath.ToSlash(up.Name))
	if up.Name == "" || original == "." || original == "/" {
		return models.FileRecord{}, ErrEmptyName
	}

	ts := s.now()
	stored, err := s.putUnique(ctx, folder, ts, up)
	if err != nil {
		return models.FileRecord{}, err
	}
	key := objectKey(folder, stored)

	full, err := s.Storage.GetFullPath(key)
	if err != nil {
		s.discard(ctx, key)
		return models.FileRecord{}, err
	}
	info, err := s.Storage.Head(ctx, key)
	if err != nil {
		s.discard(ctx, key)
		return models.FileRecord{}, fmt.Errorf("stat upload: %w", err)
	}

	rec, err := s.Files.Create(ctx, models.FileRecord{
		ProjectID:    p.ID,
		UploaderID:   caller.UserID,
		OriginalName: up.Name,
		StoredName:   stored,
		Path:         full,
		Size:         info.Size,
		UploadedAt:   ts.UTC(),
	})
	if err != nil {
		s.discard(ctx, key)
		return models.FileRecord{}, fmt.Errorf("record upload: %w", err)
	}

	s.Audit.FileUploaded(ctx, p.ID, caller.UserID, up.Name)
	return rec, nil
}

// putUnique writes the upload as projectfs.StoredName(ts, name), moving ts
// forward a millisecond at a time while the name is taken.
func (s *Service) putUnique(ctx context.Context, folder string, ts time.Time, up Upload) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		stored := projectfs.StoredName(ts, up.Name)
		err := s.Storage.Put(ctx, objectKey(folder, stored), up.Body, &storage.PutOptions{IfNotExists: true})
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return "", fmt.Errorf("write upload: %w", err)
		}
		ts = ts.Add(time.Millisecond)
	}
	return "", fmt.Errorf("write upload: no free name for %q", up.Name)
}

func (s *Service) discard(ctx context.Context, key string) {
	if err := s.Storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.Log.Warn("orphaned upload left in storage", zap.String("key", key), zap.Error(err))
	}
}

// authorize loads the record and checks the caller against its project.
func (s *Service) authorize(ctx context.Context, caller Caller, fileID primitive.ObjectID) (models.FileRecord, error) {
	rec, err := s.Files.GetByID(ctx, fileID)
	if err != nil {
		if s.IsNotFound(err) {
			return models.FileRecord{}, ErrNotFound
		}
		return models.FileRecord{}, err
	}
	if caller.Admin {
		return rec, nil
	}
	ok, err := s.Members.IsMember(ctx, rec.ProjectID, caller.UserID)
	if err != nil {
		return models.FileRecord{}, err
	}
	if !ok {
		return rec, ErrForbidden
	}
	return rec, nil
}

// Record returns a file's metadata after the same access check as Open.
func (s *Service) Record(ctx context.Context, caller Caller, fileID primitive.ObjectID) (models.FileRecord, error) {
	return s.authorize(ctx, caller, fileID)
}

// Open returns the file for streaming. A record whose content is gone from
// storage is reported as ErrNotFound.
func (s *Service) Open(ctx context.Context, caller Caller, fileID primitive.ObjectID) (*Download, error) {
	rec, err := s.authorize(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}
	body, info, err := s.Storage.GetWithInfo(ctx, recordKey(rec))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			s.Log.Warn("file record without content in storage",
				zap.String("file_id", rec.ID.Hex()),
				zap.String("path", rec.Path))
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Download{Record: rec, Body: body, Size: info.Size, ModTime: info.LastModified}, nil
}

// Delete unlinks the file and removes its record. An unlink failure does
// not stop the record removal; it is returned in the outcome instead.
func (s *Service) Delete(ctx context.Context, caller Caller, fileID primitive.ObjectID) (DeleteOutcome, error) {
	rec, err := s.authorize(ctx, caller, fileID)
	if err != nil {
		return DeleteOutcome{}, err
	}

	out := DeleteOutcome{Record: rec}
	if err := s.Storage.Delete(ctx, recordKey(rec)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		out.PhysicalErr = err
		s.Log.Warn("unlink failed; removing record anyway",
			zap.String("file_id", rec.ID.Hex()),
			zap.String("path", rec.Path),
			zap.Error(err))
	}

	if _, err := s.Files.Delete(ctx, rec.ID); err != nil {
		return out, err
	}
	s.Audit.FileDeleted(ctx, rec.ProjectID, caller.UserID, rec.OriginalName)
	return out, nil
}

// ReadForEdit returns the file as text. Content that is not valid UTF-8,
// contains NUL bytes or exceeds limits.MaxEditableFileSize yields
// ErrNotEditable along with the record.
func (s *Service) ReadForEdit(ctx context.Context, caller Caller, fileID primitive.ObjectID) (models.FileRecord, string, error) {
	rec, err := s.authorize(ctx, caller, fileID)
	if err != nil {
		return rec, "", err
	}

	key := recordKey(rec)
	info, err := s.Storage.Head(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return rec, "", ErrNotFound
		}
		return rec, "", err
	}
	if info.Size > limits.MaxEditableFileSize {
		return rec, "", ErrNotEditable
	}

	data, err := s.Storage.GetBytes(ctx, key)
	if err != nil {
		return rec, "", err
	}
	if !isText(data) {
		return rec, "", ErrNotEditable
	}
	return rec, string(data), nil
}

func isText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, c := range b {
		if c == 0 {
			return false
		}
	}
	return true
}

// Save replaces the file with content and logs an Edit entry.
func (s *Service) Save(ctx context.Context, caller Caller, fileID primitive.ObjectID, content string) (models.FileRecord, error) {
	rec, err := s.authorize(ctx, caller, fileID)
	if err != nil {
		return rec, err
	}

	if err := s.Storage.PutBytes(ctx, recordKey(rec), []byte(content), nil); err != nil {
		return rec, fmt.Errorf("write file: %w", err)
	}
	if err := s.Files.TouchSize(ctx, rec.ID, int64(len(content))); err != nil {
		s.Log.Warn("size update failed", zap.String("file_id", rec.ID.Hex()), zap.Error(err))
	}

	s.Audit.FileEdited(ctx, rec.ProjectID, caller.UserID, rec.OriginalName)
	return rec, nil
}
