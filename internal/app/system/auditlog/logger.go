// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"time"

	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"github.com/dalemusser/softmanager/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Appender persists a log entry.
type Appender interface {
	Append(ctx context.Context, e models.LogEntry) error
}

// Config controls where entries go.
// Mode: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off".
type Config struct {
	Mode string
}

// Logger records project actions. It never fails the caller: write errors
// are reported to zap and dropped.
type Logger struct {
	store  Appender
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Appender, zapLog *zap.Logger, config Config) *Logger {
	if config.Mode == "" {
		config.Mode = "all"
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Append records action against projectID by userID. A nil Logger is a no-op.
// The write is detached from ctx cancellation so an aborted request still
// leaves its trail.
func (l *Logger) Append(ctx context.Context, projectID, userID primitive.ObjectID, action, detail string) {
	if l == nil || l.config.Mode == "off" {
		return
	}

	e := models.LogEntry{
		ID:        primitive.NewObjectID(),
		Action:    action,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if !projectID.IsZero() {
		e.ProjectID = &projectID
	}
	if !userID.IsZero() {
		e.UserID = &userID
	}

	if l.config.Mode == "all" || l.config.Mode == "log" {
		l.logToZap(e)
	}
	if l.config.Mode == "all" || l.config.Mode == "db" {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer cancel()
		if err := l.store.Append(wctx, e); err != nil {
			l.zapLog.Error("failed to store audit entry",
				zap.Error(err),
				zap.String("action", action))
		}
	}
}

func (l *Logger) logToZap(e models.LogEntry) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("action", e.Action),
		zap.String("detail", e.Detail),
	}
	if e.ProjectID != nil {
		fields = append(fields, zap.String("project_id", e.ProjectID.Hex()))
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	l.zapLog.Info("audit entry", fields...)
}

// --- File events ---

// FileUploaded records an upload.
func (l *Logger) FileUploaded(ctx context.Context, projectID, userID primitive.ObjectID, name string) {
	l.Append(ctx, projectID, userID, models.ActionUpload, "Uploaded file: "+name)
}

// FileDeleted records a file deletion.
func (l *Logger) FileDeleted(ctx context.Context, projectID, userID primitive.ObjectID, name string) {
	l.Append(ctx, projectID, userID, models.ActionDeletion, "Deleted file: "+name)
}

// FileEdited records an in-place edit.
func (l *Logger) FileEdited(ctx context.Context, projectID, userID primitive.ObjectID, name string) {
	l.Append(ctx, projectID, userID, models.ActionEdit, "Edited file: "+name)
}

// --- Project events ---

// StatusChanged records a status change.
func (l *Logger) StatusChanged(ctx context.Context, projectID, userID primitive.ObjectID, status string) {
	l.Append(ctx, projectID, userID, models.ActionStatus, "Changed status to "+status)
}

// MemberAdded records a new team member.
func (l *Logger) MemberAdded(ctx context.Context, projectID, userID primitive.ObjectID) {
	l.Append(ctx, projectID, userID, models.ActionTeam, "Added new member")
}

// MemberRemoved records a team removal.
func (l *Logger) MemberRemoved(ctx context.Context, projectID, userID primitive.ObjectID) {
	l.Append(ctx, projectID, userID, models.ActionTeam, "Removed a member")
}

// MemberRoleChanged records a role relabel.
func (l *Logger) MemberRoleChanged(ctx context.Context, projectID, userID primitive.ObjectID) {
	l.Append(ctx, projectID, userID, models.ActionTeam, "Changed member role")
}
