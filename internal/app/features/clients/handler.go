// internal/app/features/clients/handler.go
package clients

import (
	uierrors "github.com/dalemusser/softmanager/internal/app/features/errors"
	clientstore "github.com/dalemusser/softmanager/internal/app/store/clients"
	"github.com/dalemusser/softmanager/internal/app/system/lifecycle"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for Clients.
type Handler struct {
	Clients   *clientstore.Store
	Lifecycle *lifecycle.Service
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs a Clients handler.
func NewHandler(db *mongo.Database, lc *lifecycle.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Clients:   clientstore.New(db),
		Lifecycle: lc,
		ErrLog:    errLog,
		Log:       logger,
	}
}
