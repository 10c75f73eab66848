// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/dalemusser/softmanager/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports whether the database answers and the uploads root is usable.
type Handler struct {
	Client      *mongo.Client
	UploadsRoot string
	Log         *zap.Logger
	started     time.Time
}

func NewHandler(client *mongo.Client, uploadsRoot string, logger *zap.Logger) *Handler {
	return &Handler{
		Client:      client,
		UploadsRoot: uploadsRoot,
		Log:         logger,
		started:     time.Now(),
	}
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status  string                 `json:"status"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]checkResult `json:"checks"`
	Message string                 `json:"message,omitempty"`
}

// Serve handles GET /health: 200 with status "ok" when every check passes,
// 503 with status "error" otherwise. The uploads check fails when the root
// folder is missing or is not a directory.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
		Checks: map[string]checkResult{
			"database": h.checkDatabase(r.Context()),
			"uploads":  h.checkUploads(),
		},
	}

	code := http.StatusOK
	for name, c := range resp.Checks {
		if c.Status != "ok" {
			h.Log.Error("health-check failed", zap.String("check", name), zap.String("error", c.Error))
			resp.Status = "error"
			resp.Message = "Service degraded"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) checkDatabase(parent context.Context) checkResult {
	ctx, cancel := context.WithTimeout(parent, timeouts.Ping())
	defer cancel()
	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		return checkResult{Status: "error", Error: err.Error()}
	}
	return checkResult{Status: "ok"}
}

func (h *Handler) checkUploads() checkResult {
	fi, err := os.Stat(h.UploadsRoot)
	switch {
	case err != nil:
		return checkResult{Status: "error", Error: err.Error()}
	case !fi.IsDir():
		return checkResult{Status: "error", Error: h.UploadsRoot + " is not a directory"}
	}
	return checkResult{Status: "ok"}
}
