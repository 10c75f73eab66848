// Package txn runs multi-collection writes atomically when the deployment
// supports it.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a Mongo transaction. Standalone servers cannot run
// transactions; there fn runs without one and a warning is logged.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithout(ctx, log, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return runWithout(ctx, log, err, fn)
	}
	return err
}

func runWithout(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Warn("transactions unavailable; running without one", zap.Error(cause))
	}
	return fn(ctx)
}

// IsNotSupported reports whether err means the server cannot run
// transactions (standalone mongod, unsupported topology).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case 20, 51, 263: // IllegalOperation, ..., OperationNotSupportedInTransaction
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pair := range notSupportedHints {
		if strings.Contains(msg, pair[0]) && strings.Contains(msg, pair[1]) {
			return true
		}
	}
	return false
}

var notSupportedHints = [][2]string{
	{"transaction", "replica set"},
	{"transaction", "session"},
	{"session", "not supported"},
	{"transaction", "illegal operation"},
}
