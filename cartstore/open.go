package cartstore

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Options selects and configures a Storage backend.
type Options struct {
	Backend    string
	QuotaBytes int
	Dir        string
	RedisAddr  string
	RedisHash  string
	SQLitePath string
}

// Open builds the configured backend and initializes it.
func Open(ctx context.Context, opts Options, log logrus.FieldLogger) (Storage, error) {
	var s Storage
	switch opts.Backend {
	case BackendMemory, "":
		s = NewMemoryStorage(opts.QuotaBytes)
	case BackendFile:
		s = NewFileStorage(opts.Dir, log)
	case BackendRedis:
		s = NewRedisStorage(opts.RedisAddr, opts.RedisHash, log)
	case BackendSQLite:
		db, err := NewSQLiteStorage(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		s = db
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}

	if err := s.Initialize(ctx); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "initialize %s storage", opts.Backend)
	}
	log.WithField("backend", opts.Backend).Info("storage initialized")
	return s, nil
}
