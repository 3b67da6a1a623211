package storage

import (
	"context"
	"time"

	"go.trai.ch/zerr"
)

var (
	ErrClosed        = zerr.New("storage closed")
	ErrUnknownDriver = zerr.New("unknown storage driver")
	ErrPathRequired  = zerr.New("storage path required")
	ErrBadValue      = zerr.New("stored value has the wrong type")
)

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Config configures storage.
//
// Driver values: "memory" (default when empty), "file", "sqlite".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the coordinator and the upstream receiver.
//
// Getters return def when the key is absent.
type Store interface {
	GetString(ctx context.Context, key, def string) (string, error)
	PutString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	PutBool(ctx context.Context, key string, value bool) error
	AddToSet(ctx context.Context, set, member string) error
	RemoveFromSet(ctx context.Context, set, member string) error
	// GetSet returns the members sorted; an absent set is empty.
	GetSet(ctx context.Context, set string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
