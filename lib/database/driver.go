package database

import (
	"context"
)

// Driver is the connection-level surface the engine needs from a store
// backend: health probing and shutdown.
type Driver interface {
	Ping(ctx context.Context) error
	Close() error
	DriverName() string
}
