// Package db selects and constructs the configured store.Driver.
package db

import (
	"context"
	"fmt"

	"github.com/hrygo/mindmapforge/internal/profile"
	"github.com/hrygo/mindmapforge/store"
	"github.com/hrygo/mindmapforge/store/db/postgres"
	"github.com/hrygo/mindmapforge/store/db/sqlite"
)

// NewDriver builds the store.Driver configured by p.Driver.
func NewDriver(ctx context.Context, p *profile.Profile) (store.Driver, error) {
	switch p.Driver {
	case "postgres":
		return postgres.NewDB(ctx, p.DSN)
	case "sqlite":
		return sqlite.NewDB(p.DSN)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q, expected postgres or sqlite", p.Driver)
	}
}
