package bootstrap

import (
	"context"
	"errors"
)

// ErrNoDatabase is returned by seeders that need the database when Run was
// configured without one.
var ErrNoDatabase = errors.New("bootstrap: seeder requires a database")

// Seeder loads reference data once infrastructure is up. Seeders run in
// order and the first failure aborts startup.
type Seeder struct {
	// Name appears in logs and errors.
	Name string
	// NeedsDB makes Run fail with ErrNoDatabase when no database is configured.
	NeedsDB bool
	Seed    func(ctx context.Context, res *Result) error
}

// Modules groups optional bootstrapping hooks.
type Modules struct {
	Seeders []Seeder
}
