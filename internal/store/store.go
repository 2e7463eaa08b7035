// Package store persists the imported dataset so the dashboard can serve
// without re-reading the source files. Two backends: sqlite (default) and
// postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

// ReplaceRequest is a full snapshot of one import: the monthly joined view,
// the station geometries, per-line date bounds, and run bookkeeping.
type ReplaceRequest struct {
	Monthly  []model.MonthlyStationRidership
	Stations []model.StationGeometry
	Bounds   map[string]model.DateBounds

	RidershipPath string
	StationsPath  string
	Records       int
	JoinMisses    int
}

// Store is the persistence interface for imported datasets.
type Store interface {
	Migrate(ctx context.Context) error

	// ReplaceDataset atomically swaps the stored snapshot for the request's
	// contents and records an import run.
	ReplaceDataset(ctx context.Context, req ReplaceRequest) (*model.ImportRun, error)
	LastImport(ctx context.Context) (*model.ImportRun, error)

	ListLines(ctx context.Context) ([]string, error)
	// LineBounds returns nil when the line has no stored bounds.
	LineBounds(ctx context.Context, lineKey string) (*model.DateBounds, error)
	MonthlyByLine(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error)
	Stations(ctx context.Context) ([]model.StationGeometry, error)

	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
