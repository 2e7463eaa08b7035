// Package server exposes the dashboard over HTTP: a JSON API for lines,
// date bounds, chart, map, and table views, plus the embedded dashboard page.
package server

import (
	"context"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/dataset"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/store"
)

// Provider supplies the data behind the API. Two implementations: one over
// the memoized file loader, one over the persisted store snapshot.
type Provider interface {
	Lines(ctx context.Context) ([]string, error)
	// DateBounds returns nil when the line has no positive ridership.
	DateBounds(ctx context.Context, lineKey string) (*model.DateBounds, error)
	Monthly(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error)
}

// LoaderProvider serves from the source files via the memoized loader.
type LoaderProvider struct {
	Loader *dataset.Loader
}

func (p *LoaderProvider) Lines(ctx context.Context) ([]string, error) {
	ds, err := p.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Lines(), nil
}

func (p *LoaderProvider) DateBounds(ctx context.Context, lineKey string) (*model.DateBounds, error) {
	ds, err := p.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	bounds, ok := ds.DateBounds(lineKey)
	if !ok {
		return nil, nil
	}
	return &bounds, nil
}

func (p *LoaderProvider) Monthly(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error) {
	ds, err := p.Loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Filter(lineKey, startYM, endYM), nil
}

// StoreProvider serves from the last imported snapshot in the store.
type StoreProvider struct {
	Store store.Store
}

func (p *StoreProvider) Lines(ctx context.Context) ([]string, error) {
	return p.Store.ListLines(ctx)
}

func (p *StoreProvider) DateBounds(ctx context.Context, lineKey string) (*model.DateBounds, error) {
	return p.Store.LineBounds(ctx, lineKey)
}

func (p *StoreProvider) Monthly(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error) {
	return p.Store.MonthlyByLine(ctx, lineKey, startYM, endYM)
}
