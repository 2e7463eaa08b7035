package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/db"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/resilience"
)

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	// The database may still be coming up when the CLI starts.
	pingCfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		OnRetry:        resilience.RetryLogger("postgres ping"),
	}
	if err := resilience.Do(ctx, pingCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS monthly_ridership (
	year_month   TEXT NOT NULL,
	line_key     TEXT NOT NULL,
	station_key  TEXT NOT NULL,
	riders       BIGINT NOT NULL,
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	PRIMARY KEY (year_month, line_key, station_key)
);

CREATE TABLE IF NOT EXISTS stations (
	station_key TEXT NOT NULL,
	line_key    TEXT NOT NULL,
	station     TEXT NOT NULL,
	line        TEXT NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (station_key, line_key)
);

CREATE TABLE IF NOT EXISTS line_bounds (
	line_key TEXT PRIMARY KEY,
	min_date TIMESTAMPTZ NOT NULL,
	max_date TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS import_runs (
	id             TEXT PRIMARY KEY,
	ridership_path TEXT NOT NULL,
	stations_path  TEXT NOT NULL,
	records        BIGINT NOT NULL,
	stations       BIGINT NOT NULL,
	join_misses    BIGINT NOT NULL,
	imported_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monthly_line ON monthly_ridership(line_key, year_month);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceDataset(ctx context.Context, req ReplaceRequest) (*model.ImportRun, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, table := range []string{"monthly_ridership", "stations", "line_bounds"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return nil, eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	if len(req.Monthly) > 0 {
		rows := make([][]any, 0, len(req.Monthly))
		for _, row := range req.Monthly {
			var lat, lon any
			if row.HasGeometry {
				lat, lon = row.Lat, row.Lon
			}
			rows = append(rows, []any{row.YearMonth, row.LineKey, row.StationKey, row.Riders, lat, lon})
		}
		if _, err := db.CopyRows(ctx, tx, "monthly_ridership",
			[]string{"year_month", "line_key", "station_key", "riders", "lat", "lon"}, rows); err != nil {
			return nil, err
		}
	}

	// The geometry source can repeat a (station, line) pair; first wins,
	// same as the join.
	seen := make(map[[2]string]bool, len(req.Stations))
	stationRows := make([][]any, 0, len(req.Stations))
	for _, st := range req.Stations {
		k := [2]string{st.StationKey, st.LineKey}
		if seen[k] {
			continue
		}
		seen[k] = true
		stationRows = append(stationRows, []any{st.StationKey, st.LineKey, st.Station, st.Line, st.Lat(), st.Lon()})
	}
	if _, err := db.CopyRows(ctx, tx, "stations",
		[]string{"station_key", "line_key", "station", "line", "lat", "lon"}, stationRows); err != nil {
		return nil, err
	}

	for line, bounds := range req.Bounds {
		_, err := tx.Exec(ctx,
			`INSERT INTO line_bounds (line_key, min_date, max_date) VALUES ($1, $2, $3)`,
			line, bounds.Min, bounds.Max,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert bounds for %s", line)
		}
	}

	run := &model.ImportRun{
		ID:            uuid.New().String(),
		RidershipPath: req.RidershipPath,
		StationsPath:  req.StationsPath,
		Records:       req.Records,
		Stations:      len(req.Stations),
		JoinMisses:    req.JoinMisses,
		ImportedAt:    time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO import_runs (id, ridership_path, stations_path, records, stations, join_misses, imported_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.RidershipPath, run.StationsPath, run.Records, run.Stations, run.JoinMisses, run.ImportedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert import run")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit")
	}
	return run, nil
}

func (s *PostgresStore) LastImport(ctx context.Context) (*model.ImportRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, ridership_path, stations_path, records, stations, join_misses, imported_at
		 FROM import_runs ORDER BY imported_at DESC LIMIT 1`,
	)

	var run model.ImportRun
	err := row.Scan(&run.ID, &run.RidershipPath, &run.StationsPath, &run.Records, &run.Stations, &run.JoinMisses, &run.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last import")
	}
	return &run, nil
}

func (s *PostgresStore) ListLines(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT line_key FROM monthly_ridership ORDER BY line_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list lines")
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, eris.Wrap(err, "postgres: scan line")
		}
		lines = append(lines, line)
	}
	return lines, eris.Wrap(rows.Err(), "postgres: list lines iterate")
}

func (s *PostgresStore) LineBounds(ctx context.Context, lineKey string) (*model.DateBounds, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT min_date, max_date FROM line_bounds WHERE line_key = $1`, lineKey,
	)

	var bounds model.DateBounds
	err := row.Scan(&bounds.Min, &bounds.Max)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: bounds for %s", lineKey)
	}
	return &bounds, nil
}

func (s *PostgresStore) MonthlyByLine(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT year_month, line_key, station_key, riders, lat, lon
		 FROM monthly_ridership
		 WHERE line_key = $1 AND year_month >= $2 AND year_month <= $3
		 ORDER BY year_month, station_key`,
		lineKey, startYM, endYM,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: monthly by line")
	}
	defer rows.Close()

	var out []model.MonthlyStationRidership
	for rows.Next() {
		var row model.MonthlyStationRidership
		var lat, lon *float64
		if err := rows.Scan(&row.YearMonth, &row.LineKey, &row.StationKey, &row.Riders, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan monthly row")
		}
		if lat != nil && lon != nil {
			row.Lat, row.Lon, row.HasGeometry = *lat, *lon, true
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "postgres: monthly iterate")
}

func (s *PostgresStore) Stations(ctx context.Context) ([]model.StationGeometry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT station_key, line_key, station, line, lat, lon FROM stations ORDER BY line_key, station_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stations")
	}
	defer rows.Close()

	var out []model.StationGeometry
	for rows.Next() {
		var st model.StationGeometry
		var lat, lon float64
		if err := rows.Scan(&st.StationKey, &st.LineKey, &st.Station, &st.Line, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "postgres: scan station")
		}
		st.Point = geom.NewPointFlat(geom.XY, []float64{lon, lat})
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: stations iterate")
}
