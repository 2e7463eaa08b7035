package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	_ "modernc.org/sqlite"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "afluencia.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS monthly_ridership (
	year_month   TEXT NOT NULL,
	line_key     TEXT NOT NULL,
	station_key  TEXT NOT NULL,
	riders       INTEGER NOT NULL,
	lat          REAL,
	lon          REAL,
	PRIMARY KEY (year_month, line_key, station_key)
);

CREATE TABLE IF NOT EXISTS stations (
	station_key TEXT NOT NULL,
	line_key    TEXT NOT NULL,
	station     TEXT NOT NULL,
	line        TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	PRIMARY KEY (station_key, line_key)
);

CREATE TABLE IF NOT EXISTS line_bounds (
	line_key TEXT PRIMARY KEY,
	min_date DATETIME NOT NULL,
	max_date DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS import_runs (
	id             TEXT PRIMARY KEY,
	ridership_path TEXT NOT NULL,
	stations_path  TEXT NOT NULL,
	records        INTEGER NOT NULL,
	stations       INTEGER NOT NULL,
	join_misses    INTEGER NOT NULL,
	imported_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_monthly_line ON monthly_ridership(line_key, year_month);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceDataset(ctx context.Context, req ReplaceRequest) (*model.ImportRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"monthly_ridership", "stations", "line_bounds"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, row := range req.Monthly {
		var lat, lon any
		if row.HasGeometry {
			lat, lon = row.Lat, row.Lon
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO monthly_ridership (year_month, line_key, station_key, riders, lat, lon) VALUES (?, ?, ?, ?, ?, ?)`,
			row.YearMonth, row.LineKey, row.StationKey, row.Riders, lat, lon,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert monthly row")
		}
	}

	for _, st := range req.Stations {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO stations (station_key, line_key, station, line, lat, lon) VALUES (?, ?, ?, ?, ?, ?)`,
			st.StationKey, st.LineKey, st.Station, st.Line, st.Lat(), st.Lon(),
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: insert station")
		}
	}

	for line, bounds := range req.Bounds {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO line_bounds (line_key, min_date, max_date) VALUES (?, ?, ?)`,
			line, bounds.Min, bounds.Max,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert bounds for %s", line)
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
	_, err = tx.ExecContext(ctx,
		`INSERT INTO import_runs (id, ridership_path, stations_path, records, stations, join_misses, imported_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RidershipPath, run.StationsPath, run.Records, run.Stations, run.JoinMisses, run.ImportedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert import run")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return run, nil
}

func (s *SQLiteStore) LastImport(ctx context.Context) (*model.ImportRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ridership_path, stations_path, records, stations, join_misses, imported_at
		 FROM import_runs ORDER BY imported_at DESC LIMIT 1`,
	)

	var run model.ImportRun
	err := row.Scan(&run.ID, &run.RidershipPath, &run.StationsPath, &run.Records, &run.Stations, &run.JoinMisses, &run.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last import")
	}
	return &run, nil
}

func (s *SQLiteStore) ListLines(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT line_key FROM monthly_ridership ORDER BY line_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list lines")
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan line")
		}
		lines = append(lines, line)
	}
	return lines, eris.Wrap(rows.Err(), "sqlite: list lines iterate")
}

func (s *SQLiteStore) LineBounds(ctx context.Context, lineKey string) (*model.DateBounds, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT min_date, max_date FROM line_bounds WHERE line_key = ?`, lineKey,
	)

	var bounds model.DateBounds
	err := row.Scan(&bounds.Min, &bounds.Max)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: bounds for %s", lineKey)
	}
	return &bounds, nil
}

func (s *SQLiteStore) MonthlyByLine(ctx context.Context, lineKey, startYM, endYM string) ([]model.MonthlyStationRidership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year_month, line_key, station_key, riders, lat, lon
		 FROM monthly_ridership
		 WHERE line_key = ? AND year_month >= ? AND year_month <= ?
		 ORDER BY year_month, station_key`,
		lineKey, startYM, endYM,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: monthly by line")
	}
	defer rows.Close()

	var out []model.MonthlyStationRidership
	for rows.Next() {
		var row model.MonthlyStationRidership
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&row.YearMonth, &row.LineKey, &row.StationKey, &row.Riders, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan monthly row")
		}
		if lat.Valid && lon.Valid {
			row.Lat, row.Lon, row.HasGeometry = lat.Float64, lon.Float64, true
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: monthly iterate")
}

func (s *SQLiteStore) Stations(ctx context.Context) ([]model.StationGeometry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT station_key, line_key, station, line, lat, lon FROM stations ORDER BY line_key, station_key`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stations")
	}
	defer rows.Close()

	var out []model.StationGeometry
	for rows.Next() {
		var st model.StationGeometry
		var lat, lon float64
		if err := rows.Scan(&st.StationKey, &st.LineKey, &st.Station, &st.Line, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan station")
		}
		st.Point = geom.NewPointFlat(geom.XY, []float64{lon, lat})
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: stations iterate")
}
