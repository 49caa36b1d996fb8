//
// Package store persists calibration runs so reports and fit tables
// can be fetched again after the request that produced them.
//
package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var ErrRunNotFound = errors.New("calibration run not found")

// Run is one stored calibration with its summary columns and the
// serialized report.
type Run struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Observations int       `json:"observations"`
	Students     int       `json:"students"`
	Items        int       `json:"items"`
	Iterations   int       `json:"iterations"`
	Converged    bool      `json:"converged"`
	Reliability  float64   `json:"reliability"`
	Report       []byte    `json:"-"`
}

type Store struct {
	db     *sql.DB
	driver Driver
}

//
// Open opens the database and ensures the schema exists. An empty dsn
// selects a default: an in-memory shared sqlite database, or a local
// postgres.
//
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:otfcalibrate?mode=memory&cache=shared&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/otfcalibrate?sslmode=disable"
		}
	default:
		return nil, errors.Errorf("unsupported store driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open run store")
	}
	if driver == DriverSQLite {
		// a single connection keeps an in-memory database alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cannot reach run store")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cannot create run store schema")
	}

	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Driver() Driver {
	return s.driver
}

// Save inserts a run; ids are unique.
func (s *Store) Save(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO calibration_runs
		  (id, created_at, observations, students, items, iterations, converged, reliability, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.CreatedAt.UnixNano(), r.Observations, r.Students, r.Items,
		r.Iterations, boolInt(r.Converged), r.Reliability, string(r.Report))
	return errors.Wrapf(err, "cannot save run %s", r.ID)
}

func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, created_at, observations, students, items, iterations, converged, reliability, report_json
		FROM calibration_runs WHERE id = ?`), id)

	var (
		r         Run
		created   int64
		converged int
		report    string
	)
	err := row.Scan(&r.ID, &created, &r.Observations, &r.Students, &r.Items,
		&r.Iterations, &converged, &r.Reliability, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrRunNotFound, "id %s", id)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "cannot load run %s", id)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.Converged = converged != 0
	r.Report = []byte(report)
	return r, nil
}

// List returns run summaries, newest first, without their reports.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, created_at, observations, students, items, iterations, converged, reliability
		FROM calibration_runs ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.Wrap(err, "cannot list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r         Run
			created   int64
			converged int
		)
		if err := rows.Scan(&r.ID, &created, &r.Observations, &r.Students, &r.Items,
			&r.Iterations, &converged, &r.Reliability); err != nil {
			return nil, errors.Wrap(err, "cannot read run row")
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.Converged = converged != 0
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "cannot list runs")
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	out := make([]byte, 0, len(q)+8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			out = append(out, '$')
			out = append(out, strconv.Itoa(n)...)
			continue
		}
		out = append(out, q[i])
	}
	return string(out)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// same DDL serves both drivers
const schema = `
CREATE TABLE IF NOT EXISTS calibration_runs (
  id TEXT PRIMARY KEY,
  created_at BIGINT NOT NULL,
  observations INTEGER NOT NULL,
  students INTEGER NOT NULL,
  items INTEGER NOT NULL,
  iterations INTEGER NOT NULL,
  converged INTEGER NOT NULL,
  reliability DOUBLE PRECISION NOT NULL,
  report_json TEXT NOT NULL
);
`
