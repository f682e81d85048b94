// Package journal records per-cycle planning diagnostics in a sqlite
// database and serves them on the debug mux.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Journal is a sqlite-backed log of planning cycles. Every Journal has a run
// id that tags the cycles it records.
type Journal struct {
	*sql.DB
	runID string
}

// Cycle is one fetch, update and replan round.
type Cycle struct {
	ID            int64         `json:"id"`
	RunID         string        `json:"run_id"`
	Seq           int           `json:"seq"`
	StartedAt     time.Time     `json:"started_at"`
	Communication time.Duration `json:"communication_ns"`
	Init          time.Duration `json:"init_ns"`
	Update        time.Duration `json:"update_ns"`
	Planning      time.Duration `json:"planning_ns"`
	Status        string        `json:"status"`
	PathLen       int           `json:"path_len"`
	SolutionCost  int           `json:"solution_cost"`
	Epsilon       float64       `json:"epsilon"`
	Expansions    int           `json:"expansions"`
	DirtyCells    int           `json:"dirty_cells"`
	Reinitialized bool          `json:"reinitialized"`
}

// Open opens (creating if needed) the journal at path and migrates it to the
// latest schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure journal: %w", err)
	}
	j := &Journal{DB: db, runID: uuid.NewString()}
	if err := j.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// RunID identifies this process's cycles.
func (j *Journal) RunID() string { return j.runID }

// MigrateUp runs all pending migrations.
func (j *Journal) MigrateUp() error {
	m, err := j.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back the most recent migration.
func (j *Journal) MigrateDown() error {
	m, err := j.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the schema version, or 0 before any migration.
func (j *Journal) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := j.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (j *Journal) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(j.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// RecordCycle stores c under this journal's run id unless c names its own,
// and returns the row id.
func (j *Journal) RecordCycle(ctx context.Context, c Cycle) (int64, error) {
	if c.RunID == "" {
		c.RunID = j.runID
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now()
	}
	res, err := j.ExecContext(ctx, `
		INSERT INTO cycles (
			run_id, seq, started_at,
			communication_us, init_us, update_us, planning_us,
			status, path_len, solution_cost, epsilon, expansions, dirty_cells, reinitialized
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.Seq, c.StartedAt.UnixMicro(),
		c.Communication.Microseconds(), c.Init.Microseconds(), c.Update.Microseconds(), c.Planning.Microseconds(),
		c.Status, c.PathLen, c.SolutionCost, c.Epsilon, c.Expansions, c.DirtyCells, c.Reinitialized,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record cycle: %w", err)
	}
	return res.LastInsertId()
}

// RecentCycles returns up to limit cycles, newest first.
func (j *Journal) RecentCycles(ctx context.Context, limit int) ([]Cycle, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.QueryContext(ctx, `
		SELECT id, run_id, seq, started_at,
			communication_us, init_us, update_us, planning_us,
			status, path_len, solution_cost, epsilon, expansions, dirty_cells, reinitialized
		FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var (
			c                             Cycle
			startedAt                     int64
			commUs, initUs, updUs, planUs int64
		)
		if err := rows.Scan(&c.ID, &c.RunID, &c.Seq, &startedAt,
			&commUs, &initUs, &updUs, &planUs,
			&c.Status, &c.PathLen, &c.SolutionCost, &c.Epsilon, &c.Expansions, &c.DirtyCells, &c.Reinitialized); err != nil {
			return nil, err
		}
		c.StartedAt = time.UnixMicro(startedAt)
		c.Communication = time.Duration(commUs) * time.Microsecond
		c.Init = time.Duration(initUs) * time.Microsecond
		c.Update = time.Duration(updUs) * time.Microsecond
		c.Planning = time.Duration(planUs) * time.Microsecond
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}
