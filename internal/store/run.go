package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the outcome of a segmentation run.
type RunStatus string

const (
	// RunStatusOK marks a run that produced an annotated image.
	RunStatusOK RunStatus = "ok"
	// RunStatusFailed marks a run that ended in an error.
	RunStatusFailed RunStatus = "failed"
)

// Run represents one segmented image stored in the database.
type Run struct {
	ID       string
	Filename string
	Width    int
	Height   int
	Hands    int
	// PalmSteps is the number of palm walk steps summed over all hands.
	PalmSteps  int
	DurationMS int64
	Status     RunStatus
	Error      string
	Zones      []Zone
	CreatedAt  time.Time
}

// Zone is the intensity of one outlined zone of a run.
type Zone struct {
	Name   string
	Area   float64
	Pixels int
	Mean   float64
}

// RunRepository provides storage operations for runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a run and its zones in a single transaction.
func (r *RunRepository) Create(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, filename, width, height, hands, palm_steps, duration_ms, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Filename, run.Width, run.Height, run.Hands, run.PalmSteps,
		run.DurationMS, string(run.Status), run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, z := range run.Zones {
		_, err := tx.Exec(
			`INSERT INTO run_zones (run_id, zone_index, name, area, pixels, mean)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, i, z.Name, z.Area, z.Pixels, z.Mean,
		)
		if err != nil {
			return fmt.Errorf("insert zone %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetByID retrieves a run and its zones by ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	run := &Run{}
	var status string

	err := r.db.QueryRow(
		`SELECT id, filename, width, height, hands, palm_steps, duration_ms, status, error, created_at
		 FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Filename, &run.Width, &run.Height, &run.Hands, &run.PalmSteps,
		&run.DurationMS, &status, &run.Error, &run.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	run.Status = RunStatus(status)

	zones, err := r.zones(id)
	if err != nil {
		return nil, err
	}
	run.Zones = zones

	return run, nil
}

// List retrieves the most recent runs, newest first. Zones are not loaded.
// A limit of zero or less returns every run.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	query := `SELECT id, filename, width, height, hands, palm_steps, duration_ms, status, error, created_at
		 FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var status string

		err := rows.Scan(&run.ID, &run.Filename, &run.Width, &run.Height, &run.Hands, &run.PalmSteps,
			&run.DurationMS, &status, &run.Error, &run.CreatedAt)
		if err != nil {
			return nil, err
		}

		run.Status = RunStatus(status)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Delete removes a run and its zones.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *RunRepository) zones(runID string) ([]Zone, error) {
	rows, err := r.db.Query(
		`SELECT name, area, pixels, mean FROM run_zones WHERE run_id = ? ORDER BY zone_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		var z Zone
		if err := rows.Scan(&z.Name, &z.Area, &z.Pixels, &z.Mean); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}

	return zones, rows.Err()
}
