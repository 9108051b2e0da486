// Package jobstore persists tiling jobs and per-tile outcomes to sqlite, so
// long campaigns can be resumed and failed tiles re-processed without
// recomputing what already succeeded.
package jobstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/treeline-data/forestscan/internal/tiling"
)

// Store wraps the sqlite handle. All methods are safe for concurrent use;
// tile workers record their outcomes directly.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path. Call MigrateUp before
// first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open job store %s: %w", path, err)
	}
	// Serialise writers; the tile workers insert concurrently.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("job store pragma: %w", err)
	}
	return &Store{db}, nil
}

// StartJob records a new job row before any tile work begins.
func (s *Store) StartJob(report *tiling.JobReport, tileCount int) error {
	_, err := s.Exec(`
		INSERT INTO forest_jobs
			(job_id, metric, min_x, max_x, min_y, max_y, tile_count, started_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.JobID, string(report.Metric),
		report.Bounds.MinX, report.Bounds.MaxX, report.Bounds.MinY, report.Bounds.MaxY,
		tileCount, report.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("start job %s: %w", report.JobID, err)
	}
	return nil
}

// RecordTile upserts one tile outcome. Re-processing a failed tile overwrites
// its previous row.
func (s *Store) RecordTile(jobID string, res tiling.TileResult) error {
	var errText sql.NullString
	if res.Err != nil {
		errText = sql.NullString{String: res.Err.Error(), Valid: true}
	}
	_, err := s.Exec(`
		INSERT OR REPLACE INTO forest_tiles
			(job_id, tile_col, tile_row, status, path, valid_cells, error, recorded_unix_nanos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, res.Spec.Col, res.Spec.Row, string(res.Status),
		res.Path, res.ValidCells, errText, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record tile %s of job %s: %w", res.Spec.Name(), jobID, err)
	}
	return nil
}

// FinishJob stamps the job row with its completion time and outcome tallies.
func (s *Store) FinishJob(report *tiling.JobReport) error {
	written, empty, failed := report.Counts()
	_, err := s.Exec(`
		UPDATE forest_jobs
		SET finished_unix_nanos = ?, written_count = ?, empty_count = ?, failed_count = ?
		WHERE job_id = ?`,
		report.FinishedAt.UnixNano(), written, empty, failed, report.JobID)
	if err != nil {
		return fmt.Errorf("finish job %s: %w", report.JobID, err)
	}
	return nil
}

// JobRow is one persisted job summary.
type JobRow struct {
	JobID        string
	Metric       string
	MinX, MaxX   float64
	MinY, MaxY   float64
	TileCount    int
	StartedAt    time.Time
	FinishedAt   *time.Time
	WrittenCount int
	EmptyCount   int
	FailedCount  int
}

// TileRow is one persisted tile outcome.
type TileRow struct {
	JobID      string
	Col, Row   int
	Status     string
	Path       string
	ValidCells int
	Error      string
}

// Job loads one job summary by identifier.
func (s *Store) Job(jobID string) (*JobRow, error) {
	row := s.QueryRow(`
		SELECT job_id, metric, min_x, max_x, min_y, max_y, tile_count,
		       started_unix_nanos, finished_unix_nanos,
		       written_count, empty_count, failed_count
		FROM forest_jobs WHERE job_id = ?`, jobID)
	var j JobRow
	var started int64
	var finished sql.NullInt64
	err := row.Scan(&j.JobID, &j.Metric, &j.MinX, &j.MaxX, &j.MinY, &j.MaxY,
		&j.TileCount, &started, &finished,
		&j.WrittenCount, &j.EmptyCount, &j.FailedCount)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	j.StartedAt = time.Unix(0, started)
	if finished.Valid {
		t := time.Unix(0, finished.Int64)
		j.FinishedAt = &t
	}
	return &j, nil
}

// Tiles loads every tile outcome of a job, ordered row-major like the plan.
func (s *Store) Tiles(jobID string) ([]TileRow, error) {
	return s.queryTiles(`
		SELECT job_id, tile_col, tile_row, status, path, valid_cells, error
		FROM forest_tiles WHERE job_id = ?
		ORDER BY tile_row, tile_col`, jobID)
}

// FailedTiles loads only the failed tiles of a job, for re-submission.
func (s *Store) FailedTiles(jobID string) ([]TileRow, error) {
	return s.queryTiles(`
		SELECT job_id, tile_col, tile_row, status, path, valid_cells, error
		FROM forest_tiles WHERE job_id = ? AND status = 'failed'
		ORDER BY tile_row, tile_col`, jobID)
}

func (s *Store) queryTiles(query, jobID string) ([]TileRow, error) {
	rows, err := s.Query(query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query tiles of job %s: %w", jobID, err)
	}
	defer rows.Close()
	var out []TileRow
	for rows.Next() {
		var t TileRow
		var path, errText sql.NullString
		if err := rows.Scan(&t.JobID, &t.Col, &t.Row, &t.Status, &path, &t.ValidCells, &errText); err != nil {
			return nil, fmt.Errorf("scan tile row: %w", err)
		}
		t.Path = path.String
		t.Error = errText.String
		out = append(out, t)
	}
	return out, rows.Err()
}
