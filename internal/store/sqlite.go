// Package store persists the most recent computed index series so a
// restarted process can keep serving the last known-good data before
// its first refresh completes.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ua-snap/swti/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// ReplaceSeries swaps the persisted series wholesale for the given run.
// Each pipeline run replaces the prior series; records are never merged.
func (s *Store) ReplaceSeries(records []models.DailyIndexRecord, computedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM daily_index"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear series: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_index (date, station_count, index_value, color)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.Date.Format("2006-01-02"), rec.StationCount, rec.Index, rec.Color); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", rec.Date.Format("2006-01-02"), err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO series_meta (id, computed_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET computed_at = excluded.computed_at
	`, computedAt.UTC()); err != nil {
		tx.Rollback()
		return fmt.Errorf("update series meta: %w", err)
	}

	return tx.Commit()
}

// GetSeries returns the persisted series ordered by date, with its
// computation timestamp. A store with no series yet returns nil records
// and a zero time without error.
func (s *Store) GetSeries() ([]models.DailyIndexRecord, time.Time, error) {
	var computedAt time.Time
	err := s.db.QueryRow("SELECT computed_at FROM series_meta WHERE id = 1").Scan(&computedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read series meta: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT date, station_count, index_value, color
		FROM daily_index
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read series: %w", err)
	}
	defer rows.Close()

	var records []models.DailyIndexRecord
	for rows.Next() {
		var rec models.DailyIndexRecord
		var date string
		if err := rows.Scan(&date, &rec.StationCount, &rec.Index, &rec.Color); err != nil {
			return nil, time.Time{}, err
		}
		rec.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
		}
		records = append(records, rec)
	}
	return records, computedAt, rows.Err()
}
