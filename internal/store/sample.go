package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample represents a recorded sign sample stored in the database.
type Sample struct {
	ID          int64           `json:"id"`
	Sign        string          `json:"sign"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides CRUD operations for sign samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create appends samples for a sign in a single transaction and returns the
// total number of samples stored for it.
func (r *SampleRepository) Create(sign string, samples []json.RawMessage) (int, error) {
	if sign == "" {
		return 0, ErrEmptyKey
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(sample_index) + 1, 0) FROM sign_samples WHERE sign = ?`, sign,
	).Scan(&next); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_samples (sign, sample_index, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now()
	for i, data := range samples {
		if _, err := stmt.Exec(sign, next+i, string(data), now); err != nil {
			return 0, err
		}
	}

	var total int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM sign_samples WHERE sign = ?`, sign).Scan(&total); err != nil {
		return 0, err
	}

	return total, tx.Commit()
}

// GetBySign retrieves all samples for a given sign.
func (r *SampleRepository) GetBySign(sign string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, sign, sample_index, data, created_at
		 FROM sign_samples
		 WHERE sign = ?
		 ORDER BY sample_index`,
		sign,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.Sign, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Count returns the number of samples stored for a sign.
func (r *SampleRepository) Count(sign string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM sign_samples WHERE sign = ?`, sign).Scan(&n)
	return n, err
}

// DeleteBySign removes all samples for a given sign.
func (r *SampleRepository) DeleteBySign(sign string) error {
	_, err := r.db.Exec(`DELETE FROM sign_samples WHERE sign = ?`, sign)
	return err
}
