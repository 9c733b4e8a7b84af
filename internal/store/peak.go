package store

import (
	"database/sql"
	"errors"
	"time"
)

// PeakScore is the highest confidence observed for a sign.
type PeakScore struct {
	Sign       string    `json:"sign"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PeakScoreRepository persists per-sign peak scores. Keys are normalized
// sign identifiers; confidences are percentages.
type PeakScoreRepository struct {
	db *sql.DB
}

// PeakScores returns the peak score repository for this store.
func (s *Store) PeakScores() *PeakScoreRepository {
	return &PeakScoreRepository{db: s.db}
}

// Get returns the stored peak for sign, or ErrNotFound.
func (r *PeakScoreRepository) Get(sign string) (float64, error) {
	if sign == "" {
		return 0, ErrEmptyKey
	}

	var v float64
	err := r.db.QueryRow(`SELECT confidence FROM peak_scores WHERE sign = ?`, sign).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return v, nil
}

// Max raises the stored peak for sign to v if v is higher, creating the
// record if needed, and returns the stored value. The read and write happen
// in one statement so concurrent callers cannot lose an update.
func (r *PeakScoreRepository) Max(sign string, v float64) (float64, error) {
	if sign == "" {
		return 0, ErrEmptyKey
	}

	now := time.Now()
	var stored float64
	err := r.db.QueryRow(
		`INSERT INTO peak_scores (sign, confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(sign) DO UPDATE SET
			confidence = MAX(confidence, excluded.confidence),
			updated_at = CASE WHEN excluded.confidence > confidence
				THEN excluded.updated_at ELSE updated_at END
		 RETURNING confidence`,
		sign, v, now, now,
	).Scan(&stored)
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// Set overwrites the stored peak for sign.
func (r *PeakScoreRepository) Set(sign string, v float64) error {
	if sign == "" {
		return ErrEmptyKey
	}

	now := time.Now()
	_, err := r.db.Exec(
		`INSERT INTO peak_scores (sign, confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(sign) DO UPDATE SET
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		sign, v, now, now,
	)
	return err
}

// Delete removes the record for sign.
func (r *PeakScoreRepository) Delete(sign string) error {
	result, err := r.db.Exec(`DELETE FROM peak_scores WHERE sign = ?`, sign)
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

// List returns all peak scores ordered by sign.
func (r *PeakScoreRepository) List() ([]PeakScore, error) {
	rows, err := r.db.Query(`SELECT sign, confidence, updated_at FROM peak_scores ORDER BY sign`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []PeakScore
	for rows.Next() {
		var p PeakScore
		if err := rows.Scan(&p.Sign, &p.Confidence, &p.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return scores, nil
}
