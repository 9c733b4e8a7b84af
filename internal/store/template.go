package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Template is a trained sequence template for a sign.
type Template struct {
	Sign      string
	Frames    json.RawMessage
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateRepository provides CRUD operations for sign templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Save inserts or replaces the template for its sign.
func (r *TemplateRepository) Save(t *Template) error {
	if t.Sign == "" {
		return ErrEmptyKey
	}

	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO sign_templates (sign, frames, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(sign) DO UPDATE SET
			frames = excluded.frames,
			samples = excluded.samples,
			updated_at = excluded.updated_at`,
		t.Sign, string(t.Frames), t.Samples, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// Get retrieves the template for a sign.
func (r *TemplateRepository) Get(sign string) (*Template, error) {
	t := &Template{}
	var frames string

	err := r.db.QueryRow(
		`SELECT sign, frames, samples, created_at, updated_at
		 FROM sign_templates WHERE sign = ?`,
		sign,
	).Scan(&t.Sign, &frames, &t.Samples, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	t.Frames = json.RawMessage(frames)
	return t, nil
}

// List retrieves all templates ordered by sign.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT sign, frames, samples, created_at, updated_at
		 FROM sign_templates ORDER BY sign`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		var frames string

		if err := rows.Scan(&t.Sign, &frames, &t.Samples, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}

		t.Frames = json.RawMessage(frames)
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// Delete removes the template for a sign.
func (r *TemplateRepository) Delete(sign string) error {
	result, err := r.db.Exec(`DELETE FROM sign_templates WHERE sign = ?`, sign)
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
