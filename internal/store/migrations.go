package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Peak scores - highest confidence ever recorded per normalized sign key
		`CREATE TABLE IF NOT EXISTS peak_scores (
			sign TEXT PRIMARY KEY,
			confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 100),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sign samples - recorded feature sequences used to train templates
		`CREATE TABLE IF NOT EXISTS sign_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sign TEXT NOT NULL,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sign templates - averaged sequences built from samples
		`CREATE TABLE IF NOT EXISTS sign_templates (
			sign TEXT PRIMARY KEY,
			frames TEXT NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sign_samples_sign ON sign_samples(sign)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
