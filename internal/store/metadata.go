package store

import "database/sql"

// GetImportedFileHash returns the recorded hash for a previously imported
// questions file. Empty string means the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT hash FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash records that a questions file was imported.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, hash) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = ?`,
		path, hash, hash,
	)
	return err
}
