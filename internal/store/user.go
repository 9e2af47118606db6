package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/shacademia/estudy/internal/model"
)

const userColumns = `id, email, name, password_hash, role, active, email_verified,
	verification_code, verification_expiry, reset_token, reset_expiry,
	profile_image, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Active,
		&u.EmailVerified, &u.VerificationCode, &u.VerificationExpiry,
		&u.ResetToken, &u.ResetExpiry, &u.ProfileImage, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. Returns ErrDuplicate if the email is taken.
func (s *Store) CreateUser(u model.User) (int64, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash, role, active, email_verified, profile_image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash, u.Role, u.Active, u.EmailVerified, u.ProfileImage, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		slog.Error("failed to create user", "email", u.Email, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "email", u.Email, "role", u.Role)
	return id, nil
}

// GetUserByEmail returns a user by email, or nil if not found.
func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// GetUserByID returns a user by ID, or nil if not found.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByResetToken returns the user whose stored reset token matches.
func (s *Store) GetUserByResetToken(token string) (*model.User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE reset_token = ?`, token))
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile sets the display name and profile image path.
func (s *Store) UpdateProfile(id int64, name, profileImage string) error {
	_, err := s.db.Exec(
		`UPDATE users SET name = ?, profile_image = ?, updated_at = ? WHERE id = ?`,
		name, profileImage, time.Now(), id,
	)
	return err
}

// UpdateRole sets a user's role.
func (s *Store) UpdateRole(id int64, role model.Role) error {
	_, err := s.db.Exec(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, time.Now(), id)
	return err
}

// ToggleUserActive flips the active flag on a user.
func (s *Store) ToggleUserActive(id int64) error {
	_, err := s.db.Exec(`UPDATE users SET active = NOT active, updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(id int64, hash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, time.Now(), id)
	return err
}

// SetVerificationCode stores a fresh verification code, overwriting any
// prior pending one. Only the stored value is ever accepted.
func (s *Store) SetVerificationCode(id int64, code string, expiry time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET verification_code = ?, verification_expiry = ?, updated_at = ? WHERE id = ?`,
		code, expiry, time.Now(), id,
	)
	return err
}

// ClearVerificationCode removes a pending verification code.
func (s *Store) ClearVerificationCode(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET verification_code = NULL, verification_expiry = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// MarkEmailVerified sets the verified flag and clears the code in one step.
func (s *Store) MarkEmailVerified(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET email_verified = 1, verification_code = NULL, verification_expiry = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// SetResetToken stores a fresh password-reset token, superseding any prior one.
func (s *Store) SetResetToken(id int64, token string, expiry time.Time) error {
	_, err := s.db.Exec(
		`UPDATE users SET reset_token = ?, reset_expiry = ?, updated_at = ? WHERE id = ?`,
		token, expiry, time.Now(), id,
	)
	return err
}

// ClearResetToken removes a pending reset token.
func (s *Store) ClearResetToken(id int64) error {
	_, err := s.db.Exec(
		`UPDATE users SET reset_token = NULL, reset_expiry = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
