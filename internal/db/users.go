package db

import (
	"context"
	"database/sql"

	"github.com/theLastOfCats/carsaiplay-go-server/internal/model"
)

const userColumns = `id, email, password_hash, email_confirmed_at, confirmation_token_hash, password_reset_token_hash, password_reset_token_expires_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.EmailConfirmedAt,
		&user.ConfirmationTokenHash, &user.PasswordResetTokenHash,
		&user.PasswordResetTokenExpires, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg))
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByResetToken(ctx context.Context, tokenHash string) (*model.User, error) {
	return db.getUser(ctx, "password_reset_token_hash", tokenHash)
}

func (db *DB) GetUserByConfirmationToken(ctx context.Context, tokenHash string) (*model.User, error) {
	return db.getUser(ctx, "confirmation_token_hash", tokenHash)
}

func (db *DB) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// InsertUser creates the account row. confirmedAt is nil until the email
// address has been confirmed.
func (tx *Tx) InsertUser(ctx context.Context, email, passwordHash string, confirmationHash *string, confirmedAt *int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, confirmation_token_hash, email_confirmed_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		email, passwordHash, confirmationHash, confirmedAt, nowMillis())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) ConfirmEmail(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET email_confirmed_at = ?, confirmation_token_hash = NULL WHERE id = ?`,
		nowMillis(), userID)
	return err
}

func (db *DB) SetPasswordResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_reset_token_hash = ?, password_reset_token_expires_at = ? WHERE id = ?`,
		tokenHash, expiresAt, userID)
	return err
}

func (db *DB) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	return err
}

func (tx *Tx) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_reset_token_hash = NULL, password_reset_token_expires_at = NULL WHERE id = ?`,
		passwordHash, userID)
	return err
}

func (db *DB) ClearResetToken(ctx context.Context, userID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_reset_token_hash = NULL, password_reset_token_expires_at = NULL WHERE id = ?`, userID)
	return err
}

func (db *DB) CreateSession(ctx context.Context, s *model.Session) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes one session and reports whether it existed.
func (db *DB) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteUserSessions removes every session of a user and returns their ids.
func (tx *Tx) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	ids, err := collectStrings(ctx, tx, `SELECT id FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteExpiredSessions removes sessions that expired before now and returns their ids.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now int64) ([]string, error) {
	var ids []string
	err := db.WithTx(ctx, func(tx *Tx) error {
		var err error
		ids, err = collectStrings(ctx, tx, `SELECT id FROM sessions WHERE expires_at <= ?`, now)
		if err != nil || len(ids) == 0 {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
		return err
	})
	return ids, err
}

func collectStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func collectInt64s(ctx context.Context, q queryer, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func countRows(ctx context.Context, q queryer, query string, args ...any) (int, error) {
	var n sql.NullInt64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}
