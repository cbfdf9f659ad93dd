package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, p ProfilePatch) (*User, error)

	// TelegramRecipient returns the user's linked chat and whether Telegram
	// notifications are enabled. chatID is 0 when no chat is linked.
	TelegramRecipient(ctx context.Context, userID string) (chatID int64, enabled bool, err error)

	// UserIDByTelegramChat resolves a linked chat back to its account.
	UserIDByTelegramChat(ctx context.Context, chatID int64) (string, bool, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db, now: time.Now}
}

const userColumns = `id, email, name, password_hash, telegram_chat_id, notify_telegram, notify_email, created_at, updated_at`

// Create inserts a new user account. The ID is generated if empty and the
// email is stored normalised.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)

	now := r.now().UTC().Truncate(time.Second)
	user.CreatedAt = now
	user.UpdatedAt = now
	ts := now.Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, nullInt64(user.TelegramChatID),
		boolToInt(user.NotifyTelegram), boolToInt(user.NotifyEmail), ts, ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by email, compared case-insensitively.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", normalizeEmail(email))
}

// UpdateProfile applies a merge-patch to the user's profile in one statement.
func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id string, p ProfilePatch) (*User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var name sql.NullString
	if p.Name != nil {
		name = sql.NullString{String: *p.Name, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			name = COALESCE(?1, name),
			telegram_chat_id = CASE
				WHEN ?2 IS NULL THEN telegram_chat_id
				WHEN ?2 = 0 THEN NULL
				ELSE ?2 END,
			notify_telegram = COALESCE(?3, notify_telegram),
			notify_email = COALESCE(?4, notify_email),
			updated_at = ?5
		WHERE id = ?6
		RETURNING `+userColumns,
		name, nullInt64(p.TelegramChatID), nullBool(p.NotifyTelegram), nullBool(p.NotifyEmail),
		r.now().UTC().Format(time.RFC3339), id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return u, nil
}

// TelegramRecipient implements notify.RecipientStore.
func (r *SQLiteUserRepository) TelegramRecipient(ctx context.Context, userID string) (int64, bool, error) {
	var (
		chatID  sql.NullInt64
		enabled int
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT telegram_chat_id, notify_telegram FROM users WHERE id = ?", userID,
	).Scan(&chatID, &enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrUserNotFound
		}
		return 0, false, fmt.Errorf("loading telegram recipient: %w", err)
	}
	return chatID.Int64, enabled != 0, nil
}

// UserIDByTelegramChat implements notify.ChatUsers.
func (r *SQLiteUserRepository) UserIDByTelegramChat(ctx context.Context, chatID int64) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE telegram_chat_id = ? ORDER BY created_at LIMIT 1", chatID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolving telegram chat: %w", err)
	}
	return id, true, nil
}

// getUser executes a query and scans a single user result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*User, error) {
	var (
		u                     User
		chatID                sql.NullInt64
		notifyTG, notifyEmail int
		createdAt, updatedAt  string
	)

	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &chatID,
		&notifyTG, &notifyEmail, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if chatID.Valid {
		u.TelegramChatID = &chatID.Int64
	}
	u.NotifyTelegram = notifyTG != 0
	u.NotifyEmail = notifyEmail != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

// Helper functions.

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(boolToInt(*b)), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
