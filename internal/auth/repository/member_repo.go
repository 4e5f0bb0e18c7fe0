package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/enjoysite/friendmap/internal/auth/domain"
)

const membersSchema = `
CREATE TABLE IF NOT EXISTS members (
	uid           TEXT PRIMARY KEY,
	display_name  TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	last_login_at TIMESTAMPTZ
)`

type MemberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// EnsureSchema creates the members table when missing.
func (r *MemberRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, membersSchema)
	return err
}

// GetByUID retrieves a member by principal id
func (r *MemberRepository) GetByUID(ctx context.Context, uid string) (*domain.Member, error) {
	query := `
		SELECT uid, display_name, created_at, updated_at, last_login_at
		FROM members
		WHERE uid = $1
	`

	var m domain.Member
	var lastLoginAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&m.UID,
		&m.DisplayName,
		&m.CreatedAt,
		&m.UpdatedAt,
		&lastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid {
		m.LastLoginAt = &lastLoginAt.Time
	}

	return &m, nil
}

// Upsert records a principal that passed the name check and stamps the login.
func (r *MemberRepository) Upsert(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (uid, display_name, last_login_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (uid) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    last_login_at = NOW(),
		    updated_at = NOW()
		RETURNING created_at, updated_at, last_login_at
	`

	var lastLoginAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, m.UID, m.DisplayName).Scan(
		&m.CreatedAt,
		&m.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return err
	}

	if lastLoginAt.Valid {
		m.LastLoginAt = &lastLoginAt.Time
	}

	return nil
}

// List returns every member, most recent login first.
func (r *MemberRepository) List(ctx context.Context) ([]domain.Member, error) {
	query := `
		SELECT uid, display_name, created_at, updated_at, last_login_at
		FROM members
		ORDER BY last_login_at DESC NULLS LAST, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []domain.Member{}
	for rows.Next() {
		var m domain.Member
		var lastLoginAt sql.NullTime
		if err := rows.Scan(&m.UID, &m.DisplayName, &m.CreatedAt, &m.UpdatedAt, &lastLoginAt); err != nil {
			return nil, err
		}
		if lastLoginAt.Valid {
			m.LastLoginAt = &lastLoginAt.Time
		}
		members = append(members, m)
	}

	return members, rows.Err()
}
