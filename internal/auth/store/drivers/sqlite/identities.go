package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
)

type identitiesRepo struct {
	db dbtx
}

const identityColumns = `id, username, display_name, password_hash, kind, is_admin, is_active, created_at, updated_at`

func scanIdentity(row scanner) (domain.Identity, error) {
	var (
		i            domain.Identity
		passwordHash sql.NullString
		kind         string
	)
	err := row.Scan(&i.ID, &i.Username, &i.DisplayName, &passwordHash, &kind, &i.Admin, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.PasswordHash = mapNullString(passwordHash)
	i.Kind = domain.IdentityKind(kind)
	return i, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *identitiesRepo) GetIdentityByUsername(ctx context.Context, username string) (domain.Identity, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE username = ?`, username)
	return scanIdentity(row)
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (id, username, display_name, password_hash, kind, is_admin, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Username, i.DisplayName, mapStringNull(i.PasswordHash), string(i.Kind), i.Admin, i.Active, i.CreatedAt, i.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) SetIdentityActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE identities SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *identitiesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}
