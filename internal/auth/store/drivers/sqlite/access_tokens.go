package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
)

type accessTokensRepo struct {
	db dbtx
}

const accessTokenColumns = `id, client_id, identity_id, token_hash, scopes, expires_at, revoked, created_at`

func scanAccessToken(row scanner) (domain.AccessToken, error) {
	var (
		t          domain.AccessToken
		identityID sql.NullString
		scopes     string
	)
	err := row.Scan(&t.ID, &t.ClientID, &identityID, &t.TokenHash, &scopes, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	t.IdentityID = mapNullStringPtr(identityID)
	t.Scopes = splitAndFilter(scopes)
	return t, nil
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (id, client_id, identity_id, token_hash, scopes, expires_at, revoked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ClientID, mapOptionalString(t.IdentityID), t.TokenHash, joinScopes(t.Scopes), t.ExpiresAt, t.Revoked, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accessTokenColumns+` FROM access_tokens WHERE token_hash = ?`, hash)
	return scanAccessToken(row)
}

func (r *accessTokensRepo) RevokeAccessToken(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET revoked = 1 WHERE token_hash = ?`, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accessTokensRepo) RevokeAccessTokenByID(ctx context.Context, id string) error {
	// The row may already be swept; a zero-row update is fine here.
	_, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET revoked = 1 WHERE id = ?`, id)
	return err
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at < ?`, time.Now().UTC())
	return err
}
