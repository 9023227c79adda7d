package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
)

type authorizationCodesRepo struct {
	db dbtx
}

const authorizationCodeColumns = `id, identity_id, client_id, code_hash, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, used_at, created_at`

func scanAuthorizationCode(row scanner) (domain.AuthorizationCode, error) {
	var (
		c      domain.AuthorizationCode
		scopes string
		usedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &c.IdentityID, &c.ClientID, &c.CodeHash, &c.RedirectURI, &scopes,
		&c.CodeChallenge, &c.CodeChallengeMethod, &c.ExpiresAt, &usedAt, &c.CreatedAt)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.Scopes = splitAndFilter(scopes)
	c.UsedAt = mapNullTimePtr(usedAt)
	return c, nil
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorization_codes (id, identity_id, client_id, code_hash, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		code.ID, code.IdentityID, code.ClientID, code.CodeHash, code.RedirectURI,
		joinScopes(code.Scopes), code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt, code.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+authorizationCodeColumns+` FROM authorization_codes WHERE code_hash = ?`, hash)
	return scanAuthorizationCode(row)
}

// MarkAuthorizationCodeUsed is conditional on used_at still being NULL so a
// code can only ever be redeemed once, even under concurrent redemption.
func (r *authorizationCodesRepo) MarkAuthorizationCodeUsed(ctx context.Context, id string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		usedAt, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM authorization_codes WHERE expires_at < ?`, time.Now().UTC())
	return err
}
