package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/hivework/taskhive/internal/auth/domain"
)

type deviceAuthsRepo struct {
	db dbtx
}

const deviceAuthColumns = `id, client_id, device_code_hash, user_code, scopes, status, poll_interval, identity_id, expires_at, last_polled_at, consumed_at, created_at, updated_at`

func scanDeviceAuthorization(row scanner) (domain.DeviceAuthorization, error) {
	var (
		d            domain.DeviceAuthorization
		scopes       string
		status       string
		identityID   sql.NullString
		lastPolledAt sql.NullTime
		consumedAt   sql.NullTime
	)
	err := row.Scan(&d.ID, &d.ClientID, &d.DeviceCodeHash, &d.UserCode, &scopes, &status,
		&d.PollInterval, &identityID, &d.ExpiresAt, &lastPolledAt, &consumedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.DeviceAuthorization{}, mapNotFound(err)
	}
	d.Scopes = splitAndFilter(scopes)
	d.Status = domain.DeviceStatus(status)
	d.IdentityID = mapNullStringPtr(identityID)
	d.LastPolledAt = mapNullTimePtr(lastPolledAt)
	d.ConsumedAt = mapNullTimePtr(consumedAt)
	return d, nil
}

func (r *deviceAuthsRepo) CreateDeviceAuthorization(ctx context.Context, d domain.DeviceAuthorization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_authorizations (id, client_id, device_code_hash, user_code, scopes, status, poll_interval, identity_id, expires_at, last_polled_at, consumed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
		d.ID, d.ClientID, d.DeviceCodeHash, d.UserCode, joinScopes(d.Scopes), string(d.Status),
		d.PollInterval, mapOptionalString(d.IdentityID), d.ExpiresAt, d.CreatedAt, d.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *deviceAuthsRepo) GetDeviceAuthorizationByDeviceCodeHash(ctx context.Context, hash string) (domain.DeviceAuthorization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceAuthColumns+` FROM device_authorizations WHERE device_code_hash = ?`, hash)
	return scanDeviceAuthorization(row)
}

func (r *deviceAuthsRepo) GetDeviceAuthorizationByUserCode(ctx context.Context, userCode string) (domain.DeviceAuthorization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceAuthColumns+` FROM device_authorizations WHERE user_code = ?`, userCode)
	return scanDeviceAuthorization(row)
}

// DecideDeviceAuthorization is conditional on status = 'pending' so a record
// can only be decided once; a second approve or deny gets ErrNotFound.
func (r *deviceAuthsRepo) DecideDeviceAuthorization(ctx context.Context, id string, status domain.DeviceStatus, identityID *string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE device_authorizations
		SET status = ?, identity_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(status), mapOptionalString(identityID), at, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *deviceAuthsRepo) TouchDeviceAuthorizationPoll(ctx context.Context, id string, at time.Time, interval int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE device_authorizations
		SET last_polled_at = ?, poll_interval = ?, updated_at = ?
		WHERE id = ?`,
		at, interval, at, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConsumeDeviceAuthorization is conditional on an approved, unconsumed record
// so exactly one concurrent poller can mint tokens for the approval.
func (r *deviceAuthsRepo) ConsumeDeviceAuthorization(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE device_authorizations
		SET consumed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'approved' AND consumed_at IS NULL`,
		at, at, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *deviceAuthsRepo) DeleteExpiredDeviceAuthorizations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_authorizations WHERE expires_at < ?`, time.Now().UTC())
	return err
}
