package sqlite

import (
	"database/sql"

	"github.com/hivework/taskhive/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) store.Tx {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Identities() store.Identities                     { return &identitiesRepo{db: t.tx} }
func (t *txStore) Clients() store.Clients                           { return &clientsRepo{db: t.tx} }
func (t *txStore) AccessTokens() store.AccessTokens                 { return &accessTokensRepo{db: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens               { return &refreshTokensRepo{db: t.tx} }
func (t *txStore) AuthorizationCodes() store.AuthorizationCodes     { return &authorizationCodesRepo{db: t.tx} }
func (t *txStore) DeviceAuthorizations() store.DeviceAuthorizations { return &deviceAuthsRepo{db: t.tx} }
func (t *txStore) Projects() store.Projects                         { return &projectsRepo{db: t.tx} }
func (t *txStore) ProjectAccess() store.ProjectAccess               { return &projectAccessRepo{db: t.tx} }
