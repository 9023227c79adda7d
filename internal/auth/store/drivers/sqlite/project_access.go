package sqlite

import (
	"context"

	"github.com/hivework/taskhive/internal/auth/domain"
)

type projectAccessRepo struct {
	db dbtx
}

const projectAccessColumns = `id, project_id, identity_id, role, created_at, updated_at`

func scanProjectAccess(row scanner) (domain.ProjectAccess, error) {
	var (
		a    domain.ProjectAccess
		role string
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &a.IdentityID, &role, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.ProjectAccess{}, mapNotFound(err)
	}
	a.Role = domain.ProjectRole(role)
	return a, nil
}

// UpsertProjectAccess relies on the UNIQUE (project_id, identity_id) index;
// regranting replaces the role instead of accumulating rows.
func (r *projectAccessRepo) UpsertProjectAccess(ctx context.Context, a domain.ProjectAccess) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_access (id, project_id, identity_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, identity_id)
		DO UPDATE SET role = excluded.role, updated_at = excluded.updated_at`,
		a.ID, a.ProjectID, a.IdentityID, string(a.Role), a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *projectAccessRepo) GetProjectAccess(ctx context.Context, projectID, identityID string) (domain.ProjectAccess, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectAccessColumns+` FROM project_access WHERE project_id = ? AND identity_id = ?`,
		projectID, identityID,
	)
	return scanProjectAccess(row)
}

func (r *projectAccessRepo) ListProjectAccess(ctx context.Context, projectID string) ([]domain.ProjectAccess, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectAccessColumns+` FROM project_access WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProjectAccess
	for rows.Next() {
		a, err := scanProjectAccess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *projectAccessRepo) DeleteProjectAccess(ctx context.Context, projectID, identityID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM project_access WHERE project_id = ? AND identity_id = ?`,
		projectID, identityID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}
