package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// RoleRepo reads and writes roles and their permission grants.
type RoleRepo struct{ DB DBTX }

func NewRoleRepo(db DBTX) *RoleRepo { return &RoleRepo{DB: db} }

// FindByName looks a role up by its lower-cased name.
func (r *RoleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var (
		role             model.Role
		createdBy, updBy sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,created_by,updated_by,created_at,updated_at FROM roles WHERE name=? LIMIT 1",
		strings.ToLower(strings.TrimSpace(name))).
		Scan(&role.ID, &role.Name, &createdBy, &updBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	role.CreatedBy, role.UpdatedBy = createdBy.String, updBy.String
	return &role, nil
}

// Create inserts a role; names are stored lower-cased. A duplicate name
// yields ErrConflict so callers racing to create the same role can re-read.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = strings.ToLower(strings.TrimSpace(role.Name))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (id,name,created_by,updated_by) VALUES (?,?,?,?)",
		role.ID, role.Name, nullable(role.CreatedBy), nullable(role.UpdatedBy))
	return mapErr(err)
}

// ListWithPermissions returns every role ordered by name with its granted
// permissions attached.
func (r *RoleRepo) ListWithPermissions(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at, r.updated_at, p.id, p.name, p.module
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		ORDER BY r.name, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Role
	index := map[string]int{}
	for rows.Next() {
		var (
			role                         model.Role
			permID, permName, permModule sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt,
			&permID, &permName, &permModule); err != nil {
			return nil, err
		}
		i, ok := index[role.ID]
		if !ok {
			out = append(out, role)
			i = len(out) - 1
			index[role.ID] = i
		}
		if permID.Valid {
			out[i].Permissions = append(out[i].Permissions, model.Permission{
				ID: permID.String, Name: permName.String, Module: permModule.String,
			})
		}
	}
	return out, rows.Err()
}

// FindByID returns one role with its granted permissions.
func (r *RoleRepo) FindByID(ctx context.Context, id string) (*model.Role, error) {
	var (
		role             model.Role
		createdBy, updBy sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,created_by,updated_by,created_at,updated_at FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name, &createdBy, &updBy, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	role.CreatedBy, role.UpdatedBy = createdBy.String, updBy.String

	rows, err := r.DB.QueryContext(ctx, `
		SELECT p.id, p.name, p.module
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ?
		ORDER BY p.name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Module); err != nil {
			return nil, err
		}
		role.Permissions = append(role.Permissions, p)
	}
	return &role, rows.Err()
}

// ListPermissions returns the seeded permission catalogue.
func (r *RoleRepo) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id,name,module FROM permissions ORDER BY module, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Module); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateWithPermissions inserts role and grants it the named permissions
// in one transaction.
func (r *RoleRepo) CreateWithPermissions(ctx context.Context, role *model.Role, perms []string) error {
	return r.inTx(ctx, func(ctx context.Context, tx DBTX) error {
		if err := NewRoleRepo(tx).Create(ctx, role); err != nil {
			return err
		}
		return grant(ctx, tx, role.ID, perms)
	})
}

// UpdateWithPermissions renames role and replaces its grants with perms.
func (r *RoleRepo) UpdateWithPermissions(ctx context.Context, role *model.Role, perms []string) error {
	role.Name = strings.ToLower(strings.TrimSpace(role.Name))
	return r.inTx(ctx, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE roles SET name=?, updated_by=? WHERE id=?",
			role.Name, nullable(role.UpdatedBy), role.ID); err != nil {
			return mapErr(err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", role.ID); err != nil {
			return err
		}
		return grant(ctx, tx, role.ID, perms)
	})
}

// Delete removes one role. Roles still assigned to users yield ErrConflict.
func (r *RoleRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

// DeleteMany removes every listed role and returns the number deleted.
func (r *RoleRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders, args := inList(ids)
	res, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

// inTx runs fn in a transaction unless the repo is already bound to one.
func (r *RoleRepo) inTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	if db, ok := r.DB.(*sql.DB); ok {
		return WithTx(ctx, db, nil, fn)
	}
	return fn(ctx, r.DB)
}

func grant(ctx context.Context, tx DBTX, roleID string, perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	placeholders, args := inList(perms)
	_, err := tx.ExecContext(ctx,
		"INSERT INTO role_permissions (role_id, permission_id) SELECT ?, id FROM permissions WHERE name IN ("+placeholders+")",
		append([]any{roleID}, args...)...)
	return mapErr(err)
}

func inList(vals []string) (string, []any) {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(vals)), ","), args
}
