package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// UserRepo reads and writes the users table.
type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

// userSelect joins the role name so that tokens can be minted from a
// single lookup.
const userSelect = `SELECT u.id,u.username,u.email,u.password_hash,u.role_id,u.is_verified,
	u.auth_provider,u.image_url,u.created_at,u.updated_at,r.name
	FROM users u LEFT JOIN roles r ON r.id = u.role_id`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u        model.User
		roleName sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID,
		&u.IsVerified, &u.AuthProvider, &u.ImageURL, &u.CreatedAt, &u.UpdatedAt, &roleName)
	if err != nil {
		return nil, mapErr(err)
	}
	if roleName.Valid {
		u.Role = &model.Role{ID: u.RoleID, Name: roleName.String}
	}
	return &u, nil
}

// Create inserts u. The email is normalized before insert; a duplicate
// username or email yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.AuthProvider == "" {
		u.AuthProvider = model.AuthProviderLocal
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,username,email,password_hash,role_id,is_verified,auth_provider,image_url) VALUES (?,?,?,?,?,?,?,?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.RoleID, u.IsVerified, u.AuthProvider, u.ImageURL)
	return mapErr(err)
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE u.id=? LIMIT 1", id))
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE u.email=? LIMIT 1", email))
}

// FindByUsername fetches a user by username.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		userSelect+" WHERE u.username=? LIMIT 1", username))
}

// MarkVerified flags the user's email as confirmed.
func (r *UserRepo) MarkVerified(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_verified=TRUE WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value did not change,
		// so confirm the row exists before reporting a miss.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// FindWithPermissions loads the user together with its role and the
// role's permissions. Role is nil when the user's role row is missing.
func (r *UserRepo) FindWithPermissions(ctx context.Context, id string) (*model.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.role_id, u.is_verified,
		       r.id, r.name, p.id, p.name, p.module
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var u *model.User
	for rows.Next() {
		var (
			cur                          model.User
			roleID, roleName             sql.NullString
			permID, permName, permModule sql.NullString
		)
		if err := rows.Scan(&cur.ID, &cur.Username, &cur.Email, &cur.RoleID, &cur.IsVerified,
			&roleID, &roleName, &permID, &permName, &permModule); err != nil {
			return nil, err
		}
		if u == nil {
			u = &cur
			if roleID.Valid {
				u.Role = &model.Role{ID: roleID.String, Name: roleName.String}
			}
		}
		if u.Role != nil && permID.Valid {
			u.Role.Permissions = append(u.Role.Permissions, model.Permission{
				ID: permID.String, Name: permName.String, Module: permModule.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}
