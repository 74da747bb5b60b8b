package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/storefront-api/internal/model"
)

// CategoryRepo provides CRUD on the categories table.
type CategoryRepo struct{ DB DBTX }

func NewCategoryRepo(db DBTX) *CategoryRepo { return &CategoryRepo{DB: db} }

// CategoryFilter narrows List. Page is 1-based; Search matches name.
type CategoryFilter struct {
	Page   int
	Limit  int
	Search string
}

const categoryColumns = "id,name,slug,image_url,created_by,updated_by,created_at,updated_at"

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var (
		c                model.Category
		createdBy, updBy sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.ImageURL, &createdBy, &updBy,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	c.CreatedBy, c.UpdatedBy = createdBy.String, updBy.String
	return &c, nil
}

// List returns one page of categories ordered by name and the total
// number of rows matching the filter.
func (r *CategoryRepo) List(ctx context.Context, f CategoryFilter) ([]model.Category, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	where, args := "", []any{}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = " WHERE name LIKE ?"
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories"+where+" ORDER BY name LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// FindByID fetches a category by id.
func (r *CategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	return scanCategory(r.DB.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id=? LIMIT 1", id))
}

// Create inserts c. Duplicate name or slug yields ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (id,name,slug,image_url,created_by) VALUES (?,?,?,?,?)",
		c.ID, c.Name, c.Slug, c.ImageURL, nullable(c.CreatedBy))
	return mapErr(err)
}

// Update overwrites name, slug and image of an existing category.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE categories SET name=?, slug=?, image_url=?, updated_by=? WHERE id=?",
		c.Name, c.Slug, c.ImageURL, nullable(c.UpdatedBy), c.ID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.FindByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one category.
func (r *CategoryRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteMany removes every listed category and returns the number deleted.
func (r *CategoryRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	res, err := r.DB.ExecContext(ctx, "DELETE FROM categories WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
