package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/response"
	"github.com/iliyamo/storefront-api/internal/utils"
)

type users map[string]*model.User

func (u users) FindByID(_ context.Context, id string) (*model.User, error) {
	if v, ok := u[id]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (u users) FindWithPermissions(ctx context.Context, id string) (*model.User, error) {
	return u.FindByID(ctx, id)
}

type sessions map[string]*model.Session

func (s sessions) FindByID(_ context.Context, id string) (*model.Session, error) {
	if v, ok := s[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

type categories struct {
	items   map[string]model.Category
	deletes int
}

func (f *categories) List(context.Context, repository.CategoryFilter) ([]model.Category, int, error) {
	out := make([]model.Category, 0, len(f.items))
	for _, c := range f.items {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (f *categories) FindByID(_ context.Context, id string) (*model.Category, error) {
	if c, ok := f.items[id]; ok {
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *categories) Create(_ context.Context, c *model.Category) error {
	f.items[c.ID] = *c
	return nil
}

func (f *categories) Update(_ context.Context, c *model.Category) error {
	f.items[c.ID] = *c
	return nil
}

func (f *categories) Delete(_ context.Context, id string) error {
	f.deletes++
	delete(f.items, id)
	return nil
}

func (f *categories) DeleteMany(_ context.Context, ids []string) (int64, error) {
	f.deletes++
	for _, id := range ids {
		delete(f.items, id)
	}
	return int64(len(ids)), nil
}

type roles struct {
	items   map[string]model.Role
	deletes int
}

func (r *roles) ListWithPermissions(context.Context) ([]model.Role, error) {
	out := make([]model.Role, 0, len(r.items))
	for _, v := range r.items {
		out = append(out, v)
	}
	return out, nil
}

func (r *roles) ListPermissions(context.Context) ([]model.Permission, error) {
	return []model.Permission{{ID: "p1", Name: model.PermViewRole, Module: "role"}}, nil
}

func (r *roles) FindByID(_ context.Context, id string) (*model.Role, error) {
	if v, ok := r.items[id]; ok {
		return &v, nil
	}
	return nil, repository.ErrNotFound
}

func (r *roles) CreateWithPermissions(_ context.Context, role *model.Role, _ []string) error {
	r.items[role.ID] = *role
	return nil
}

func (r *roles) UpdateWithPermissions(_ context.Context, role *model.Role, _ []string) error {
	r.items[role.ID] = *role
	return nil
}

func (r *roles) Delete(_ context.Context, id string) error {
	r.deletes++
	delete(r.items, id)
	return nil
}

func (r *roles) DeleteMany(_ context.Context, ids []string) (int64, error) {
	r.deletes++
	for _, id := range ids {
		delete(r.items, id)
	}
	return int64(len(ids)), nil
}

type stack struct {
	e     *echo.Echo
	cats  *categories
	roles *roles
	codec *utils.TokenCodec
}

const ua = "router-test"

func newStack(t *testing.T) *stack {
	t.Helper()
	editor := &model.Role{Name: "editor", Permissions: []model.Permission{
		{Name: model.PermCreateCategory}, {Name: model.PermUpdateCategory},
	}}
	admin := &model.Role{Name: "admin", Permissions: []model.Permission{
		{Name: model.PermDeleteCategory}, {Name: model.PermViewRole},
		{Name: model.PermCreateRole}, {Name: model.PermUpdateRole}, {Name: model.PermDeleteRole},
	}}
	us := users{
		"editor": {ID: "editor", Email: "e@x.com", Username: "ed", Role: editor, IsVerified: true},
		"admin":  {ID: "admin", Email: "a@x.com", Username: "ad", Role: admin, IsVerified: true},
	}
	hash := utils.DeviceHash("192.0.2.1", ua)
	rt := "rt"
	ss := sessions{
		"s-editor": {ID: "s-editor", UserID: "editor", DeviceHash: hash, RefreshToken: &rt, TokenVersion: 1},
		"s-admin":  {ID: "s-admin", UserID: "admin", DeviceHash: hash, RefreshToken: &rt, TokenVersion: 1},
	}
	cats := &categories{items: map[string]model.Category{"c1": {ID: "c1", Name: "Boots", Slug: "boots"}}}
	rs := &roles{items: map[string]model.Role{"r1": {ID: "r1", Name: "admin"}}}
	codec := utils.NewTokenCodec("access", "refresh", "email")

	e := echo.New()
	e.HTTPErrorHandler = response.HTTPErrorHandler(logging.Nop())
	RegisterRoutes(e, Deps{
		Codec:      codec,
		Stores:     Stores{Users: us, Sessions: ss},
		RateLimits: config.RateLimitConfig{},
		Auth:       handler.NewAuthHandler(nil, nil, false, 0),
		Categories: handler.NewCategoryHandler(cats, nil, nil, nil),
		Roles:      handler.NewRoleHandler(rs, nil),
	})
	return &stack{e: e, cats: cats, roles: rs, codec: codec}
}

func (s *stack) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.codec.SignAccessToken(utils.AuthClaims{
		ID: userID, SessionID: "s-" + userID, TokenVersion: 1,
		DeviceHash: utils.DeviceHash("192.0.2.1", ua),
	}, time.Minute)
	require.NoError(t, err)
	return tok
}

func (s *stack) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("User-Agent", ua)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestCategoryDelete_RequiresPermission(t *testing.T) {
	s := newStack(t)

	rec := s.do(http.MethodDelete, "/categories/c1", s.token(t, "editor"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: insufficient permission", message(t, rec))
	assert.Zero(t, s.cats.deletes)
	assert.Contains(t, s.cats.items, "c1")

	rec = s.do(http.MethodDelete, "/categories/delete-many", s.token(t, "editor"), `{"ids":["c1"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, s.cats.deletes)

	rec = s.do(http.MethodDelete, "/categories/c1", s.token(t, "admin"), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, s.cats.items, "c1")
}

func TestCategoryWrites_RequireAuth(t *testing.T) {
	s := newStack(t)

	rec := s.do(http.MethodPost, "/categories", "", `{"name":"Hats"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, s.cats.items, 1)

	rec = s.do(http.MethodPost, "/categories", s.token(t, "editor"), `{"name":"Hats"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, s.cats.items, 2)

	rec = s.do(http.MethodPost, "/categories", s.token(t, "admin"), `{"name":"Gloves"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPublicAndRoleRoutes(t *testing.T) {
	s := newStack(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/categories", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/categories/c1", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", "").Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/roles", s.token(t, "editor"), "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/roles", s.token(t, "admin"), "").Code)
}

func TestRoleWrites_RequirePermission(t *testing.T) {
	s := newStack(t)
	editor, admin := s.token(t, "editor"), s.token(t, "admin")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/roles", editor, `{"name":"viewer"}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/roles/r1", editor, `{"name":"boss"}`).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/roles/r1", editor, "").Code)
	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodDelete, "/roles/delete-many", editor, `{"ids":["r1"]}`).Code)
	assert.Zero(t, s.roles.deletes)
	assert.Equal(t, "admin", s.roles.items["r1"].Name)
	assert.Len(t, s.roles.items, 1)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/roles/permissions", admin, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/roles/r1", admin, "").Code)
	assert.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/roles", admin, `{"name":"viewer","permissions":["view_role"]}`).Code)
	assert.Len(t, s.roles.items, 2)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPut, "/roles/r1", admin, `{"name":"boss"}`).Code)
	assert.Equal(t, "boss", s.roles.items["r1"].Name)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/roles/r1", admin, "").Code)
	assert.NotContains(t, s.roles.items, "r1")
}

func TestAuthRoutes_Guards(t *testing.T) {
	s := newStack(t)

	rec := s.do(http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header missing or malformed.", message(t, rec))

	rec = s.do(http.MethodPost, "/auth/login", s.token(t, "editor"), `{"email":"e@x.com","password":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "already logged in.", message(t, rec))

	rec = s.do(http.MethodGet, "/auth/refresh-token", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token not found.", message(t, rec))
}
