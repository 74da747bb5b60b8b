package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/response"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/utils"
)

// RoleStore reads and writes roles and their permission grants.
type RoleStore interface {
	ListWithPermissions(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	FindByID(ctx context.Context, id string) (*model.Role, error)
	CreateWithPermissions(ctx context.Context, role *model.Role, perms []string) error
	UpdateWithPermissions(ctx context.Context, role *model.Role, perms []string) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type RoleHandler struct {
	roles RoleStore
	log   logging.Logger
}

func NewRoleHandler(roles RoleStore, log logging.Logger) *RoleHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &RoleHandler{roles: roles, log: log}
}

type roleResp struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type permissionResp struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

type roleReq struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (r roleReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("Name is required."),
			validation.Length(2, 64).Error("Name must be between 2 and 64 characters."),
		),
	)
}

func toRoleResp(r model.Role) roleResp {
	perms := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, p.Name)
	}
	return roleResp{ID: r.ID, Name: r.Name, Permissions: perms}
}

func mapRoleErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ErrNotFound.WithMessage("Role not found.")
	case errors.Is(err, repository.ErrConflict):
		return apperr.ErrConflict.WithMessage("Role already exists or is still assigned to users.")
	default:
		return apperr.Unexpected(err)
	}
}

// logResult writes the role audit record for event with the acting
// user's email and the client fingerprint.
func (h *RoleHandler) logResult(c echo.Context, event string, err error, args ...any) {
	info := utils.ClientInfo(c)
	email := "unknown"
	if cl := middleware.ClaimsFrom(c); cl != nil {
		email = cl.Email
	}
	args = append(args, "email", email, "ip", info.IP, "userAgent", info.UserAgent)
	if err != nil {
		h.log.Error(c.Request().Context(), event+"_failed", append(args, "message", err.Error())...)
		return
	}
	h.log.Info(c.Request().Context(), event+"_success", args...)
}

// checkPermissions rejects names missing from the permission catalogue.
func (h *RoleHandler) checkPermissions(ctx context.Context, names []string) ([]string, error) {
	known, err := h.roles.ListPermissions(ctx)
	if err != nil {
		return nil, apperr.Unexpected(err)
	}
	set := make(map[string]struct{}, len(known))
	for _, p := range known {
		set[p.Name] = struct{}{}
	}
	seen := map[string]bool{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if _, ok := set[n]; !ok {
			return nil, apperr.Validation("Validation failed.",
				apperr.FieldError{Field: "permissions", Message: "Unknown permission: " + n})
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}

// List returns every role and the names of its permissions.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	roles, err := h.roles.ListWithPermissions(ctx)
	if err != nil {
		return apperr.Unexpected(err)
	}
	out := make([]roleResp, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRoleResp(r))
	}
	return response.Success(c, http.StatusOK, "Fetching roles success", out)
}

// Permissions lists the permission catalogue roles can be granted.
func (h *RoleHandler) Permissions(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	perms, err := h.roles.ListPermissions(ctx)
	if err != nil {
		return apperr.Unexpected(err)
	}
	out := make([]permissionResp, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResp{ID: p.ID, Name: p.Name, Module: p.Module})
	}
	return response.Success(c, http.StatusOK, "Fetching permissions success", out)
}

func (h *RoleHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	role, err := h.roles.FindByID(ctx, c.Param("id"))
	if err != nil {
		return mapRoleErr(err)
	}
	return response.Success(c, http.StatusOK, "Fetching role by id success", toRoleResp(*role))
}

// Create adds a role with the requested grants.
func (h *RoleHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return service.ValidationFailed(err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	perms, err := h.checkPermissions(ctx, req.Permissions)
	if err != nil {
		return err
	}
	role := &model.Role{ID: uuid.NewString(), Name: req.Name, CreatedBy: userID}
	if err := h.roles.CreateWithPermissions(ctx, role, perms); err != nil {
		h.logResult(c, "create_role", err, "name", req.Name)
		return mapRoleErr(err)
	}
	h.logResult(c, "create_role", nil, "id", role.ID, "name", role.Name)
	return response.Success(c, http.StatusCreated, "Create new role success", roleResp{
		ID: role.ID, Name: role.Name, Permissions: perms,
	})
}

// Update renames a role and replaces its grants.
func (h *RoleHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return service.ValidationFailed(err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	role, err := h.roles.FindByID(ctx, c.Param("id"))
	if err != nil {
		return mapRoleErr(err)
	}
	perms, err := h.checkPermissions(ctx, req.Permissions)
	if err != nil {
		return err
	}
	role.Name, role.UpdatedBy = req.Name, userID
	if err := h.roles.UpdateWithPermissions(ctx, role, perms); err != nil {
		h.logResult(c, "update_role", err, "id", role.ID)
		return mapRoleErr(err)
	}
	h.logResult(c, "update_role", nil, "id", role.ID)
	return response.Success(c, http.StatusOK, "Update role success", roleResp{
		ID: role.ID, Name: role.Name, Permissions: perms,
	})
}

func (h *RoleHandler) Delete(c echo.Context) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	id := c.Param("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.roles.Delete(ctx, id); err != nil {
		h.logResult(c, "delete_role", err, "id", id)
		return mapRoleErr(err)
	}
	h.logResult(c, "delete_role", nil, "id", id)
	return response.Success(c, http.StatusOK, "Role deleted success", nil)
}

func (h *RoleHandler) DeleteMany(c echo.Context) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	var req deleteManyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if len(req.IDs) == 0 {
		return apperr.Validation("Validation failed.", apperr.FieldError{Field: "ids", Message: "Ids are required."})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	n, err := h.roles.DeleteMany(ctx, req.IDs)
	if err != nil {
		h.logResult(c, "delete_many_roles", err, "ids", req.IDs)
		return mapRoleErr(err)
	}
	h.logResult(c, "delete_many_roles", nil, "count", n)
	return response.Success(c, http.StatusOK, "Deleted roles success", map[string]int64{"deleted": n})
}
