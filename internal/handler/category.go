package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/apperr"
	"github.com/iliyamo/storefront-api/internal/logging"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/response"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/storage"
)

// CategoryCacheGroup names the cached category listings.
const CategoryCacheGroup = "categories"

// CategoryStore is the persistence the category routes need.
type CategoryStore interface {
	List(ctx context.Context, f repository.CategoryFilter) ([]model.Category, int, error)
	FindByID(ctx context.Context, id string) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

// CachePurger drops cached responses after a mutation.
type CachePurger interface {
	Purge(ctx context.Context, group string) error
}

// ImageUploader presigns image uploads.
type ImageUploader interface {
	PresignImageUpload(ctx context.Context, prefix, contentType string) (*storage.Upload, error)
}

// CategoryHandler serves the category catalog.
type CategoryHandler struct {
	store   CategoryStore
	cache   CachePurger
	uploads ImageUploader
	log     logging.Logger
}

// NewCategoryHandler wires the handler. cache and uploads may be nil.
func NewCategoryHandler(store CategoryStore, cache CachePurger, uploads ImageUploader, log logging.Logger) *CategoryHandler {
	if log == nil {
		log = logging.Nop()
	}
	return &CategoryHandler{store: store, cache: cache, uploads: uploads, log: log}
}

type categoryReq struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

func (r categoryReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("Name is required."),
			validation.Length(2, 100).Error("Name must be between 2 and 100 characters."),
		),
		validation.Field(&r.ImageURL,
			is.URL.Error("Image url is not valid."),
		),
	)
}

type deleteManyReq struct {
	IDs []string `json:"ids"`
}

type uploadReq struct {
	ContentType string `json:"content_type"`
}

type categoryPage struct {
	Items []model.Category `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int              `json:"total"`
}

// mapStoreErr turns repository sentinels into client errors.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ErrNotFound.WithMessage("Category not found.")
	case errors.Is(err, repository.ErrConflict):
		return apperr.ErrConflict.WithMessage("Category already exists.")
	default:
		return apperr.Unexpected(err)
	}
}

func (h *CategoryHandler) purge(c echo.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Purge(context.WithoutCancel(c.Request().Context()), CategoryCacheGroup); err != nil {
		h.log.Warn(c.Request().Context(), "cache_purge_failed", "group", CategoryCacheGroup, "error", err)
	}
}

// List returns a page of categories. Query: page, limit, search.
func (h *CategoryHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	f := repository.CategoryFilter{Page: page, Limit: limit, Search: c.QueryParam("search")}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	items, total, err := h.store.List(ctx, f)
	if err != nil {
		return apperr.Unexpected(err)
	}
	return response.Success(c, http.StatusOK, "Success get categories.", categoryPage{
		Items: items, Page: f.Page, Limit: f.Limit, Total: total,
	})
}

// Get returns one category.
func (h *CategoryHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	cat, err := h.store.FindByID(ctx, c.Param("id"))
	if err != nil {
		return mapStoreErr(err)
	}
	return response.Success(c, http.StatusOK, "Success get category.", cat)
}

// Create adds a category; the slug is derived from the name.
func (h *CategoryHandler) Create(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return service.ValidationFailed(err)
	}

	cat := &model.Category{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      slugify(req.Name),
		ImageURL:  req.ImageURL,
		CreatedBy: userID,
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.store.Create(ctx, cat); err != nil {
		h.log.Error(ctx, "create_category_failed", "name", req.Name, "by", userID, "error", err)
		return mapStoreErr(err)
	}
	h.purge(c)
	h.log.Info(ctx, "create_category_success", "id", cat.ID, "name", cat.Name, "by", userID)
	return response.Success(c, http.StatusCreated, "Create new category success", cat)
}

// Update renames a category and replaces its image.
func (h *CategoryHandler) Update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return service.ValidationFailed(err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	cat, err := h.store.FindByID(ctx, c.Param("id"))
	if err != nil {
		return mapStoreErr(err)
	}
	cat.Name, cat.Slug, cat.UpdatedBy = req.Name, slugify(req.Name), userID
	if req.ImageURL != "" {
		cat.ImageURL = req.ImageURL
	}
	if err := h.store.Update(ctx, cat); err != nil {
		h.log.Error(ctx, "update_category_failed", "id", cat.ID, "by", userID, "error", err)
		return mapStoreErr(err)
	}
	h.purge(c)
	h.log.Info(ctx, "update_category_success", "id", cat.ID, "by", userID)
	return response.Success(c, http.StatusOK, "Update category success", cat)
}

// Delete removes one category.
func (h *CategoryHandler) Delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.store.Delete(ctx, id); err != nil {
		h.log.Error(ctx, "delete_category_failed", "id", id, "by", userID, "error", err)
		return mapStoreErr(err)
	}
	h.purge(c)
	h.log.Info(ctx, "delete_category_success", "id", id, "by", userID)
	return response.Success(c, http.StatusOK, "Category deleted success", nil)
}

// DeleteMany removes every category listed in the body.
func (h *CategoryHandler) DeleteMany(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
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

	n, err := h.store.DeleteMany(ctx, req.IDs)
	if err != nil {
		h.log.Error(ctx, "delete_category_failed", "ids", req.IDs, "by", userID, "error", err)
		return apperr.Unexpected(err)
	}
	h.purge(c)
	h.log.Info(ctx, "delete_category_success", "count", n, "by", userID)
	return response.Success(c, http.StatusOK, "Categories deleted success", map[string]int64{"deleted": n})
}

// UploadURL presigns an image upload for a category.
func (h *CategoryHandler) UploadURL(c echo.Context) error {
	if h.uploads == nil {
		return apperr.New(apperr.KindNotFound, "uploads_disabled", "Image upload is not configured.")
	}
	var req uploadReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	up, err := h.uploads.PresignImageUpload(ctx, "categories", req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return apperr.Validation("Validation failed.",
				apperr.FieldError{Field: "content_type", Message: "Only jpeg, png, webp and gif images are allowed."})
		}
		return apperr.Unexpected(err)
	}
	return response.Success(c, http.StatusOK, "Upload url created.", up)
}
