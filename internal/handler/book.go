package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministryhub/platform/internal/middleware"
	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/policy"
	"github.com/ministryhub/platform/internal/repository"
	"github.com/ministryhub/platform/internal/upload"
)

// BookHandler serves the digital library. Books are curated: browsing is
// public, mutation is admin only.
type BookHandler struct {
	Books *repository.BookRepo
}

func NewBookHandler(r *repository.BookRepo) *BookHandler { return &BookHandler{Books: r} }

type bookResp struct {
	ID          uint64    `json:"id"`
	UploaderID  uint64    `json:"uploaderId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorName  string    `json:"authorName"`
	Category    string    `json:"category"`
	Cover       *metaPart `json:"cover"`
	PDF         *metaPart `json:"pdf"`
	Downloads   uint64    `json:"downloads"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func bookJSON(b *model.Book) bookResp {
	return bookResp{
		ID:          b.ID,
		UploaderID:  b.UploaderID,
		Title:       b.Title,
		Description: b.Description,
		AuthorName:  b.AuthorName,
		Category:    b.Category,
		Cover:       metaJSON(b.Cover),
		PDF:         metaJSON(b.PDF),
		Downloads:   b.Downloads,
		IsPublished: b.IsPublished,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// List returns published books.
func (h *BookHandler) List(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	f := repository.BookFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		Page:     pageFromQuery(c),
	}
	if actor.Admin() && c.QueryParam("includeUnpublished") == "true" {
		f.IncludeUnpublished = true
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	books, total, err := h.Books.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookResp, 0, len(books))
	for _, b := range books {
		out = append(out, bookJSON(b))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

func (h *BookHandler) load(c echo.Context, action policy.Action) (*model.Book, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), action,
		policy.Resource{Kind: policy.KindBook, OwnerID: b.UploaderID, Published: b.IsPublished}, time.Now())
	if !d.Allowed {
		return nil, denied(c, d)
	}
	return b, nil
}

// Get returns one book's metadata.
func (h *BookHandler) Get(c echo.Context) error {
	b, resp := h.load(c, policy.ActionRead)
	if b == nil {
		return resp
	}
	return c.JSON(http.StatusOK, bookJSON(b))
}

// Create stores a new book. The PDF is mandatory; the cover is optional.
func (h *BookHandler) Create(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	d := policy.Decide(actor, policy.ActionCreate,
		policy.Resource{Kind: policy.KindBook, OwnerID: actor.ID}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	title := c.FormValue("title")
	authorName := c.FormValue("authorName")
	if title == "" || authorName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and authorName are required"})
	}
	cover, err := upload.FromForm(c, upload.General, "coverImage")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	pdf, err := upload.FromForm(c, upload.General, "pdfFile")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	if !pdf.Present() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pdfFile is required"})
	}

	b := &model.Book{
		UploaderID:  actor.ID,
		Title:       title,
		Description: c.FormValue("description"),
		AuthorName:  authorName,
		Category:    defaultStr(c.FormValue("category"), "Spiritual"),
		IsPublished: c.FormValue("isPublished") != "false",
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Books.Create(ctx, b, cover, pdf); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, bookJSON(b))
}

// Update applies a partial edit to a book. Admin only via the policy.
func (h *BookHandler) Update(c echo.Context) error {
	b, resp := h.load(c, policy.ActionUpdate)
	if b == nil {
		return resp
	}

	cover, err := upload.FromForm(c, upload.General, "coverImage")
	if err != nil {
		if r, ok := uploadFailed(c, err); ok {
			return r
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	pdf, err := upload.FromForm(c, upload.General, "pdfFile")
	if err != nil {
		if r, ok := uploadFailed(c, err); ok {
			return r
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := repository.BookUpdate{
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		AuthorName:  formString(c, "authorName"),
		Category:    formString(c, "category"),
		Cover:       cover,
		PDF:         pdf,
	}
	if v := formString(c, "isPublished"); v != nil {
		val, err := strconv.ParseBool(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublished"})
		}
		p.IsPublished = &val
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Books.Update(ctx, b.ID, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	b, err = h.Books.GetByID(ctx, b.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, bookJSON(b))
}

// Delete removes a book. Admin only via the policy.
func (h *BookHandler) Delete(c echo.Context) error {
	b, resp := h.load(c, policy.ActionDelete)
	if b == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Books.Delete(ctx, b.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Cover serves the cover image inline.
func (h *BookHandler) Cover(c echo.Context) error {
	b, resp := h.load(c, policy.ActionRead)
	if b == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Books.ReadAsset(ctx, b.ID, "cover")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, false)
}

// Download streams the PDF as an attachment and bumps the download counter.
// The increment is fire-and-forget: a counter failure is logged but never
// fails a download that already succeeded.
func (h *BookHandler) Download(c echo.Context) error {
	b, resp := h.load(c, policy.ActionDownload)
	if b == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Books.ReadAsset(ctx, b.ID, "pdf")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	if err := h.Books.IncrementDownloads(ctx, b.ID); err != nil {
		c.Logger().Warnf("increment downloads for book %d: %v", b.ID, err)
	}
	return serveAsset(c, a, true)
}
