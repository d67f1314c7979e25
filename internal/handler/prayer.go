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

// PrayerHandler serves the prayer endpoints. Prayers share the sermon
// ownership model with a smaller field set.
type PrayerHandler struct {
	Prayers *repository.PrayerRepo
}

func NewPrayerHandler(r *repository.PrayerRepo) *PrayerHandler { return &PrayerHandler{Prayers: r} }

type prayerResp struct {
	ID          uint64    `json:"id"`
	AuthorID    uint64    `json:"authorId"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	Category    string    `json:"category"`
	Image       *metaPart `json:"image"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func prayerJSON(p *model.Prayer) prayerResp {
	return prayerResp{
		ID:          p.ID,
		AuthorID:    p.AuthorID,
		Title:       p.Title,
		Content:     p.Content,
		Category:    p.Category,
		Image:       metaJSON(p.Image),
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// List returns published prayers; "mine=true" includes the caller's drafts
// and "author=<id>" narrows to one author's published prayers.
func (h *PrayerHandler) List(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	f := repository.PrayerFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
		Page:     pageFromQuery(c),
	}
	switch {
	case c.QueryParam("mine") == "true":
		if actor == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}
		f.AuthorID = actor.ID
		f.IncludeUnpublished = true
	case c.QueryParam("author") != "":
		id, err := strconv.ParseUint(c.QueryParam("author"), 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid author"})
		}
		f.AuthorID = id
		f.IncludeUnpublished = actor.Admin() || (actor != nil && actor.ID == id)
	case actor.Admin() && c.QueryParam("includeUnpublished") == "true":
		f.IncludeUnpublished = true
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	prayers, total, err := h.Prayers.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]prayerResp, 0, len(prayers))
	for _, p := range prayers {
		out = append(out, prayerJSON(p))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

// Get returns one prayer under the published/owner visibility rule.
func (h *PrayerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Prayers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionRead,
		policy.Resource{Kind: policy.KindPrayer, OwnerID: p.AuthorID, Published: p.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}
	return c.JSON(http.StatusOK, prayerJSON(p))
}

// Create stores a new prayer authored by the caller.
func (h *PrayerHandler) Create(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	d := policy.Decide(actor, policy.ActionCreate,
		policy.Resource{Kind: policy.KindPrayer, OwnerID: actor.ID}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	title := c.FormValue("title")
	content := c.FormValue("content")
	if title == "" || content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and content are required"})
	}
	image, err := upload.FromForm(c, upload.General, "image")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := &model.Prayer{
		AuthorID:    actor.ID,
		Title:       title,
		Content:     content,
		Category:    defaultStr(c.FormValue("category"), "General"),
		IsPublished: c.FormValue("isPublished") != "false",
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Prayers.Create(ctx, p, image); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, prayerJSON(p))
}

// Update applies a partial edit to the caller's prayer.
func (h *PrayerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Prayers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionUpdate,
		policy.Resource{Kind: policy.KindPrayer, OwnerID: p.AuthorID, Published: p.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	image, err := upload.FromForm(c, upload.General, "image")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	u := repository.PrayerUpdate{
		Title:    formString(c, "title"),
		Content:  formString(c, "content"),
		Category: formString(c, "category"),
		Image:    image,
	}
	if v := formString(c, "isPublished"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublished"})
		}
		u.IsPublished = &b
	}

	if err := h.Prayers.Update(ctx, id, u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	p, err = h.Prayers.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, prayerJSON(p))
}

// Delete removes the caller's prayer.
func (h *PrayerHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Prayers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionDelete,
		policy.Resource{Kind: policy.KindPrayer, OwnerID: p.AuthorID, Published: p.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}
	if err := h.Prayers.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Image serves a prayer's image attachment.
func (h *PrayerHandler) Image(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Prayers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionRead,
		policy.Resource{Kind: policy.KindPrayer, OwnerID: p.AuthorID, Published: p.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	a, err := h.Prayers.ReadAsset(ctx, id, "image")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, false)
}
