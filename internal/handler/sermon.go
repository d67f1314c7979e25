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

// SermonHandler serves the sermon endpoints.
type SermonHandler struct {
	Sermons *repository.SermonRepo
}

func NewSermonHandler(r *repository.SermonRepo) *SermonHandler { return &SermonHandler{Sermons: r} }

type sermonResp struct {
	ID          uint64    `json:"id"`
	AuthorID    uint64    `json:"authorId"`
	Title       string    `json:"title"`
	Content     string    `json:"content,omitempty"`
	Summary     string    `json:"summary"`
	VideoLink   string    `json:"videoLink"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Image       *metaPart `json:"image"`
	Audio       *metaPart `json:"audio"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func sermonJSON(s *model.Sermon) sermonResp {
	return sermonResp{
		ID:          s.ID,
		AuthorID:    s.AuthorID,
		Title:       s.Title,
		Content:     s.Content,
		Summary:     s.Summary,
		VideoLink:   s.VideoLink,
		Category:    s.Category,
		Tags:        s.Tags,
		Image:       metaJSON(s.Image),
		Audio:       metaJSON(s.Audio),
		IsPublished: s.IsPublished,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// List returns published sermons. "mine=true" narrows to the caller's own
// sermons including unpublished drafts; "author=<id>" narrows to one
// author's published sermons (drafts included only for that author or an
// admin).
func (h *SermonHandler) List(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	f := repository.SermonFilter{
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

	sermons, total, err := h.Sermons.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sermonResp, 0, len(sermons))
	for _, s := range sermons {
		out = append(out, sermonJSON(s))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

// Get returns one sermon. Unpublished sermons are only visible to their
// author or an admin; everyone else sees a 404.
func (h *SermonHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sermons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionRead,
		policy.Resource{Kind: policy.KindSermon, OwnerID: s.AuthorID, Published: s.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}
	return c.JSON(http.StatusOK, sermonJSON(s))
}

// Create stores a new sermon authored by the caller.
func (h *SermonHandler) Create(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	d := policy.Decide(actor, policy.ActionCreate,
		policy.Resource{Kind: policy.KindSermon, OwnerID: actor.ID}, time.Now())
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
	audio, err := upload.FromForm(c, upload.General, "audio")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	s := &model.Sermon{
		AuthorID:    actor.ID,
		Title:       title,
		Content:     content,
		Summary:     c.FormValue("summary"),
		VideoLink:   c.FormValue("videoLink"),
		Category:    defaultStr(c.FormValue("category"), "General"),
		Tags:        model.ParseTags(c.FormValue("tags")),
		IsPublished: c.FormValue("isPublished") != "false",
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sermons.Create(ctx, s, image, audio); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, sermonJSON(s))
}

// Update applies a partial edit to the caller's sermon.
func (h *SermonHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sermons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionUpdate,
		policy.Resource{Kind: policy.KindSermon, OwnerID: s.AuthorID, Published: s.IsPublished}, time.Now())
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
	audio, err := upload.FromForm(c, upload.General, "audio")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := repository.SermonUpdate{
		Title:     formString(c, "title"),
		Content:   formString(c, "content"),
		Summary:   formString(c, "summary"),
		VideoLink: formString(c, "videoLink"),
		Category:  formString(c, "category"),
		Image:     image,
		Audio:     audio,
	}
	if v := formString(c, "tags"); v != nil {
		p.Tags = model.ParseTags(*v)
		p.HasTags = true
	}
	if v := formString(c, "isPublished"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublished"})
		}
		p.IsPublished = &b
	}

	if err := h.Sermons.Update(ctx, id, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	s, err = h.Sermons.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, sermonJSON(s))
}

// Delete removes the caller's sermon.
func (h *SermonHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sermons.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), policy.ActionDelete,
		policy.Resource{Kind: policy.KindSermon, OwnerID: s.AuthorID, Published: s.IsPublished}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}
	if err := h.Sermons.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Asset serves a sermon's image or audio attachment, subject to the same
// visibility rule as the sermon itself.
func (h *SermonHandler) Asset(slot string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return badID(c)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()

		s, err := h.Sermons.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		d := policy.Decide(middleware.CurrentActor(c), policy.ActionRead,
			policy.Resource{Kind: policy.KindSermon, OwnerID: s.AuthorID, Published: s.IsPublished}, time.Now())
		if !d.Allowed {
			return denied(c, d)
		}

		a, err := h.Sermons.ReadAsset(ctx, id, slot)
		if err != nil {
			return assetLookupFailed(c, err)
		}
		return serveAsset(c, a, false)
	}
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
