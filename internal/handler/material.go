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

// MaterialHandler serves learning materials. Like books they are curated
// content, but with a larger primary file ceiling, a thumbnail slot and a
// file-or-external-link content source.
type MaterialHandler struct {
	Materials *repository.MaterialRepo
}

func NewMaterialHandler(r *repository.MaterialRepo) *MaterialHandler {
	return &MaterialHandler{Materials: r}
}

type materialResp struct {
	ID           uint64    `json:"id"`
	CreatorID    uint64    `json:"creatorId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Type         string    `json:"type"`
	ExternalLink string    `json:"externalLink,omitempty"`
	Tags         []string  `json:"tags"`
	File         *metaPart `json:"file"`
	Thumbnail    *metaPart `json:"thumbnail"`
	Views        uint64    `json:"views"`
	Downloads    uint64    `json:"downloads"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func materialJSON(m *model.Material) materialResp {
	return materialResp{
		ID:           m.ID,
		CreatorID:    m.CreatorID,
		Title:        m.Title,
		Description:  m.Description,
		Category:     m.Category,
		Type:         m.Type,
		ExternalLink: m.ExternalLink,
		Tags:         m.Tags,
		File:         metaJSON(m.File),
		Thumbnail:    metaJSON(m.Thumbnail),
		Views:        m.Views,
		Downloads:    m.Downloads,
		IsPublished:  m.IsPublished,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// List returns published materials with category/type/tag/search filters.
func (h *MaterialHandler) List(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	f := repository.MaterialFilter{
		Category: c.QueryParam("category"),
		Type:     c.QueryParam("type"),
		Tag:      c.QueryParam("tag"),
		Search:   c.QueryParam("search"),
		Page:     pageFromQuery(c),
	}
	if actor.Admin() && c.QueryParam("includeUnpublished") == "true" {
		f.IncludeUnpublished = true
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	materials, total, err := h.Materials.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]materialResp, 0, len(materials))
	for _, m := range materials {
		out = append(out, materialJSON(m))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

func (h *MaterialHandler) load(c echo.Context, action policy.Action) (*model.Material, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	m, err := h.Materials.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), action,
		policy.Resource{Kind: policy.KindMaterial, OwnerID: m.CreatorID, Published: m.IsPublished}, time.Now())
	if !d.Allowed {
		return nil, denied(c, d)
	}
	return m, nil
}

// Get returns one material and bumps its view counter. The increment never
// fails the read.
func (h *MaterialHandler) Get(c echo.Context) error {
	m, resp := h.load(c, policy.ActionRead)
	if m == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Materials.IncrementViews(ctx, m.ID); err != nil {
		c.Logger().Warnf("increment views for material %d: %v", m.ID, err)
	}
	return c.JSON(http.StatusOK, materialJSON(m))
}

// validateContentSource enforces the file-XOR-link rule for the material's
// primary content.
func validateContentSource(mtype string, hasFile bool, link string) string {
	if hasFile && link != "" {
		return "provide either a file or an externalLink, not both"
	}
	if !hasFile && link == "" && mtype != model.MaterialVideo {
		return "a file or an externalLink is required"
	}
	return ""
}

// Create stores a new material. Admin only via the policy.
func (h *MaterialHandler) Create(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	d := policy.Decide(actor, policy.ActionCreate,
		policy.Resource{Kind: policy.KindMaterial, OwnerID: actor.ID}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	title := c.FormValue("title")
	category := c.FormValue("category")
	mtype := defaultStr(c.FormValue("type"), model.MaterialPDF)
	if title == "" || category == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and category are required"})
	}
	if !model.ValidMaterialType(mtype) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type"})
	}
	if !model.ValidMaterialCategory(category) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
	}

	file, err := upload.FromForm(c, upload.LearningMaterial, "file")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	thumb, err := upload.FromForm(c, upload.LearningMaterial, "thumbnail")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	link := c.FormValue("externalLink")
	if msg := validateContentSource(mtype, file.Present(), link); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	m := &model.Material{
		CreatorID:    actor.ID,
		Title:        title,
		Description:  c.FormValue("description"),
		Category:     category,
		Type:         mtype,
		ExternalLink: link,
		Tags:         model.ParseTags(c.FormValue("tags")),
		IsPublished:  c.FormValue("isPublished") != "false",
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Materials.Create(ctx, m, file, thumb); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, materialJSON(m))
}

// Update applies a partial edit. Supplying a new file clears any external
// link and supplying a link clears the stored file, preserving the one
// content source rule across transitions.
func (h *MaterialHandler) Update(c echo.Context) error {
	m, resp := h.load(c, policy.ActionUpdate)
	if m == nil {
		return resp
	}

	file, err := upload.FromForm(c, upload.LearningMaterial, "file")
	if err != nil {
		if r, ok := uploadFailed(c, err); ok {
			return r
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}
	thumb, err := upload.FromForm(c, upload.LearningMaterial, "thumbnail")
	if err != nil {
		if r, ok := uploadFailed(c, err); ok {
			return r
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := repository.MaterialUpdate{
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		File:        file,
		Thumbnail:   thumb,
	}
	if v := formString(c, "category"); v != nil {
		if !model.ValidMaterialCategory(*v) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
		}
		p.Category = v
	}
	if v := formString(c, "type"); v != nil {
		if !model.ValidMaterialType(*v) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid type"})
		}
		p.Type = v
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
	if v := formString(c, "externalLink"); v != nil {
		if file.Present() && *v != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide either a file or an externalLink, not both"})
		}
		// With a new file in the same request, ClearLink below already
		// empties the column; assigning ExternalLink too would name
		// external_link twice in the update's SET list.
		if !file.Present() {
			p.ExternalLink = v
			if *v != "" {
				p.ClearFile = true
			}
		}
	}
	if file.Present() {
		p.ClearLink = true
	}

	// The patch must leave exactly one content source, same rule as create.
	effType := m.Type
	if p.Type != nil {
		effType = *p.Type
	}
	hasFile := m.File.Present() || file.Present()
	if p.ClearFile {
		hasFile = false
	}
	link := m.ExternalLink
	if p.ExternalLink != nil {
		link = *p.ExternalLink
	}
	if p.ClearLink {
		link = ""
	}
	if msg := validateContentSource(effType, hasFile, link); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Materials.Update(ctx, m.ID, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	m, err = h.Materials.GetByID(ctx, m.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, materialJSON(m))
}

// Delete removes a material and its assignment references. Admin only via
// the policy.
func (h *MaterialHandler) Delete(c echo.Context) error {
	m, resp := h.load(c, policy.ActionDelete)
	if m == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Materials.Delete(ctx, m.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// File serves the primary file inline.
func (h *MaterialHandler) File(c echo.Context) error {
	m, resp := h.load(c, policy.ActionRead)
	if m == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Materials.ReadAsset(ctx, m.ID, "file")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, false)
}

// Download streams the primary file as an attachment, bumping the download
// counter without ever failing the response over it.
func (h *MaterialHandler) Download(c echo.Context) error {
	m, resp := h.load(c, policy.ActionDownload)
	if m == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Materials.ReadAsset(ctx, m.ID, "file")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	if err := h.Materials.IncrementDownloads(ctx, m.ID); err != nil {
		c.Logger().Warnf("increment downloads for material %d: %v", m.ID, err)
	}
	return serveAsset(c, a, true)
}

// Thumbnail serves the thumbnail image inline.
func (h *MaterialHandler) Thumbnail(c echo.Context) error {
	m, resp := h.load(c, policy.ActionRead)
	if m == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Materials.ReadAsset(ctx, m.ID, "thumb")
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, false)
}

// Categories returns the fixed category taxonomy.
func (h *MaterialHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"data": model.MaterialCategories})
}

// Tags returns every tag in use across published materials.
func (h *MaterialHandler) Tags(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tags, err := h.Materials.DistinctTags(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if tags == nil {
		tags = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": tags})
}
