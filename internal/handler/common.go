// Package handler contains the HTTP endpoints. Handlers bind input, consult
// the policy engine, call repositories and shape JSON responses; they hold
// no business rules of their own.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/policy"
	"github.com/ministryhub/platform/internal/repository"
	"github.com/ministryhub/platform/internal/upload"
)

// dbTimeout bounds every repository call made from a handler.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
}

// pageFromQuery reads the shared paging parameters.
func pageFromQuery(c echo.Context) repository.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.Page{Page: page, Limit: limit, Sort: c.QueryParam("sort")}.Normalize()
}

// listResp is the common paged-list envelope.
func listResp(items any, p repository.Page, total int) echo.Map {
	return echo.Map{"data": items, "page": p.Page, "limit": p.Limit, "total": total}
}

// denied translates a policy denial into an HTTP response. ReasonNotFound is
// deliberately identical to a real missing row.
func denied(c echo.Context, d policy.Decision) error {
	switch d.Reason {
	case policy.ReasonNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case policy.ReasonDeadlinePassed:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "submission deadline has passed"})
	case policy.ReasonAlreadySubmitted:
		return c.JSON(http.StatusConflict, echo.Map{"error": "assignment already submitted"})
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
}

// uploadFailed maps upload validation errors onto status codes. It returns
// false when err is not an upload error.
func uploadFailed(c echo.Context, err error) (error, bool) {
	switch {
	case errors.Is(err, upload.ErrUnsupportedMediaType):
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "unsupported media type"}), true
	case errors.Is(err, upload.ErrPayloadTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"}), true
	case errors.Is(err, upload.ErrUnexpectedField):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unexpected file field"}), true
	}
	return nil, false
}

// serveAsset streams an asset's bytes with its stored media type and
// filename. Downloads get an attachment disposition; inline views do not.
func serveAsset(c echo.Context, a *model.Asset, attachment bool) error {
	disp := "inline"
	if attachment {
		disp = "attachment"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disp+`; filename="`+a.Filename+`"`)
	return c.Blob(http.StatusOK, a.ContentType, a.Data)
}

// assetLookupFailed maps asset-read errors. Empty slots and missing rows both
// come back 404.
func assetLookupFailed(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAssetNotPresent) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}

type metaPart struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// metaJSON exposes asset metadata without the bytes; nil when the slot is
// empty so clients can test for presence.
func metaJSON(m model.AssetMeta) *metaPart {
	if !m.Present() {
		return nil
	}
	return &metaPart{Filename: m.Filename, ContentType: m.ContentType, Size: m.Size}
}
