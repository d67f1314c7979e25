package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministryhub/platform/internal/middleware"
	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/repository"
	"github.com/ministryhub/platform/internal/upload"
)

// UserHandler serves profile self-service and the admin account surface.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(u *repository.UserRepo) *UserHandler { return &UserHandler{Users: u} }

type userProfileResp struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Phone      string     `json:"phone"`
	Bio        string     `json:"bio"`
	Church     string     `json:"church"`
	Position   string     `json:"position"`
	Department string     `json:"department"`
	StudentRef string     `json:"studentRef"`
	Photo      *metaPart  `json:"photo"`
	IsActive   bool       `json:"isActive"`
	LastLogin  *time.Time `json:"lastLogin"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func userProfileJSON(u model.User) userProfileResp {
	resp := userProfileResp{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Phone:      u.Phone,
		Bio:        u.Bio,
		Church:     u.Church,
		Position:   u.Position,
		Department: u.Department,
		StudentRef: u.StudentRef,
		Photo:      metaJSON(u.Photo),
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
	if u.LastLoginAt.Valid {
		t := u.LastLoginAt.Time
		resp.LastLogin = &t
	}
	return resp
}

// formString returns a pointer only when the multipart field was sent,
// so absent fields stay untouched in partial updates.
func formString(c echo.Context, name string) *string {
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		if vals, ok := form.Value[name]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}
	if err := c.Request().ParseForm(); err == nil {
		if vals, ok := c.Request().PostForm[name]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
	}
	return nil
}

// UpdateProfile applies a partial profile edit. The body is multipart so the
// photo can ride along with text fields.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	actor := middleware.CurrentActor(c)

	photo, err := upload.FromForm(c, upload.General, "photo")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := repository.ProfileUpdate{
		Name:       formString(c, "name"),
		Phone:      formString(c, "phone"),
		Bio:        formString(c, "bio"),
		Church:     formString(c, "church"),
		Position:   formString(c, "position"),
		Department: formString(c, "department"),
		StudentRef: formString(c, "studentRef"),
		Photo:      photo,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, actor.ID, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u, err := h.Users.GetByID(ctx, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userProfileJSON(u))
}

// Photo serves the caller's own profile photo.
func (h *UserHandler) Photo(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Users.ReadPhoto(ctx, actor.ID)
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, false)
}

// ----- admin surface -----

// List returns a page of accounts. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p := pageFromQuery(c)
	users, total, err := h.Users.List(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userProfileResp, 0, len(users))
	for _, u := range users {
		out = append(out, userProfileJSON(u))
	}
	return c.JSON(http.StatusOK, listResp(out, p, total))
}

// Get returns one account. Admin only.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userProfileJSON(u))
}

type adminUserReq struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// Update edits another account's name, role or active flag. Admin only.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	var req adminUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.ValidRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p := repository.AdminUpdate{Name: req.Name, Role: req.Role, IsActive: req.IsActive}
	if err := h.Users.UpdateByAdmin(ctx, id, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, userProfileJSON(u))
}

// Deactivate disables an account. Admins cannot deactivate themselves, so
// the platform always retains at least the acting admin.
func (h *UserHandler) Deactivate(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	if id == actor.ID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate yourself"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
