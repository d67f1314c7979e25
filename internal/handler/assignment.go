package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministryhub/platform/internal/middleware"
	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/policy"
	"github.com/ministryhub/platform/internal/queue"
	"github.com/ministryhub/platform/internal/repository"
	queue_publisher "github.com/ministryhub/platform/internal/service"
	"github.com/ministryhub/platform/internal/upload"
)

// AssignmentHandler serves assignments, submissions and grading.
type AssignmentHandler struct {
	Assignments *repository.AssignmentRepo
	Submissions *repository.SubmissionRepo

	// Publish is swapped out in tests; nil disables event publishing.
	Publish func(ctx context.Context, ev queue.SubmissionReceivedEvent) error
}

func NewAssignmentHandler(a *repository.AssignmentRepo, s *repository.SubmissionRepo) *AssignmentHandler {
	return &AssignmentHandler{
		Assignments: a,
		Submissions: s,
		Publish:     queue_publisher.PublishSubmissionReceived,
	}
}

type assignmentResp struct {
	ID          uint64    `json:"id"`
	CreatorID   uint64    `json:"creatorId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	MaterialIDs []uint64  `json:"materialIds,omitempty"`
	File        *metaPart `json:"file"`
	IsPublished bool      `json:"isPublished"`
	Overdue     bool      `json:"overdue"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func assignmentJSON(a *model.Assignment) assignmentResp {
	return assignmentResp{
		ID:          a.ID,
		CreatorID:   a.CreatorID,
		Title:       a.Title,
		Description: a.Description,
		DueDate:     a.DueDate,
		MaterialIDs: a.MaterialIDs,
		File:        metaJSON(a.File),
		IsPublished: a.IsPublished,
		Overdue:     a.Overdue(time.Now()),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type submissionResp struct {
	ID           uint64     `json:"id"`
	AssignmentID uint64     `json:"assignmentId"`
	StudentID    uint64     `json:"studentId"`
	Message      string     `json:"message"`
	File         *metaPart  `json:"file"`
	SubmittedAt  time.Time  `json:"submittedAt"`
	Graded       bool       `json:"graded"`
	Grade        string     `json:"grade"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"gradedAt,omitempty"`
}

func submissionJSON(s *model.Submission) submissionResp {
	resp := submissionResp{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		StudentID:    s.StudentID,
		Message:      s.Message,
		File:         metaJSON(s.File),
		SubmittedAt:  s.SubmittedAt,
		Graded:       s.Graded,
		Grade:        s.Grade,
		Feedback:     s.Feedback,
	}
	if s.GradedAt.Valid {
		t := s.GradedAt.Time
		resp.GradedAt = &t
	}
	return resp
}

// List returns published assignments. Admins can include unpublished drafts.
func (h *AssignmentHandler) List(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	f := repository.AssignmentFilter{
		Search: c.QueryParam("search"),
		Page:   pageFromQuery(c),
	}
	if actor.Admin() && c.QueryParam("includeUnpublished") == "true" {
		f.IncludeUnpublished = true
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	assignments, total, err := h.Assignments.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]assignmentResp, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentJSON(a))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

func (h *AssignmentHandler) load(c echo.Context, action policy.Action) (*model.Assignment, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), action,
		policy.Resource{Kind: policy.KindAssignment, OwnerID: a.CreatorID, Published: a.IsPublished, DueDate: a.DueDate}, time.Now())
	if !d.Allowed {
		return nil, denied(c, d)
	}
	return a, nil
}

// Get returns one assignment with its material references.
func (h *AssignmentHandler) Get(c echo.Context) error {
	a, resp := h.load(c, policy.ActionRead)
	if a == nil {
		return resp
	}
	return c.JSON(http.StatusOK, assignmentJSON(a))
}

// parseDueDate accepts RFC 3339 or a bare date.
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Create stores a new assignment. Admin only via the policy.
func (h *AssignmentHandler) Create(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	d := policy.Decide(actor, policy.ActionCreate,
		policy.Resource{Kind: policy.KindAssignment, OwnerID: actor.ID}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	title := c.FormValue("title")
	dueRaw := c.FormValue("dueDate")
	if title == "" || dueRaw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and dueDate are required"})
	}
	due, err := parseDueDate(dueRaw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dueDate"})
	}
	var materialIDs []uint64
	if raw := c.FormValue("materialIds"); raw != "" {
		materialIDs, err = model.ParseIDList(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid materialIds"})
		}
	}
	file, err := upload.FromForm(c, upload.General, "file")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	a := &model.Assignment{
		CreatorID:   actor.ID,
		Title:       title,
		Description: c.FormValue("description"),
		DueDate:     due,
		MaterialIDs: materialIDs,
		IsPublished: c.FormValue("isPublished") != "false",
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Assignments.Create(ctx, a, file); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, assignmentJSON(a))
}

// Update applies a partial edit. Admin only via the policy.
func (h *AssignmentHandler) Update(c echo.Context) error {
	a, resp := h.load(c, policy.ActionUpdate)
	if a == nil {
		return resp
	}

	file, err := upload.FromForm(c, upload.General, "file")
	if err != nil {
		if r, ok := uploadFailed(c, err); ok {
			return r
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	p := repository.AssignmentUpdate{
		Title:       formString(c, "title"),
		Description: formString(c, "description"),
		File:        file,
	}
	if v := formString(c, "dueDate"); v != nil {
		due, err := parseDueDate(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dueDate"})
		}
		s := due.UTC().Format("2006-01-02 15:04:05")
		p.DueDate = &s
	}
	if v := formString(c, "materialIds"); v != nil {
		ids, err := model.ParseIDList(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid materialIds"})
		}
		p.MaterialIDs = ids
		p.HasMaterialIDs = true
	}
	if v := formString(c, "isPublished"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid isPublished"})
		}
		p.IsPublished = &b
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Assignments.Update(ctx, a.ID, p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	a, err = h.Assignments.GetByID(ctx, a.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, assignmentJSON(a))
}

// Delete removes an assignment and all its submissions. Admin only via the
// policy.
func (h *AssignmentHandler) Delete(c echo.Context) error {
	a, resp := h.load(c, policy.ActionDelete)
	if a == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Assignments.Delete(ctx, a.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// File serves the handout attachment.
func (h *AssignmentHandler) File(c echo.Context) error {
	a, resp := h.load(c, policy.ActionRead)
	if a == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	asset, err := h.Assignments.ReadAsset(ctx, a.ID)
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, asset, true)
}

// Submit records the caller's answer to an assignment. The policy rules on
// role, deadline and prior submission; the unique key backs the prior-
// submission check against races.
func (h *AssignmentHandler) Submit(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	id, err := pathID(c)
	if err != nil {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	already, err := h.Submissions.ExistsForPair(ctx, id, actor.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(actor, policy.ActionSubmit, policy.Resource{
		Kind:             policy.KindAssignment,
		OwnerID:          a.CreatorID,
		Published:        a.IsPublished,
		DueDate:          a.DueDate,
		AlreadySubmitted: already,
	}, time.Now())
	if !d.Allowed {
		return denied(c, d)
	}

	file, err := upload.FromForm(c, upload.General, "file")
	if err != nil {
		if resp, ok := uploadFailed(c, err); ok {
			return resp
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid upload"})
	}

	message := c.FormValue("message")
	if message == "" && file == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a message or a file is required"})
	}

	s := &model.Submission{
		AssignmentID: id,
		StudentID:    actor.ID,
		Message:      message,
	}
	if err := h.Submissions.Create(ctx, s, file); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubmission) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "assignment already submitted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submit failed"})
	}
	s.SubmittedAt = time.Now().UTC()

	if h.Publish != nil {
		ev := queue.SubmissionReceivedEvent{
			SubmissionID:    s.ID,
			AssignmentID:    a.ID,
			AssignmentTitle: a.Title,
			StudentID:       actor.ID,
			HasFile:         s.File.Present(),
			SubmittedAt:     s.SubmittedAt.Format(time.RFC3339),
		}
		if err := h.Publish(ctx, ev); err != nil {
			c.Logger().Warnf("publish submission event for %d: %v", s.ID, err)
		}
	}
	return c.JSON(http.StatusCreated, submissionJSON(s))
}

// ListSubmissions returns submissions for one assignment. Admin only; the
// optional graded filter splits the grading queue.
func (h *AssignmentHandler) ListSubmissions(c echo.Context) error {
	a, resp := h.load(c, policy.ActionGrade)
	if a == nil {
		return resp
	}
	f := repository.SubmissionFilter{Page: pageFromQuery(c)}
	if v := c.QueryParam("graded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid graded"})
		}
		f.Graded = &b
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	subs, total, err := h.Submissions.ListByAssignment(ctx, a.ID, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]submissionResp, 0, len(subs))
	for _, s := range subs {
		out = append(out, submissionJSON(s))
	}
	return c.JSON(http.StatusOK, listResp(out, f.Page, total))
}

// MySubmissions returns the caller's own submissions across assignments.
func (h *AssignmentHandler) MySubmissions(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	p := pageFromQuery(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	subs, total, err := h.Submissions.ListByStudent(ctx, actor.ID, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]submissionResp, 0, len(subs))
	for _, s := range subs {
		out = append(out, submissionJSON(s))
	}
	return c.JSON(http.StatusOK, listResp(out, p, total))
}

func (h *AssignmentHandler) loadSubmission(c echo.Context, action policy.Action) (*model.Submission, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	d := policy.Decide(middleware.CurrentActor(c), action,
		policy.Resource{Kind: policy.KindSubmission, OwnerID: s.StudentID}, time.Now())
	if !d.Allowed {
		return nil, denied(c, d)
	}
	return s, nil
}

// GetSubmission returns one submission to its owner or an admin.
func (h *AssignmentHandler) GetSubmission(c echo.Context) error {
	s, resp := h.loadSubmission(c, policy.ActionRead)
	if s == nil {
		return resp
	}
	return c.JSON(http.StatusOK, submissionJSON(s))
}

// SubmissionFile streams a submission's attachment to its owner or an admin.
func (h *AssignmentHandler) SubmissionFile(c echo.Context) error {
	s, resp := h.loadSubmission(c, policy.ActionDownload)
	if s == nil {
		return resp
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Submissions.ReadAsset(ctx, s.ID)
	if err != nil {
		return assetLookupFailed(c, err)
	}
	return serveAsset(c, a, true)
}

// DeleteSubmission removes one submission. The owning student can withdraw
// while ungraded and submit again; once a grade is recorded only an admin
// may remove it.
func (h *AssignmentHandler) DeleteSubmission(c echo.Context) error {
	actor := middleware.CurrentActor(c)
	s, resp := h.loadSubmission(c, policy.ActionDelete)
	if s == nil {
		return resp
	}
	if s.Graded && !actor.Admin() {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "graded submissions cannot be withdrawn"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Submissions.Delete(ctx, s.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type gradeReq struct {
	Grade    string `json:"grade"`
	Feedback string `json:"feedback"`
}

// Grade records a letter grade and optional feedback. Admin only via the
// policy; the grade must come from the closed letter set.
func (h *AssignmentHandler) Grade(c echo.Context) error {
	s, resp := h.loadSubmission(c, policy.ActionGrade)
	if s == nil {
		return resp
	}
	var req gradeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.ValidGrade(req.Grade) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid grade"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Submissions.Grade(ctx, s.ID, req.Grade, req.Feedback); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grade failed"})
	}
	s, err := h.Submissions.GetByID(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, submissionJSON(s))
}
