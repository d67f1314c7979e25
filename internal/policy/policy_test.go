package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ministryhub/platform/internal/model"
)

var (
	now     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	admin   = &Actor{ID: 1, Role: model.RoleAdmin}
	clergy  = &Actor{ID: 2, Role: model.RoleClergy}
	student = &Actor{ID: 3, Role: model.RoleStudent}
)

func TestAdminAllowedEverythingButSubmit(t *testing.T) {
	res := Resource{Kind: KindBook, OwnerID: 99, Published: false}
	for _, action := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionGrade, ActionDownload} {
		d := Decide(admin, action, res, now)
		assert.True(t, d.Allowed, "admin should be allowed %s", action)
	}
	d := Decide(admin, ActionSubmit, Resource{Kind: KindAssignment, Published: true, DueDate: now.Add(time.Hour)}, now)
	assert.False(t, d.Allowed)
}

func TestPublishedContentIsPublic(t *testing.T) {
	res := Resource{Kind: KindSermon, OwnerID: 2, Published: true}
	assert.True(t, Decide(nil, ActionRead, res, now).Allowed)
	assert.True(t, Decide(student, ActionDownload, res, now).Allowed)
}

func TestUnpublishedHiddenAsNotFound(t *testing.T) {
	res := Resource{Kind: KindSermon, OwnerID: 2, Published: false}

	d := Decide(nil, ActionRead, res, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotFound, d.Reason)

	d = Decide(student, ActionRead, res, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotFound, d.Reason, "non-owner must see not-found, never forbidden")

	assert.True(t, Decide(clergy, ActionRead, res, now).Allowed, "owner reads own draft")
}

func TestSelfServiceMutation(t *testing.T) {
	res := Resource{Kind: KindPrayer, OwnerID: 2, Published: true}
	assert.True(t, Decide(clergy, ActionUpdate, res, now).Allowed)
	assert.True(t, Decide(clergy, ActionDelete, res, now).Allowed)

	d := Decide(student, ActionUpdate, res, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotFound, d.Reason)
}

func TestCuratedKindsAdminOnlyMutation(t *testing.T) {
	for _, kind := range []Kind{KindBook, KindMaterial, KindAssignment} {
		// Even the creator of curated content cannot mutate it without admin.
		res := Resource{Kind: kind, OwnerID: clergy.ID, Published: true}
		d := Decide(clergy, ActionUpdate, res, now)
		assert.False(t, d.Allowed, "clergy must not update %s", kind)
		assert.Equal(t, ReasonNotFound, d.Reason)
		assert.True(t, Decide(admin, ActionDelete, res, now).Allowed)
	}
}

func TestCreateGating(t *testing.T) {
	assert.True(t, Decide(clergy, ActionCreate, Resource{Kind: KindSermon}, now).Allowed)
	assert.False(t, Decide(student, ActionCreate, Resource{Kind: KindSermon}, now).Allowed)
	assert.False(t, Decide(nil, ActionCreate, Resource{Kind: KindPrayer}, now).Allowed)
	assert.False(t, Decide(clergy, ActionCreate, Resource{Kind: KindBook}, now).Allowed)
	assert.True(t, Decide(admin, ActionCreate, Resource{Kind: KindMaterial}, now).Allowed)
}

func TestSubmitRules(t *testing.T) {
	open := Resource{Kind: KindAssignment, OwnerID: 1, Published: true, DueDate: now.Add(24 * time.Hour)}

	assert.True(t, Decide(student, ActionSubmit, open, now).Allowed)

	d := Decide(clergy, ActionSubmit, open, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)

	draft := open
	draft.Published = false
	d = Decide(student, ActionSubmit, draft, now)
	assert.Equal(t, ReasonNotFound, d.Reason)

	late := open
	late.DueDate = now.Add(-time.Minute)
	d = Decide(student, ActionSubmit, late, now)
	assert.Equal(t, ReasonDeadlinePassed, d.Reason)

	twice := open
	twice.AlreadySubmitted = true
	d = Decide(student, ActionSubmit, twice, now)
	assert.Equal(t, ReasonAlreadySubmitted, d.Reason)
}

func TestSubmitExactlyAtDeadlineAllowed(t *testing.T) {
	res := Resource{Kind: KindAssignment, Published: true, DueDate: now}
	assert.True(t, Decide(student, ActionSubmit, res, now).Allowed)
}

func TestGradeAdminOnly(t *testing.T) {
	res := Resource{Kind: KindSubmission, OwnerID: student.ID}
	d := Decide(student, ActionGrade, res, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)
	assert.True(t, Decide(admin, ActionGrade, res, now).Allowed)
}

func TestSubmissionVisibility(t *testing.T) {
	res := Resource{Kind: KindSubmission, OwnerID: student.ID}
	assert.True(t, Decide(student, ActionRead, res, now).Allowed)
	assert.True(t, Decide(admin, ActionDownload, res, now).Allowed)

	other := &Actor{ID: 42, Role: model.RoleStudent}
	d := Decide(other, ActionRead, res, now)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonForbidden, d.Reason)

	d = Decide(nil, ActionDownload, res, now)
	assert.False(t, d.Allowed)
}
