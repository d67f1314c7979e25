// Package policy implements the authorization decision engine consulted by
// every handler. It is a pure function over (actor, action, resource): no
// I/O, no clock reads beyond the instant passed in, no knowledge of HTTP.
// Centralizing the decision table here replaces the per-controller ownership
// and role checks that tend to drift apart over time.
package policy

import (
	"time"

	"github.com/ministryhub/platform/internal/model"
)

// Action enumerates the operations the engine can rule on.
type Action string

const (
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionSubmit   Action = "submit"
	ActionGrade    Action = "grade"
	ActionDownload Action = "download"
)

// Kind identifies the resource family a decision concerns.
type Kind string

const (
	KindSermon     Kind = "sermon"
	KindPrayer     Kind = "prayer"
	KindBook       Kind = "book"
	KindMaterial   Kind = "material"
	KindAssignment Kind = "assignment"
	KindSubmission Kind = "submission"
)

// curated reports whether a kind follows the editorial model where mutation
// is restricted to admins regardless of who created the row. Sermons and
// prayers stay author self-service.
func curated(k Kind) bool {
	return k == KindBook || k == KindMaterial || k == KindAssignment
}

// Actor is the identity performing an operation. A nil *Actor denotes an
// anonymous request.
type Actor struct {
	ID   uint64
	Role string
}

// Admin reports whether the actor carries the admin role.
func (a *Actor) Admin() bool { return a != nil && a.Role == model.RoleAdmin }

// Resource describes the instance being acted on, reduced to the fields the
// decision table needs. For creation the resource does not exist yet; treat
// it as owned by the acting identity (creation is always self-owned).
type Resource struct {
	Kind      Kind
	OwnerID   uint64
	Published bool

	// Assignment-only context for submit decisions.
	DueDate          time.Time
	AlreadySubmitted bool
}

// Reason explains a denial with enough context for the transport layer to
// pick a status code without the engine knowing about HTTP.
type Reason int

const (
	ReasonNone Reason = iota
	// ReasonNotFound means the denial must be indistinguishable from the
	// resource not existing, so unpublished content never reveals itself.
	ReasonNotFound
	// ReasonForbidden is a plain refusal where existence is not a secret.
	ReasonForbidden
	// ReasonDeadlinePassed rejects a submission after the due date.
	ReasonDeadlinePassed
	// ReasonAlreadySubmitted rejects a second submission for the same pair.
	ReasonAlreadySubmitted
)

// Decision is the engine's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// Decide evaluates the rule table in order; the first match wins.
func Decide(actor *Actor, action Action, res Resource, now time.Time) Decision {
	// Rule 1: admins may do everything except submit. Submission stays
	// student-only regardless of privilege.
	if actor.Admin() && action != ActionSubmit {
		return allow()
	}

	switch action {
	case ActionRead, ActionDownload:
		if res.Kind == KindSubmission {
			// Submissions have no publish state; they are visible to the
			// submitting student (and admins via rule 1).
			if actor != nil && actor.ID == res.OwnerID {
				return allow()
			}
			return deny(ReasonForbidden)
		}
		// Rule 2: published content is public, anonymous included.
		if res.Published {
			return allow()
		}
		// Rule 3: unpublished content is owner-only and must not reveal its
		// existence to anyone else.
		if actor != nil && actor.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotFound)

	case ActionCreate:
		if actor == nil {
			return deny(ReasonForbidden)
		}
		if curated(res.Kind) {
			// Rule 1 already admitted admins; everyone else is refused.
			return deny(ReasonForbidden)
		}
		// Sermons and prayers are authored by clergy (and admins).
		if actor.Role == model.RoleClergy {
			return allow()
		}
		return deny(ReasonForbidden)

	case ActionUpdate, ActionDelete:
		// Rule 4: curated kinds are admin-only; self-service kinds allow the
		// owner. Either way the refusal is shaped like not-found, for the
		// same non-disclosure reason as rule 3.
		if !curated(res.Kind) && actor != nil && actor.ID == res.OwnerID {
			return allow()
		}
		return deny(ReasonNotFound)

	case ActionSubmit:
		// Rule 5: students only, published assignments only, before the due
		// date, and only once per (assignment, student) pair.
		if actor == nil || actor.Role != model.RoleStudent {
			return deny(ReasonForbidden)
		}
		if !res.Published {
			return deny(ReasonNotFound)
		}
		if now.After(res.DueDate) {
			return deny(ReasonDeadlinePassed)
		}
		if res.AlreadySubmitted {
			return deny(ReasonAlreadySubmitted)
		}
		return allow()

	case ActionGrade:
		// Rule 6: grading is admin-only and rule 1 already admitted admins.
		return deny(ReasonForbidden)
	}

	return deny(ReasonForbidden)
}
