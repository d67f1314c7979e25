package model

import (
	"database/sql"
	"time"
)

// Assignment is admin-managed coursework with a due date, optional handout
// file and references to supporting materials. Deleting an assignment
// cascades to its submissions.
type Assignment struct {
	ID          uint64
	CreatorID   uint64
	Title       string
	Description string
	DueDate     time.Time
	MaterialIDs []uint64
	File        AssetMeta
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overdue reports whether the submission deadline has passed.
func (a *Assignment) Overdue(now time.Time) bool { return now.After(a.DueDate) }

// LetterGrades is the closed set of grades an admin may assign. "Pending" is
// the initial state and cannot be assigned explicitly.
var LetterGrades = []string{"A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "D-", "F"}

// GradePending marks an ungraded submission.
const GradePending = "Pending"

// ValidGrade reports whether g is an assignable letter grade.
func ValidGrade(g string) bool {
	for _, v := range LetterGrades {
		if v == g {
			return true
		}
	}
	return false
}

// Submission records a student's answer to an assignment. At most one row
// exists per (assignment, student) pair, enforced by a unique key in the
// database rather than by application-level checks.
type Submission struct {
	ID           uint64
	AssignmentID uint64
	StudentID    uint64
	Message      string
	File         AssetMeta
	SubmittedAt  time.Time
	Graded       bool
	Grade        string
	Feedback     string
	GradedAt     sql.NullTime
}
