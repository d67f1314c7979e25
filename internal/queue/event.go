// Package queue defines message payloads exchanged over the message broker.
package queue

// SubmissionReceivedEvent is published when a student's submission is
// accepted. Downstream consumers can notify graders or feed analytics
// without touching the primary database.
type SubmissionReceivedEvent struct {
	SubmissionID    uint64 `json:"submission_id"`
	AssignmentID    uint64 `json:"assignment_id"`
	AssignmentTitle string `json:"assignment_title"`
	StudentID       uint64 `json:"student_id"`
	HasFile         bool   `json:"has_file"`
	SubmittedAt     string `json:"submitted_at"`
}
