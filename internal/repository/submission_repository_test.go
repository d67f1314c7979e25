package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ministryhub/platform/internal/model"
)

func TestSubmissionRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionRepo(db)

	mock.ExpectExec("INSERT INTO assignment_submissions").
		WithArgs(uint64(3), uint64(7), "done", []byte("pdf"), "application/pdf", "answer.pdf", int64(3)).
		WillReturnResult(sqlmock.NewResult(11, 1))

	s := &model.Submission{AssignmentID: 3, StudentID: 7, Message: "done"}
	file := &model.Asset{Data: []byte("pdf"), ContentType: "application/pdf", Filename: "answer.pdf", Size: 3}
	require.NoError(t, repo.Create(context.Background(), s, file))
	assert.Equal(t, uint64(11), s.ID)
	assert.Equal(t, model.GradePending, s.Grade)
	assert.True(t, s.File.Present())
}

func TestSubmissionRepoCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionRepo(db)

	mock.ExpectExec("INSERT INTO assignment_submissions").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '3-7' for key 'uq_submission_pair'"))

	s := &model.Submission{AssignmentID: 3, StudentID: 7}
	err := repo.Create(context.Background(), s, nil)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmissionRepoListByAssignmentGradedFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionRepo(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM assignment_submissions WHERE assignment_id=\? AND graded=\?`).
		WithArgs(uint64(3), false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT .+ FROM assignment_submissions WHERE assignment_id=").
		WithArgs(uint64(3), false, 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "assignment_id", "student_id", "message",
			"file_name", "file_type", "file_size", "submitted_at", "graded", "grade", "feedback", "graded_at",
		}).AddRow(11, 3, 7, "done", "answer.pdf", "application/pdf", 3, now, false, "Pending", "", nil))

	graded := false
	subs, total, err := repo.ListByAssignment(context.Background(), 3, SubmissionFilter{Graded: &graded})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, subs, 1)
	assert.Equal(t, model.GradePending, subs[0].Grade)
	assert.False(t, subs[0].GradedAt.Valid)
}

func TestSubmissionRepoGrade(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionRepo(db)

	mock.ExpectExec(`UPDATE assignment_submissions SET graded=1, grade=\?, feedback=\?, graded_at=NOW\(\)`).
		WithArgs("A-", "solid work", uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Grade(context.Background(), 11, "A-", "solid work"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepoGradeMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSubmissionRepo(db)

	mock.ExpectExec("UPDATE assignment_submissions SET graded=1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Grade(context.Background(), 99, "B", ""), ErrNotFound)
}
