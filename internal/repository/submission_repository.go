package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// SubmissionRepo owns queries against the assignment_submissions table.
type SubmissionRepo struct{ DB *sql.DB }

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{DB: db} }

const submissionColumns = `id, assignment_id, student_id, message,
	file_name, file_type, file_size, submitted_at, graded, grade, feedback, graded_at`

func scanSubmission(row interface{ Scan(...any) error }) (*model.Submission, error) {
	var s model.Submission
	var fileName, fileType sql.NullString
	var fileSize sql.NullInt64
	err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Message,
		&fileName, &fileType, &fileSize, &s.SubmittedAt, &s.Graded,
		&s.Grade, &s.Feedback, &s.GradedAt)
	if err != nil {
		return nil, err
	}
	s.File = scanMeta(fileName, fileType, fileSize)
	return &s, nil
}

// Create inserts a submission. The unique key on (assignment_id, student_id)
// is the only duplicate check; a 1062 from the database comes back as
// ErrDuplicateSubmission.
func (r *SubmissionRepo) Create(ctx context.Context, s *model.Submission, file *model.Asset) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO assignment_submissions (assignment_id, student_id, message,
			file_data, file_type, file_name, file_size)
		 VALUES (?,?,?,?,?,?,?)`,
		s.AssignmentID, s.StudentID, s.Message,
		assetData(file), assetType(file), assetName(file), assetSize(file))
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSubmission
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Grade = model.GradePending
	s.File = file.Meta()
	return nil
}

// GetByID returns one submission without blob bytes.
func (r *SubmissionRepo) GetByID(ctx context.Context, id uint64) (*model.Submission, error) {
	s, err := scanSubmission(r.DB.QueryRowContext(ctx,
		"SELECT "+submissionColumns+" FROM assignment_submissions WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ExistsForPair reports whether the student already submitted to the
// assignment. Used only to shape early policy denials; the insert path does
// not depend on it.
func (r *SubmissionRepo) ExistsForPair(ctx context.Context, assignmentID, studentID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM assignment_submissions WHERE assignment_id=? AND student_id=?",
		assignmentID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// SubmissionFilter narrows ListByAssignment. Graded, when set, keeps only
// graded or only ungraded rows.
type SubmissionFilter struct {
	Graded *bool
	Page
}

// ListByAssignment returns a page of submissions for one assignment.
func (r *SubmissionRepo) ListByAssignment(ctx context.Context, assignmentID uint64, f SubmissionFilter) ([]*model.Submission, int, error) {
	f.Page = f.Page.Normalize()
	where := []string{"assignment_id=?"}
	args := []any{assignmentID}
	if f.Graded != nil {
		where = append(where, "graded=?")
		args = append(args, *f.Graded)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignment_submissions WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM assignment_submissions WHERE "+cond+
			" ORDER BY submitted_at DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSubmissions(rows, total)
}

// ListByStudent returns every submission made by one student, newest first.
func (r *SubmissionRepo) ListByStudent(ctx context.Context, studentID uint64, p Page) ([]*model.Submission, int, error) {
	p = p.Normalize()
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignment_submissions WHERE student_id=?",
		studentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+submissionColumns+" FROM assignment_submissions WHERE student_id=?"+
			" ORDER BY submitted_at DESC LIMIT ? OFFSET ?",
		studentID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectSubmissions(rows, total)
}

func collectSubmissions(rows *sql.Rows, total int) ([]*model.Submission, int, error) {
	var out []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Grade records a grade and optional feedback, stamping graded_at once.
func (r *SubmissionRepo) Grade(ctx context.Context, id uint64, grade, feedback string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE assignment_submissions SET graded=1, grade=?, feedback=?, graded_at=NOW() WHERE id=?",
		grade, feedback, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes one submission.
func (r *SubmissionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM assignment_submissions WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadAsset returns the bytes of the submitted file.
func (r *SubmissionRepo) ReadAsset(ctx context.Context, id uint64) (*model.Asset, error) {
	return readSlot(ctx, r.DB, "assignment_submissions", "file", id)
}
