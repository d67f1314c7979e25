package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// AssignmentRepo owns queries against assignments and the
// assignment_materials join table.
type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

var assignmentSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"dueDate":   "due_date",
}

const assignmentMetaColumns = `id, creator_id, title, description, due_date,
	file_name, file_type, file_size, is_published, created_at, updated_at`

func scanAssignment(row interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var fileName, fileType sql.NullString
	var fileSize sql.NullInt64
	err := row.Scan(&a.ID, &a.CreatorID, &a.Title, &a.Description, &a.DueDate,
		&fileName, &fileType, &fileSize, &a.IsPublished, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.File = scanMeta(fileName, fileType, fileSize)
	return &a, nil
}

// Create inserts an assignment and its material references in one
// transaction. A bad material id fails the whole insert.
func (r *AssignmentRepo) Create(ctx context.Context, a *model.Assignment, file *model.Asset) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (creator_id, title, description, due_date,
			file_data, file_type, file_name, file_size, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		a.CreatorID, a.Title, a.Description, a.DueDate,
		assetData(file), assetType(file), assetName(file), assetSize(file),
		a.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	if err := insertMaterialRefs(ctx, tx, a.ID, a.MaterialIDs); err != nil {
		return err
	}
	a.File = file.Meta()
	return tx.Commit()
}

func insertMaterialRefs(ctx context.Context, tx *sql.Tx, assignmentID uint64, materialIDs []uint64) error {
	for _, mid := range materialIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO assignment_materials (assignment_id, material_id) VALUES (?,?)",
			assignmentID, mid); err != nil {
			return err
		}
	}
	return nil
}

func (r *AssignmentRepo) materialIDs(ctx context.Context, id uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT material_id FROM assignment_materials WHERE assignment_id=? ORDER BY material_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var mid uint64
		if err := rows.Scan(&mid); err != nil {
			return nil, err
		}
		out = append(out, mid)
	}
	return out, rows.Err()
}

// GetByID returns one assignment with its material references, without blob
// bytes.
func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (*model.Assignment, error) {
	a, err := scanAssignment(r.DB.QueryRowContext(ctx,
		"SELECT "+assignmentMetaColumns+" FROM assignments WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.MaterialIDs, err = r.materialIDs(ctx, id)
	return a, err
}

// AssignmentFilter narrows List results.
type AssignmentFilter struct {
	Search             string
	IncludeUnpublished bool
	Page
}

// List returns a page of assignments plus the total match count. Material
// references are not loaded for listings.
func (r *AssignmentRepo) List(ctx context.Context, f AssignmentFilter) ([]*model.Assignment, int, error) {
	f.Page = f.Page.Normalize()
	where := []string{"1=1"}
	args := []any{}
	if !f.IncludeUnpublished {
		where = append(where, "is_published=1")
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		args = append(args, like(f.Search), like(f.Search))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM assignments WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(f.Sort, assignmentSortColumns, "due_date ASC")
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+assignmentMetaColumns+" FROM assignments WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AssignmentUpdate is a field-level partial update. MaterialIDs, when set,
// replaces the whole reference list.
type AssignmentUpdate struct {
	Title          *string
	Description    *string
	DueDate        *string
	IsPublished    *bool
	MaterialIDs    []uint64
	HasMaterialIDs bool
	File           *model.Asset
}

// Update applies a partial update inside a transaction so the reference list
// swap and the row update land together.
func (r *AssignmentRepo) Update(ctx context.Context, id uint64, p AssignmentUpdate) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sets := []string{}
	args := []any{}
	addStr := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	addStr("title", p.Title)
	addStr("description", p.Description)
	addStr("due_date", p.DueDate)
	if p.IsPublished != nil {
		sets = append(sets, "is_published=?")
		args = append(args, *p.IsPublished)
	}
	if p.File.Present() {
		sets = append(sets, "file_data=?", "file_type=?", "file_name=?", "file_size=?")
		args = append(args, p.File.Data, p.File.ContentType, p.File.Filename, p.File.Size)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := tx.ExecContext(ctx,
			"UPDATE assignments SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return err
		}
	}
	if p.HasMaterialIDs {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM assignment_materials WHERE assignment_id=?", id); err != nil {
			return err
		}
		if err := insertMaterialRefs(ctx, tx, id, p.MaterialIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Delete removes an assignment together with its submissions and material
// references, in one transaction.
func (r *AssignmentRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM assignment_submissions WHERE assignment_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM assignment_materials WHERE assignment_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// ReadAsset returns the bytes of the handout file.
func (r *AssignmentRepo) ReadAsset(ctx context.Context, id uint64) (*model.Asset, error) {
	return readSlot(ctx, r.DB, "assignments", "file", id)
}
