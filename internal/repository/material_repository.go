package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// MaterialRepo owns queries against the materials table.
type MaterialRepo struct{ DB *sql.DB }

func NewMaterialRepo(db *sql.DB) *MaterialRepo { return &MaterialRepo{DB: db} }

var materialSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"category":  "category",
	"views":     "number_of_views",
	"downloads": "number_of_downloads",
}

const materialMetaColumns = `id, creator_id, title, description, category, type,
	external_link, tags, file_name, file_type, file_size,
	thumb_name, thumb_type, thumb_size,
	number_of_views, number_of_downloads, is_published, created_at, updated_at`

func scanMaterial(row interface{ Scan(...any) error }) (*model.Material, error) {
	var m model.Material
	var tags string
	var fileName, fileType, thumbName, thumbType sql.NullString
	var fileSize, thumbSize sql.NullInt64
	err := row.Scan(&m.ID, &m.CreatorID, &m.Title, &m.Description, &m.Category,
		&m.Type, &m.ExternalLink, &tags, &fileName, &fileType, &fileSize,
		&thumbName, &thumbType, &thumbSize, &m.Views, &m.Downloads,
		&m.IsPublished, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Tags = model.ParseTags(tags)
	m.File = scanMeta(fileName, fileType, fileSize)
	m.Thumbnail = scanMeta(thumbName, thumbType, thumbSize)
	return &m, nil
}

// Create inserts a material. The file-vs-link exclusivity is validated by the
// handler; here both simply land in their columns.
func (r *MaterialRepo) Create(ctx context.Context, m *model.Material, file, thumb *model.Asset) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO materials (creator_id, title, description, category, type,
			external_link, tags,
			file_data, file_type, file_name, file_size,
			thumb_data, thumb_type, thumb_name, thumb_size, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.CreatorID, m.Title, m.Description, m.Category, m.Type,
		m.ExternalLink, model.JoinTags(m.Tags),
		assetData(file), assetType(file), assetName(file), assetSize(file),
		assetData(thumb), assetType(thumb), assetName(thumb), assetSize(thumb),
		m.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.File = file.Meta()
	m.Thumbnail = thumb.Meta()
	return nil
}

// GetByID returns one material without blob bytes.
func (r *MaterialRepo) GetByID(ctx context.Context, id uint64) (*model.Material, error) {
	m, err := scanMaterial(r.DB.QueryRowContext(ctx,
		"SELECT "+materialMetaColumns+" FROM materials WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// MaterialFilter narrows List results.
type MaterialFilter struct {
	Category           string
	Type               string
	Tag                string
	Search             string
	IncludeUnpublished bool
	Page
}

// List returns a page of materials plus the total match count.
func (r *MaterialRepo) List(ctx context.Context, f MaterialFilter) ([]*model.Material, int, error) {
	f.Page = f.Page.Normalize()
	where := []string{"1=1"}
	args := []any{}
	if !f.IncludeUnpublished {
		where = append(where, "is_published=1")
	}
	if f.Category != "" {
		where = append(where, "category=?")
		args = append(args, f.Category)
	}
	if f.Type != "" {
		where = append(where, "type=?")
		args = append(args, f.Type)
	}
	if f.Tag != "" {
		where = append(where, "tags LIKE ?")
		args = append(args, like(f.Tag))
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		args = append(args, like(f.Search), like(f.Search))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM materials WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(f.Sort, materialSortColumns, "created_at DESC")
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+materialMetaColumns+" FROM materials WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MaterialUpdate is a field-level partial update. Setting File clears the
// external link and vice versa, keeping exactly one content source; ClearFile
// and ClearLink exist for the transitions where the other side arrives in the
// same request.
type MaterialUpdate struct {
	Title        *string
	Description  *string
	Category     *string
	Type         *string
	ExternalLink *string
	Tags         []string
	HasTags      bool
	IsPublished  *bool
	File         *model.Asset
	Thumbnail    *model.Asset
	ClearFile    bool
	ClearLink    bool
}

// Update applies a partial update.
func (r *MaterialRepo) Update(ctx context.Context, id uint64, p MaterialUpdate) error {
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
	addStr("category", p.Category)
	addStr("type", p.Type)
	addStr("external_link", p.ExternalLink)
	if p.HasTags {
		sets = append(sets, "tags=?")
		args = append(args, model.JoinTags(p.Tags))
	}
	if p.IsPublished != nil {
		sets = append(sets, "is_published=?")
		args = append(args, *p.IsPublished)
	}
	if p.File.Present() {
		sets = append(sets, "file_data=?", "file_type=?", "file_name=?", "file_size=?")
		args = append(args, p.File.Data, p.File.ContentType, p.File.Filename, p.File.Size)
	} else if p.ClearFile {
		sets = append(sets, "file_data=NULL", "file_type=NULL", "file_name=NULL", "file_size=NULL")
	}
	if p.ClearLink {
		sets = append(sets, "external_link=''")
	}
	if p.Thumbnail.Present() {
		sets = append(sets, "thumb_data=?", "thumb_type=?", "thumb_name=?", "thumb_size=?")
		args = append(args, p.Thumbnail.Data, p.Thumbnail.ContentType, p.Thumbnail.Filename, p.Thumbnail.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE materials SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a material and its join-table references.
func (r *MaterialRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM assignment_materials WHERE material_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM materials WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// IncrementViews bumps the view counter in place.
func (r *MaterialRepo) IncrementViews(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE materials SET number_of_views = number_of_views + 1 WHERE id=?", id)
	return err
}

// IncrementDownloads bumps the download counter in place.
func (r *MaterialRepo) IncrementDownloads(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE materials SET number_of_downloads = number_of_downloads + 1 WHERE id=?", id)
	return err
}

// DistinctTags returns every tag currently used by a published material,
// deduplicated and sorted by the caller's needs. Tags are stored as one
// comma-separated column, so splitting happens here rather than in SQL.
func (r *MaterialRepo) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT DISTINCT tags FROM materials WHERE is_published=1 AND tags <> ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		for _, t := range model.ParseTags(raw) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out, rows.Err()
}

// ReadAsset returns the bytes of one slot ("file" or "thumb").
func (r *MaterialRepo) ReadAsset(ctx context.Context, id uint64, slot string) (*model.Asset, error) {
	switch slot {
	case "file", "thumb":
		return readSlot(ctx, r.DB, "materials", slot, id)
	}
	return nil, ErrAssetNotPresent
}
