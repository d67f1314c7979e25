package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// PrayerRepo owns queries against the prayers table.
type PrayerRepo struct{ DB *sql.DB }

func NewPrayerRepo(db *sql.DB) *PrayerRepo { return &PrayerRepo{DB: db} }

var prayerSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"category":  "category",
}

func scanPrayer(row interface{ Scan(...any) error }, withContent bool) (*model.Prayer, error) {
	var p model.Prayer
	var imgName, imgType sql.NullString
	var imgSize sql.NullInt64
	dest := []any{&p.ID, &p.AuthorID, &p.Title}
	if withContent {
		dest = append(dest, &p.Content)
	}
	dest = append(dest, &p.Category, &imgName, &imgType, &imgSize,
		&p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Image = scanMeta(imgName, imgType, imgSize)
	return &p, nil
}

// Create inserts a prayer with its optional image and populates the ID.
func (r *PrayerRepo) Create(ctx context.Context, p *model.Prayer, image *model.Asset) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO prayers (author_id, title, content, category,
			image_data, image_type, image_name, image_size, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.AuthorID, p.Title, p.Content, p.Category,
		assetData(image), assetType(image), assetName(image), assetSize(image),
		p.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Image = image.Meta()
	return nil
}

// GetByID returns a prayer including its content but no blob bytes.
func (r *PrayerRepo) GetByID(ctx context.Context, id uint64) (*model.Prayer, error) {
	const q = `SELECT id, author_id, title, content, category,
		image_name, image_type, image_size, is_published, created_at, updated_at
		FROM prayers WHERE id=?`
	p, err := scanPrayer(r.DB.QueryRowContext(ctx, q, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// PrayerFilter narrows List results.
type PrayerFilter struct {
	Category           string
	Search             string
	AuthorID           uint64
	IncludeUnpublished bool
	Page
}

// List returns a page of prayers without content bodies plus the total count.
func (r *PrayerRepo) List(ctx context.Context, f PrayerFilter) ([]*model.Prayer, int, error) {
	f.Page = f.Page.Normalize()
	where := []string{"1=1"}
	args := []any{}
	if !f.IncludeUnpublished {
		where = append(where, "is_published=1")
	}
	if f.AuthorID != 0 {
		where = append(where, "author_id=?")
		args = append(args, f.AuthorID)
	}
	if f.Category != "" {
		where = append(where, "category=?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR content LIKE ?)")
		args = append(args, like(f.Search), like(f.Search))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM prayers WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(f.Sort, prayerSortColumns, "created_at DESC")
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, author_id, title, category, image_name, image_type, image_size,
			is_published, created_at, updated_at
		 FROM prayers WHERE `+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Prayer
	for rows.Next() {
		p, err := scanPrayer(rows, false)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PrayerUpdate is a field-level partial update.
type PrayerUpdate struct {
	Title       *string
	Content     *string
	Category    *string
	IsPublished *bool
	Image       *model.Asset
}

// Update applies a partial update to one prayer row.
func (r *PrayerRepo) Update(ctx context.Context, id uint64, p PrayerUpdate) error {
	sets := []string{}
	args := []any{}
	addStr := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	addStr("title", p.Title)
	addStr("content", p.Content)
	addStr("category", p.Category)
	if p.IsPublished != nil {
		sets = append(sets, "is_published=?")
		args = append(args, *p.IsPublished)
	}
	if p.Image.Present() {
		sets = append(sets, "image_data=?", "image_type=?", "image_name=?", "image_size=?")
		args = append(args, p.Image.Data, p.Image.ContentType, p.Image.Filename, p.Image.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE prayers SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a prayer row.
func (r *PrayerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM prayers WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadAsset returns the prayer image bytes.
func (r *PrayerRepo) ReadAsset(ctx context.Context, id uint64, slot string) (*model.Asset, error) {
	if slot != "image" {
		return nil, ErrAssetNotPresent
	}
	return readSlot(ctx, r.DB, "prayers", "image", id)
}
