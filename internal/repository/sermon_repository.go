package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// SermonRepo owns queries against the sermons table. List and detail reads
// never select blob columns; the dedicated ReadAsset path does.
type SermonRepo struct{ DB *sql.DB }

func NewSermonRepo(db *sql.DB) *SermonRepo { return &SermonRepo{DB: db} }

var sermonSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"category":  "category",
}

const sermonMetaColumns = `id, author_id, title, summary, video_link, category, tags,
	image_name, image_type, image_size, audio_name, audio_type, audio_size,
	is_published, created_at, updated_at`

func scanSermonMeta(row interface{ Scan(...any) error }, withContent bool) (*model.Sermon, error) {
	var s model.Sermon
	var tags string
	var imgName, imgType, audName, audType sql.NullString
	var imgSize, audSize sql.NullInt64
	dest := []any{&s.ID, &s.AuthorID, &s.Title}
	if withContent {
		dest = append(dest, &s.Content)
	}
	dest = append(dest, &s.Summary, &s.VideoLink, &s.Category, &tags,
		&imgName, &imgType, &imgSize, &audName, &audType, &audSize,
		&s.IsPublished, &s.CreatedAt, &s.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Tags = model.ParseTags(tags)
	s.Image = scanMeta(imgName, imgType, imgSize)
	s.Audio = scanMeta(audName, audType, audSize)
	return &s, nil
}

// Create inserts a sermon with its optional attachments and populates the ID.
func (r *SermonRepo) Create(ctx context.Context, s *model.Sermon, image, audio *model.Asset) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO sermons (author_id, title, content, summary, video_link, category, tags,
			image_data, image_type, image_name, image_size,
			audio_data, audio_type, audio_name, audio_size, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.AuthorID, s.Title, s.Content, s.Summary, s.VideoLink, s.Category, model.JoinTags(s.Tags),
		assetData(image), assetType(image), assetName(image), assetSize(image),
		assetData(audio), assetType(audio), assetName(audio), assetSize(audio),
		s.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Image = image.Meta()
	s.Audio = audio.Meta()
	return nil
}

// GetByID returns a sermon including its full content but no blob bytes.
func (r *SermonRepo) GetByID(ctx context.Context, id uint64) (*model.Sermon, error) {
	const q = `SELECT id, author_id, title, content, summary, video_link, category, tags,
		image_name, image_type, image_size, audio_name, audio_type, audio_size,
		is_published, created_at, updated_at FROM sermons WHERE id=?`
	s, err := scanSermonMeta(r.DB.QueryRowContext(ctx, q, id), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// SermonFilter narrows List results. When AuthorID is set, only that
// author's sermons are returned; IncludeUnpublished is only honored for the
// owner or an admin, decided by the caller.
type SermonFilter struct {
	Category           string
	Search             string
	AuthorID           uint64
	IncludeUnpublished bool
	Page
}

// List returns a page of sermons without their content bodies, plus the
// total match count.
func (r *SermonRepo) List(ctx context.Context, f SermonFilter) ([]*model.Sermon, int, error) {
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
		where = append(where, "(title LIKE ? OR content LIKE ? OR tags LIKE ?)")
		args = append(args, like(f.Search), like(f.Search), like(f.Search))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sermons WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(f.Sort, sermonSortColumns, "created_at DESC")
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+sermonMetaColumns+" FROM sermons WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Sermon
	for rows.Next() {
		s, err := scanSermonMeta(rows, false)
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

// SermonUpdate is a field-level partial update. Asset pointers replace the
// whole slot atomically inside the single UPDATE; nil leaves it untouched.
type SermonUpdate struct {
	Title       *string
	Content     *string
	Summary     *string
	VideoLink   *string
	Category    *string
	Tags        []string
	HasTags     bool
	IsPublished *bool
	Image       *model.Asset
	Audio       *model.Asset
}

// Update applies a partial update to one sermon row. Only the named columns
// are touched, so concurrent updates to other fields survive.
func (r *SermonRepo) Update(ctx context.Context, id uint64, p SermonUpdate) error {
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
	addStr("summary", p.Summary)
	addStr("video_link", p.VideoLink)
	addStr("category", p.Category)
	if p.HasTags {
		sets = append(sets, "tags=?")
		args = append(args, model.JoinTags(p.Tags))
	}
	if p.IsPublished != nil {
		sets = append(sets, "is_published=?")
		args = append(args, *p.IsPublished)
	}
	if p.Image.Present() {
		sets = append(sets, "image_data=?", "image_type=?", "image_name=?", "image_size=?")
		args = append(args, p.Image.Data, p.Image.ContentType, p.Image.Filename, p.Image.Size)
	}
	if p.Audio.Present() {
		sets = append(sets, "audio_data=?", "audio_type=?", "audio_name=?", "audio_size=?")
		args = append(args, p.Audio.Data, p.Audio.ContentType, p.Audio.Filename, p.Audio.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sermons SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a sermon and, with it, its embedded attachments.
func (r *SermonRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sermons WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadAsset returns the bytes of one slot ("image" or "audio").
func (r *SermonRepo) ReadAsset(ctx context.Context, id uint64, slot string) (*model.Asset, error) {
	var col string
	switch slot {
	case "image":
		col = "image"
	case "audio":
		col = "audio"
	default:
		return nil, ErrAssetNotPresent
	}
	return readSlot(ctx, r.DB, "sermons", col, id)
}
