package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// BookRepo owns queries against the books table.
type BookRepo struct{ DB *sql.DB }

func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{DB: db} }

var bookSortColumns = map[string]string{
	"createdAt": "created_at",
	"title":     "title",
	"category":  "category",
	"downloads": "number_of_downloads",
}

const bookMetaColumns = `id, uploader_id, title, description, author_name, category,
	cover_name, cover_type, cover_size, pdf_name, pdf_type, pdf_size,
	number_of_downloads, is_published, created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (*model.Book, error) {
	var b model.Book
	var coverName, coverType, pdfName, pdfType sql.NullString
	var coverSize, pdfSize sql.NullInt64
	err := row.Scan(&b.ID, &b.UploaderID, &b.Title, &b.Description, &b.AuthorName,
		&b.Category, &coverName, &coverType, &coverSize, &pdfName, &pdfType, &pdfSize,
		&b.Downloads, &b.IsPublished, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Cover = scanMeta(coverName, coverType, coverSize)
	b.PDF = scanMeta(pdfName, pdfType, pdfSize)
	return &b, nil
}

// Create inserts a book. The PDF is mandatory; the handler validates that
// before calling.
func (r *BookRepo) Create(ctx context.Context, b *model.Book, cover, pdf *model.Asset) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO books (uploader_id, title, description, author_name, category,
			cover_data, cover_type, cover_name, cover_size,
			pdf_data, pdf_type, pdf_name, pdf_size, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.UploaderID, b.Title, b.Description, b.AuthorName, b.Category,
		assetData(cover), assetType(cover), assetName(cover), assetSize(cover),
		assetData(pdf), assetType(pdf), assetName(pdf), assetSize(pdf),
		b.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Cover = cover.Meta()
	b.PDF = pdf.Meta()
	return nil
}

// GetByID returns one book without blob bytes.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	b, err := scanBook(r.DB.QueryRowContext(ctx,
		"SELECT "+bookMetaColumns+" FROM books WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// BookFilter narrows List results.
type BookFilter struct {
	Category           string
	Search             string
	UploaderID         uint64
	IncludeUnpublished bool
	Page
}

// List returns a page of books plus the total match count.
func (r *BookRepo) List(ctx context.Context, f BookFilter) ([]*model.Book, int, error) {
	f.Page = f.Page.Normalize()
	where := []string{"1=1"}
	args := []any{}
	if !f.IncludeUnpublished {
		where = append(where, "is_published=1")
	}
	if f.UploaderID != 0 {
		where = append(where, "uploader_id=?")
		args = append(args, f.UploaderID)
	}
	if f.Category != "" {
		where = append(where, "category=?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ? OR author_name LIKE ?)")
		args = append(args, like(f.Search), like(f.Search), like(f.Search))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM books WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(f.Sort, bookSortColumns, "created_at DESC")
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+bookMetaColumns+" FROM books WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// BookUpdate is a field-level partial update.
type BookUpdate struct {
	Title       *string
	Description *string
	AuthorName  *string
	Category    *string
	IsPublished *bool
	Cover       *model.Asset
	PDF         *model.Asset
}

// Update applies a partial update. Replacing an asset slot overwrites all
// four of its columns in the same statement, so old and new bytes are never
// simultaneously visible.
func (r *BookRepo) Update(ctx context.Context, id uint64, p BookUpdate) error {
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
	addStr("author_name", p.AuthorName)
	addStr("category", p.Category)
	if p.IsPublished != nil {
		sets = append(sets, "is_published=?")
		args = append(args, *p.IsPublished)
	}
	if p.Cover.Present() {
		sets = append(sets, "cover_data=?", "cover_type=?", "cover_name=?", "cover_size=?")
		args = append(args, p.Cover.Data, p.Cover.ContentType, p.Cover.Filename, p.Cover.Size)
	}
	if p.PDF.Present() {
		sets = append(sets, "pdf_data=?", "pdf_type=?", "pdf_name=?", "pdf_size=?")
		args = append(args, p.PDF.Data, p.PDF.ContentType, p.PDF.Filename, p.PDF.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE books SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a book row together with its embedded files.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM books WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementDownloads bumps the download counter in place. The increment is
// a relative UPDATE, so concurrent downloads never lose counts and the value
// never decreases.
func (r *BookRepo) IncrementDownloads(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE books SET number_of_downloads = number_of_downloads + 1 WHERE id=?", id)
	return err
}

// ReadAsset returns the bytes of one slot ("cover" or "pdf").
func (r *BookRepo) ReadAsset(ctx context.Context, id uint64, slot string) (*model.Asset, error) {
	switch slot {
	case "cover", "pdf":
		return readSlot(ctx, r.DB, "books", slot, id)
	}
	return nil, ErrAssetNotPresent
}
