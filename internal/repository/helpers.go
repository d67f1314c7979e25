package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
)

// Page carries the common list-query parameters. Sort uses the
// "column:asc|desc" wire form, validated against a per-repository whitelist
// before it reaches SQL.
type Page struct {
	Page  int
	Limit int
	Sort  string
}

// Normalize clamps paging values to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the SQL offset for the normalized page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// orderBy resolves a "column:direction" sort expression against a whitelist
// of exposed names to real columns. Anything unrecognized falls back to the
// default so user input never lands in SQL.
func orderBy(sort string, allowed map[string]string, def string) string {
	col, dir, _ := strings.Cut(sort, ":")
	column, ok := allowed[strings.TrimSpace(col)]
	if !ok {
		return def
	}
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}

// scanMeta assembles an AssetMeta from nullable slot columns. All three are
// NULL together or populated together; partially written slots never occur.
func scanMeta(name, ctype sql.NullString, size sql.NullInt64) model.AssetMeta {
	if !name.Valid {
		return model.AssetMeta{}
	}
	return model.AssetMeta{Filename: name.String, ContentType: ctype.String, Size: size.Int64}
}

// like wraps a search term for a LIKE predicate.
func like(term string) string { return "%" + term + "%" }

// The asset* helpers turn an optional upload into insert arguments. A nil or
// empty asset yields NULLs so the slot stays entirely absent.

func assetData(a *model.Asset) any {
	if a.Present() {
		return a.Data
	}
	return nil
}

func assetType(a *model.Asset) any {
	if a.Present() {
		return a.ContentType
	}
	return nil
}

func assetName(a *model.Asset) any {
	if a.Present() {
		return a.Filename
	}
	return nil
}

func assetSize(a *model.Asset) any {
	if a.Present() {
		return a.Size
	}
	return nil
}

// readSlot fetches one asset slot's bytes from a resource row. The table and
// prefix arguments are code-level constants, never user input.
func readSlot(ctx context.Context, db *sql.DB, table, prefix string, id uint64) (*model.Asset, error) {
	q := "SELECT " + prefix + "_data, " + prefix + "_type, " + prefix + "_name FROM " + table + " WHERE id=?"
	var data []byte
	var ctype, name sql.NullString
	err := db.QueryRowContext(ctx, q, id).Scan(&data, &ctype, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrAssetNotPresent
	}
	return &model.Asset{Data: data, ContentType: ctype.String, Filename: name.String, Size: int64(len(data))}, nil
}
