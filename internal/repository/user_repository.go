package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ministryhub/platform/internal/model"
	"github.com/ministryhub/platform/internal/utils"
)

// UserRepo owns all queries against the users table, including the embedded
// profile photo slot.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, password_hash, role, phone, bio, church,
	position, department, student_ref, photo_name, photo_type, photo_size,
	is_active, last_login_at, password_changed_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var photoName, photoType sql.NullString
	var photoSize sql.NullInt64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone,
		&u.Bio, &u.Church, &u.Position, &u.Department, &u.StudentRef,
		&photoName, &photoType, &photoSize,
		&u.IsActive, &u.LastLoginAt, &u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Photo = scanMeta(photoName, photoType, photoSize)
	return u, nil
}

// Create hashes the password and inserts the user, returning its ID. The
// email is normalized to lowercase so that the unique key acts
// case-insensitively.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, phone, bio, church, position, department, student_ref)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.Name, email, hash, u.Role, u.Phone, u.Bio, u.Church, u.Position, u.Department, u.StudentRef)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// List returns a page of users plus the total count, newest first.
func (r *UserRepo) List(ctx context.Context, p Page) ([]model.User, int, error) {
	p = p.Normalize()
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC LIMIT ? OFFSET ?",
		p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// TouchLastLogin stamps last_login_at after a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login_at=NOW() WHERE id=?", id)
	return err
}

// UpdatePassword rehashes and stores a new password, stamping
// password_changed_at in the same statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=NOW() WHERE id=?", hash, id)
	return err
}

// ProfileUpdate carries the caller-editable profile fields. Nil pointers
// leave the column untouched; the update is field-level on purpose so that
// concurrent edits to different fields do not clobber each other.
type ProfileUpdate struct {
	Name       *string
	Phone      *string
	Bio        *string
	Church     *string
	Position   *string
	Department *string
	StudentRef *string
	Photo      *model.Asset // replaces the photo slot atomically when set
}

// UpdateProfile applies a partial profile update.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfileUpdate) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("name", p.Name)
	add("phone", p.Phone)
	add("bio", p.Bio)
	add("church", p.Church)
	add("position", p.Position)
	add("department", p.Department)
	add("student_ref", p.StudentRef)
	if p.Photo.Present() {
		sets = append(sets, "photo_data=?", "photo_type=?", "photo_name=?", "photo_size=?")
		args = append(args, p.Photo.Data, p.Photo.ContentType, p.Photo.Filename, p.Photo.Size)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// AdminUpdate carries the admin-editable account fields.
type AdminUpdate struct {
	Name     *string
	Role     *string
	IsActive *bool
}

// UpdateByAdmin applies an administrative account edit.
func (r *UserRepo) UpdateByAdmin(ctx context.Context, id uint64, p AdminUpdate) error {
	sets := []string{}
	args := []any{}
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *p.Name)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *p.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Deactivate soft-deletes an account. The row remains so that authored
// content keeps a valid owner, but every authenticated request from this
// user is rejected from now on.
func (r *UserRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=0 WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReadPhoto returns the profile photo bytes, or ErrAssetNotPresent when the
// slot is empty.
func (r *UserRepo) ReadPhoto(ctx context.Context, id uint64) (*model.Asset, error) {
	var (
		data        []byte
		ctype, name sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT photo_data, photo_type, photo_name FROM users WHERE id=?", id).
		Scan(&data, &ctype, &name)
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
