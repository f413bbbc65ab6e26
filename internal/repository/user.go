package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, mobile_phone, remote_jid, external_id, role, avatar,
	status, last_active_at, main_sidebar_collapsed, conversations_sidebar_width,
	conversations_sidebar_collapsed, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.MobilePhone, &u.RemoteJID, &u.ExternalID, &u.Role, &u.Avatar,
		&u.Status, &u.LastActiveAt, &u.MainSidebarCollapsed, &u.ConversationsSidebarWidth,
		&u.ConversationsSidebarCollapsed, &u.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, mobile_phone, remote_jid, external_id, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.Name, u.MobilePhone, u.RemoteJID, u.ExternalID, u.Role, u.Status,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	// Build dynamic update: only set provided fields
	sets := []string{}
	args := []interface{}{id}
	i := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	if req.Email != nil {
		add("email", *req.Email)
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.MobilePhone != nil {
		add("mobile_phone", *req.MobilePhone)
	}
	if req.RemoteJID != nil {
		add("remote_jid", *req.RemoteJID)
	}
	if req.ExternalID != nil {
		add("external_id", *req.ExternalID)
	}
	if req.Role != nil {
		add("role", *req.Role)
	}
	if req.Status != nil {
		add("status", *req.Status)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + userColumns
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id string, req *model.PreferencesRequest) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			main_sidebar_collapsed = COALESCE($2, main_sidebar_collapsed),
			conversations_sidebar_width = COALESCE($3, conversations_sidebar_width),
			conversations_sidebar_collapsed = COALESCE($4, conversations_sidebar_collapsed)
		WHERE id = $1
		RETURNING `+userColumns,
		id, req.MainSidebarCollapsed, req.ConversationsSidebarWidth, req.ConversationsSidebarCollapsed,
	))
}

func (r *UserRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetAvatar(ctx context.Context, id string, avatar *string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `UPDATE users SET avatar = $2 WHERE id = $1 RETURNING `+userColumns, id, avatar))
}

func (r *UserRepository) TouchLastActive(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = NOW() WHERE id = $1`, id)
	return translate(err)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountTotal(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
