package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const channelColumns = `id, name, slug, type, avatar, api_key, webhook_url, phone_number, is_active,
	settings, created_at, updated_at`

type ChannelRepository struct {
	pool *pgxpool.Pool
}

func NewChannelRepository(pool *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{pool: pool}
}

func scanChannel(row pgx.Row) (*model.Channel, error) {
	c := &model.Channel{}
	var settings []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Type, &c.Avatar, &c.APIKey, &c.WebhookURL, &c.PhoneNumber, &c.IsActive,
		&settings, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	c.Settings = settings
	return c, nil
}

func (r *ChannelRepository) Create(ctx context.Context, c *model.Channel) (*model.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx, `
		INSERT INTO channels (name, slug, type, avatar, api_key, webhook_url, phone_number, is_active, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+channelColumns,
		c.Name, c.Slug, c.Type, c.Avatar, c.APIKey, c.WebhookURL, c.PhoneNumber, c.IsActive, nullableJSON(c.Settings),
	))
}

func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*model.Channel, error) {
	return scanChannel(r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
}

func (r *ChannelRepository) List(ctx context.Context) ([]*model.Channel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*model.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

func (r *ChannelRepository) Update(ctx context.Context, id string, req *model.ChannelRequest) (*model.Channel, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	i := 2

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}
	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Type != nil {
		add("type", *req.Type)
	}
	if req.Avatar != nil {
		add("avatar", *req.Avatar)
	}
	if req.APIKey != nil {
		add("api_key", *req.APIKey)
	}
	if req.WebhookURL != nil {
		add("webhook_url", *req.WebhookURL)
	}
	if req.PhoneNumber != nil {
		add("phone_number", *req.PhoneNumber)
	}
	if req.IsActive != nil {
		add("is_active", *req.IsActive)
	}
	if len(req.Settings) > 0 {
		add("settings", []byte(req.Settings))
	}

	query := "UPDATE channels SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + channelColumns
	return scanChannel(r.pool.QueryRow(ctx, query, args...))
}

func (r *ChannelRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
