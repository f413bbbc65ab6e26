package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// conversationSelect reads from a relation aliased c joined to its client u.
const conversationSelect = `
	SELECT c.id, c.protocol, c.client_id, u.name, u.email, u.mobile_phone, c.attendant_id, c.channel_id,
	       c.status, c.priority, c.subject, c.latitude, c.longitude, c.city, c.state, c.country,
	       c.last_message, c.last_message_at, c.unread_count, c.sidebar_width, c.closed_at,
	       c.created_at, c.updated_at`

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	c := &model.Conversation{}
	err := row.Scan(
		&c.ID, &c.Protocol, &c.ClientID, &c.ClientName, &c.ClientEmail, &c.ClientPhone, &c.AttendantID, &c.ChannelID,
		&c.Status, &c.Priority, &c.Subject, &c.Latitude, &c.Longitude, &c.City, &c.State, &c.Country,
		&c.LastMessage, &c.LastMessageAt, &c.UnreadCount, &c.SidebarWidth, &c.ClosedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

// Create inserts a conversation. A protocol collision surfaces as a
// *ConflictError on constraint conversations_protocol_key.
func (r *ConversationRepository) Create(ctx context.Context, nc *model.NewConversation) (*model.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `
		WITH c AS (
			INSERT INTO conversations (protocol, client_id, attendant_id, channel_id, status, priority, subject)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)`+conversationSelect+`
		FROM c LEFT JOIN users u ON u.id = c.client_id
	`, nc.Protocol, nc.ClientID, nc.AttendantID, nc.ChannelID, nc.Status, nc.Priority, nc.Subject))
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, conversationSelect+`
		FROM conversations c LEFT JOIN users u ON u.id = c.client_id
		WHERE c.id = $1
	`, id))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term literally anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// List returns conversations matching the filter, most recently active first.
// A non-empty ClientID restricts the result to that client's conversations.
func (r *ConversationRepository) List(ctx context.Context, f model.ConversationFilter) ([]*model.Conversation, error) {
	var conditions []string
	var args []interface{}
	argIdx := 1

	if f.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("c.client_id = $%d", argIdx))
		args = append(args, f.ClientID)
		argIdx++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", argIdx))
		args = append(args, f.Status)
		argIdx++
	}
	if f.ChannelID != "" {
		conditions = append(conditions, fmt.Sprintf("c.channel_id = $%d", argIdx))
		args = append(args, f.ChannelID)
		argIdx++
	}
	if f.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(c.protocol ILIKE $%d ESCAPE '\' OR c.subject ILIKE $%d ESCAPE '\' OR u.name ILIKE $%d ESCAPE '\')`,
			argIdx, argIdx, argIdx))
		args = append(args, containsPattern(f.Search))
		argIdx++
	}

	query := conversationSelect + `
		FROM conversations c LEFT JOIN users u ON u.id = c.client_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.last_message_at DESC, c.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Update applies a partial update. Closing stamps closed_at once; moving to
// any other status clears it. The protocol column is never written here.
func (r *ConversationRepository) Update(ctx context.Context, id string, req *model.UpdateConversationRequest) (*model.Conversation, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	i := 2

	if req.Status != nil {
		sets = append(sets,
			fmt.Sprintf("status = $%d", i),
			fmt.Sprintf("closed_at = CASE WHEN $%d = 'closed' THEN COALESCE(closed_at, NOW()) ELSE NULL END", i))
		args = append(args, string(*req.Status))
		i++
	}
	if req.Priority != nil {
		sets = append(sets, fmt.Sprintf("priority = $%d", i))
		args = append(args, string(*req.Priority))
		i++
	}
	if req.Subject != nil {
		sets = append(sets, fmt.Sprintf("subject = $%d", i))
		args = append(args, *req.Subject)
		i++
	}
	if req.AttendantID != nil {
		sets = append(sets, fmt.Sprintf("attendant_id = NULLIF($%d, '')::uuid", i))
		args = append(args, *req.AttendantID)
		i++
	}
	if req.ChannelID != nil {
		sets = append(sets, fmt.Sprintf("channel_id = NULLIF($%d, '')::uuid", i))
		args = append(args, *req.ChannelID)
		i++
	}
	if req.SidebarWidth != nil {
		sets = append(sets, fmt.Sprintf("sidebar_width = $%d", i))
		args = append(args, *req.SidebarWidth)
		i++
	}

	query := `
		WITH c AS (
			UPDATE conversations SET ` + strings.Join(sets, ", ") + `
			WHERE id = $1
			RETURNING *
		)` + conversationSelect + `
		FROM c LEFT JOIN users u ON u.id = c.client_id`
	return scanConversation(r.pool.QueryRow(ctx, query, args...))
}

func (r *ConversationRepository) UpdateLocation(ctx context.Context, id string, req *model.LocationRequest) (*model.Conversation, error) {
	return scanConversation(r.pool.QueryRow(ctx, `
		WITH c AS (
			UPDATE conversations SET
				latitude = COALESCE($2, latitude),
				longitude = COALESCE($3, longitude),
				city = COALESCE($4, city),
				state = COALESCE($5, state),
				country = COALESCE($6, country),
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)`+conversationSelect+`
		FROM c LEFT JOIN users u ON u.id = c.client_id
	`, id, req.Latitude, req.Longitude, req.City, req.State, req.Country))
}

// DeleteAll removes every conversation (messages cascade). Used by the
// clean-data maintenance command.
func (r *ConversationRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ConversationRepository) CountTotal(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}
