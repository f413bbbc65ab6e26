package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageColumns = `
	id, conversation_id, sender_id, sender_type, sender_name, content, content_type,
	file_url, thumbnail, duration, metadata, quoted_message_id, is_forwarded, is_private,
	status, delivered_at, read_at, created_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	m := &model.Message{}
	var metadata []byte
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.SenderType, &m.SenderName, &m.Content, &m.ContentType,
		&m.FileURL, &m.Thumbnail, &m.Duration, &metadata, &m.QuotedMessageID, &m.IsForwarded, &m.IsPrivate,
		&m.Status, &m.DeliveredAt, &m.ReadAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if len(metadata) > 0 {
		m.Metadata = metadata
	}
	m.Reactions = []model.Reaction{}
	return m, nil
}

func collectMessages(rows pgx.Rows) ([]*model.Message, error) {
	defer rows.Close()
	var msgs []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Create inserts a message and refreshes the parent conversation summary in
// one transaction. The conversation row is locked first so concurrent sends
// into the same conversation apply their counter bumps in order.
func (r *MessageRepository) Create(ctx context.Context, nm *model.NewMessage, preview string) (*model.Message, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var convID string
	err = tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, nm.ConversationID).Scan(&convID)
	if err != nil {
		return nil, translate(err)
	}

	m, err := scanMessage(tx.QueryRow(ctx, `
		INSERT INTO messages (
			conversation_id, sender_id, sender_type, sender_name, content, content_type,
			file_url, thumbnail, duration, metadata, quoted_message_id, is_forwarded, is_private, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'sent')
		RETURNING `+messageColumns,
		nm.ConversationID, nm.SenderID, nm.SenderType, nm.SenderName, nm.Content, nm.ContentType,
		nm.FileURL, nm.Thumbnail, nm.Duration, nullableJSON(nm.Metadata), nm.QuotedMessageID,
		nm.IsForwarded, nm.IsPrivate,
	))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE conversations SET
			last_message_at = GREATEST(last_message_at, $2),
			last_message = CASE WHEN $3 THEN last_message ELSE $4 END,
			unread_count = unread_count + CASE WHEN $5 THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
	`, convID, m.CreatedAt, m.IsPrivate, preview, m.SenderType == model.SenderClient)
	if err != nil {
		return nil, fmt.Errorf("bump conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

// GetByIDs loads the addressed messages in one round trip. Ids with no row are
// absent from the result map.
func (r *MessageRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Message, error) {
	out := make(map[string]*model.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, translate(err)
	}
	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ID] = m
	}
	return out, nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, includePrivate bool) ([]*model.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND ($2 OR NOT is_private)
		ORDER BY created_at ASC, id ASC
	`, conversationID, includePrivate)
	if err != nil {
		return nil, translate(err)
	}
	return collectMessages(rows)
}

// AdvanceStatus moves a message forward along sent → delivered → read. The
// returned flag is false when the message was already at or past status; the
// current row is returned in that case.
func (r *MessageRepository) AdvanceStatus(ctx context.Context, id string, status model.DeliveryStatus) (*model.Message, bool, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		UPDATE messages SET
			status = $2,
			delivered_at = COALESCE(delivered_at, NOW()),
			read_at = CASE WHEN $2 = 'read' THEN COALESCE(read_at, NOW()) ELSE read_at END
		WHERE id = $1
		  AND (CASE status WHEN 'sent' THEN 0 WHEN 'delivered' THEN 1 ELSE 2 END) < $3
		RETURNING `+messageColumns,
		id, string(status), status.Rank(),
	))
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	m, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return m, false, nil
}

// MarkConversationRead marks every public message not sent by reader as read
// and returns the ids it changed. Attendant readers also clear the unread counter.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID string, reader model.SenderType) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE messages SET
			status = 'read',
			delivered_at = COALESCE(delivered_at, NOW()),
			read_at = COALESCE(read_at, NOW())
		WHERE conversation_id = $1 AND sender_type <> $2 AND status <> 'read' AND NOT is_private
		RETURNING id
	`, conversationID, string(reader))
	if err != nil {
		return nil, translate(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	if reader == model.SenderAttendant {
		if _, err := tx.Exec(ctx, `UPDATE conversations SET unread_count = 0 WHERE id = $1`, conversationID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}
