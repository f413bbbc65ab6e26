package repository

import (
	"context"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

const reactionColumns = `message_id, user_id, user_name, emoji, created_at`

func scanReaction(row pgx.Row) (model.Reaction, error) {
	var rc model.Reaction
	err := row.Scan(&rc.MessageID, &rc.UserID, &rc.UserName, &rc.Emoji, &rc.CreatedAt)
	return rc, err
}

// Toggle removes the (message, user, emoji) reaction if present and adds it
// otherwise. The message row lock serialises toggles on one message; the
// unique constraint keeps a lost race from producing duplicates.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID, userID, userName, emoji string) (*model.ReactionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM messages WHERE id = $1 FOR UPDATE`, messageID).Scan(&locked); err != nil {
		return nil, translate(err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3
	`, messageID, userID, emoji)
	if err != nil {
		return nil, err
	}
	added := tag.RowsAffected() == 0
	if added {
		_, err = tx.Exec(ctx, `
			INSERT INTO message_reactions (message_id, user_id, user_name, emoji)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ON CONSTRAINT unique_message_user_emoji DO NOTHING
		`, messageID, userID, userName, emoji)
		if err != nil {
			return nil, translate(err)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT `+reactionColumns+` FROM message_reactions
		WHERE message_id = $1
		ORDER BY created_at ASC, id ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	reactions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Reaction, error) {
		return scanReaction(row)
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	if reactions == nil {
		reactions = []model.Reaction{}
	}
	return &model.ReactionResult{Reactions: reactions, Added: added}, nil
}

// ListForMessages groups the reactions of the given messages by message id.
func (r *ReactionRepository) ListForMessages(ctx context.Context, messageIDs []string) (map[string][]model.Reaction, error) {
	out := make(map[string][]model.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reactionColumns+` FROM message_reactions
		WHERE message_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC
	`, messageIDs)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		rc, err := scanReaction(rows)
		if err != nil {
			return nil, err
		}
		out[rc.MessageID] = append(out[rc.MessageID], rc)
	}
	return out, rows.Err()
}
