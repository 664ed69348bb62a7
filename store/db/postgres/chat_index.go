package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/t3clone/t3chat/store"
)

func (d *DB) UpsertChatIndex(ctx context.Context, upsert *store.ChatIndex) (*store.ChatIndex, error) {
	stmt := `INSERT INTO chat_index (chat_id, message_id, summary, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (chat_id, message_id) DO UPDATE SET summary = EXCLUDED.summary
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, upsert.ChatID, upsert.MessageID, upsert.Summary, upsert.CreatedTs).Scan(&upsert.ID, &upsert.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert chat_index: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListChatIndexes(ctx context.Context, find *store.FindChatIndex) ([]*store.ChatIndex, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ChatID != nil {
		where, args = append(where, "ci.chat_id = "+placeholder(len(args)+1)), append(args, *find.ChatID)
	}

	// Ordered by the position of the indexed message in the conversation.
	query := `SELECT ci.id, ci.chat_id, ci.message_id, ci.summary, ci.created_ts
		FROM chat_index ci JOIN messages m ON m.id = ci.message_id
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY m.created_ts ASC, ci.id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat_index: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ChatIndex, 0)
	for rows.Next() {
		ci := &store.ChatIndex{}
		if err := rows.Scan(&ci.ID, &ci.ChatID, &ci.MessageID, &ci.Summary, &ci.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan chat_index: %w", err)
		}
		list = append(list, ci)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat_index: %w", err)
	}
	return list, nil
}

func (d *DB) DeleteChatIndex(ctx context.Context, delete *store.DeleteChatIndex) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM chat_index WHERE chat_id = `+placeholder(1), delete.ChatID); err != nil {
		return fmt.Errorf("failed to delete chat_index: %w", err)
	}
	return nil
}
