package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/t3clone/t3chat/store"
)

const chatColumns = "id, user_id, title, model_id, pinned, archived, tags, share_id, created_ts, updated_ts"

func (d *DB) CreateChat(ctx context.Context, create *store.Chat) (*store.Chat, error) {
	tags, err := marshalTags(create.Tags)
	if err != nil {
		return nil, err
	}
	args := []any{create.ID, create.UserID, create.Title, create.ModelID, create.Pinned, create.Archived, tags, nullString(create.ShareID), create.CreatedTs, create.UpdatedTs}
	stmt := `INSERT INTO chats (` + chatColumns + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	if create.Tags == nil {
		create.Tags = []string{}
	}
	return create, nil
}

func (d *DB) ListChats(ctx context.Context, find *store.FindChat) ([]*store.Chat, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.ShareID != nil {
		where, args = append(where, "share_id = "+placeholder(len(args)+1)), append(args, *find.ShareID)
	}
	if find.Pinned != nil {
		where, args = append(where, "pinned = "+placeholder(len(args)+1)), append(args, *find.Pinned)
	}
	if find.Archived != nil {
		where, args = append(where, "archived = "+placeholder(len(args)+1)), append(args, *find.Archived)
	}

	query := `SELECT ` + chatColumns + ` FROM chats WHERE ` + strings.Join(where, " AND ") + ` ORDER BY pinned DESC, updated_ts DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Chat, 0)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chats: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateChat(ctx context.Context, update *store.UpdateChat) (*store.Chat, error) {
	set, args := []string{}, []any{}

	if update.Title != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
	}
	if update.ModelID != nil {
		set, args = append(set, "model_id = "+placeholder(len(args)+1)), append(args, *update.ModelID)
	}
	if update.Pinned != nil {
		set, args = append(set, "pinned = "+placeholder(len(args)+1)), append(args, *update.Pinned)
	}
	if update.Archived != nil {
		set, args = append(set, "archived = "+placeholder(len(args)+1)), append(args, *update.Archived)
	}
	if update.Tags != nil {
		tags, err := marshalTags(*update.Tags)
		if err != nil {
			return nil, err
		}
		set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, tags)
	}
	if update.ShareID != nil {
		set, args = append(set, "share_id = "+placeholder(len(args)+1)), append(args, nullString(*update.ShareID))
	}
	if update.UpdatedTs != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID, update.UserID)
	stmt := `UPDATE chats SET ` + strings.Join(set, ", ") +
		` WHERE id = ` + placeholder(len(args)-1) + ` AND user_id = ` + placeholder(len(args)) +
		` RETURNING ` + chatColumns
	chat, err := scanChat(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return chat, nil
}

func (d *DB) DeleteChat(ctx context.Context, delete *store.DeleteChat) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	query := `SELECT COUNT(*) FROM chats WHERE id = ` + placeholder(1) + ` AND user_id = ` + placeholder(2)
	if err := tx.QueryRowContext(ctx, query, delete.ID, delete.UserID).Scan(&count); err != nil {
		return fmt.Errorf("failed to check chat: %w", err)
	}
	if count == 0 {
		return store.ErrNotFound
	}

	// Dependents go first so the delete does not rely on ON DELETE CASCADE being enforced.
	stmts := []string{
		`DELETE FROM code_conversions WHERE message_id IN (SELECT id FROM messages WHERE chat_id = ` + placeholder(1) + `)`,
		`DELETE FROM chat_index WHERE chat_id = ` + placeholder(1),
		`DELETE FROM attachments WHERE chat_id = ` + placeholder(1),
		`DELETE FROM messages WHERE chat_id = ` + placeholder(1),
		`DELETE FROM chats WHERE id = ` + placeholder(1),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, delete.ID); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chat deletion: %w", err)
	}
	return nil
}

func scanChat(row rowScanner) (*store.Chat, error) {
	chat := &store.Chat{}
	var tags string
	var shareID sql.NullString
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.ModelID, &chat.Pinned, &chat.Archived, &tags, &shareID, &chat.CreatedTs, &chat.UpdatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}
	chat.Tags = unmarshalTags(tags)
	chat.ShareID = stringOrEmpty(shareID)
	return chat, nil
}
