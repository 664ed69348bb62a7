package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/t3clone/t3chat/store"
)

func (d *DB) CreateAttachment(ctx context.Context, create *store.Attachment) (*store.Attachment, error) {
	fields := []string{"id", "user_id", "chat_id", "message_id", "file_name", "content_type", "size", "storage_path", "thumbnail_path", "created_ts"}
	args := []any{create.ID, create.UserID, nullString(create.ChatID), nullString(create.MessageID), create.FileName, create.ContentType, create.Size, create.StoragePath, create.ThumbnailPath, create.CreatedTs}

	stmt := `INSERT INTO attachments (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create attachment: %w", err)
	}
	return create, nil
}

func (d *DB) ListAttachments(ctx context.Context, find *store.FindAttachment) ([]*store.Attachment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if len(find.IDs) > 0 {
		holders := make([]string, 0, len(find.IDs))
		for _, id := range find.IDs {
			holders, args = append(holders, placeholder(len(args)+1)), append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(holders, ", ")+")")
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.ChatID != nil {
		where, args = append(where, "chat_id = "+placeholder(len(args)+1)), append(args, *find.ChatID)
	}
	if find.MessageID != nil {
		where, args = append(where, "message_id = "+placeholder(len(args)+1)), append(args, *find.MessageID)
	}

	query := `SELECT id, user_id, chat_id, message_id, file_name, content_type, size, storage_path, thumbnail_path, created_ts FROM attachments WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Attachment, 0)
	for rows.Next() {
		a := &store.Attachment{}
		var chatID, messageID sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &chatID, &messageID, &a.FileName, &a.ContentType, &a.Size, &a.StoragePath, &a.ThumbnailPath, &a.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		a.ChatID = stringOrEmpty(chatID)
		a.MessageID = stringOrEmpty(messageID)
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attachments: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateAttachment(ctx context.Context, update *store.UpdateAttachment) error {
	set, args := []string{}, []any{}

	if update.ChatID != nil {
		set, args = append(set, "chat_id = "+placeholder(len(args)+1)), append(args, nullString(*update.ChatID))
	}
	if update.MessageID != nil {
		set, args = append(set, "message_id = "+placeholder(len(args)+1)), append(args, nullString(*update.MessageID))
	}
	if len(set) == 0 {
		return fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE attachments SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update attachment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteAttachment(ctx context.Context, delete *store.DeleteAttachment) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = `+placeholder(1), delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}
