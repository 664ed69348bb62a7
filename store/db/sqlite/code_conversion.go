package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/t3clone/t3chat/store"
)

func (d *DB) CreateCodeConversion(ctx context.Context, create *store.CodeConversion) (*store.CodeConversion, error) {
	fields := []string{"id", "message_id", "user_id", "source_language", "target_language", "source_code", "converted_code", "model_id", "created_ts"}
	args := []any{create.ID, create.MessageID, create.UserID, create.SourceLanguage, create.TargetLanguage, create.SourceCode, create.ConvertedCode, create.ModelID, create.CreatedTs}

	stmt := `INSERT INTO code_conversions (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to create code_conversion: %w", err)
	}
	return create, nil
}

func (d *DB) ListCodeConversions(ctx context.Context, find *store.FindCodeConversion) ([]*store.CodeConversion, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.MessageID != nil {
		where, args = append(where, "message_id = "+placeholder(len(args)+1)), append(args, *find.MessageID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `SELECT id, message_id, user_id, source_language, target_language, source_code, converted_code, model_id, created_ts
		FROM code_conversions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list code_conversions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CodeConversion, 0)
	for rows.Next() {
		c := &store.CodeConversion{}
		if err := rows.Scan(&c.ID, &c.MessageID, &c.UserID, &c.SourceLanguage, &c.TargetLanguage, &c.SourceCode, &c.ConvertedCode, &c.ModelID, &c.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan code_conversion: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate code_conversions: %w", err)
	}
	return list, nil
}
