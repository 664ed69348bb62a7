package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/t3clone/t3chat/store"
)

func (d *DB) UpsertUserSetting(ctx context.Context, upsert *store.UserSetting) (*store.UserSetting, error) {
	stmt := `INSERT INTO user_settings (user_id, default_model, theme, custom_instructions, autocomplete_enabled, updated_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (user_id) DO UPDATE SET
			default_model = EXCLUDED.default_model,
			theme = EXCLUDED.theme,
			custom_instructions = EXCLUDED.custom_instructions,
			autocomplete_enabled = EXCLUDED.autocomplete_enabled,
			updated_ts = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.DefaultModel, upsert.Theme, upsert.CustomInstructions, upsert.AutocompleteEnabled, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert user_settings: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetUserSetting(ctx context.Context, find *store.FindUserSetting) (*store.UserSetting, error) {
	query := `SELECT user_id, default_model, theme, custom_instructions, autocomplete_enabled, updated_ts FROM user_settings WHERE user_id = ` + placeholder(1)
	s := &store.UserSetting{}
	err := d.db.QueryRowContext(ctx, query, find.UserID).Scan(&s.UserID, &s.DefaultModel, &s.Theme, &s.CustomInstructions, &s.AutocompleteEnabled, &s.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user_settings: %w", err)
	}
	return s, nil
}

func (d *DB) UpsertUserProfile(ctx context.Context, upsert *store.UserProfile) (*store.UserProfile, error) {
	stmt := `INSERT INTO profiles (id, username, display_name, avatar_url, created_ts, updated_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_ts = EXCLUDED.updated_ts
		RETURNING created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, upsert.ID, upsert.Username, upsert.DisplayName, upsert.AvatarURL, upsert.CreatedTs, upsert.UpdatedTs).Scan(&upsert.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetUserProfile(ctx context.Context, find *store.FindUserProfile) (*store.UserProfile, error) {
	query := `SELECT id, username, display_name, avatar_url, created_ts, updated_ts FROM profiles WHERE id = ` + placeholder(1)
	p := &store.UserProfile{}
	err := d.db.QueryRowContext(ctx, query, find.ID).Scan(&p.ID, &p.Username, &p.DisplayName, &p.AvatarURL, &p.CreatedTs, &p.UpdatedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (d *DB) UpsertSystemSetting(ctx context.Context, upsert *store.SystemSetting) (*store.SystemSetting, error) {
	stmt := `INSERT INTO system_setting (name, value) VALUES (` + placeholders(2) + `)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.Name, upsert.Value); err != nil {
		return nil, fmt.Errorf("failed to upsert system_setting: %w", err)
	}
	return upsert, nil
}

func (d *DB) GetSystemSetting(ctx context.Context, name string) (*store.SystemSetting, error) {
	s := &store.SystemSetting{}
	err := d.db.QueryRowContext(ctx, `SELECT name, value FROM system_setting WHERE name = `+placeholder(1), name).Scan(&s.Name, &s.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get system_setting: %w", err)
	}
	return s, nil
}
