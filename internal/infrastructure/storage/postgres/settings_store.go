package postgres

import (
	"context"
	"fmt"

	"storeops/internal/domain/settings"
)

// SettingsChannel is the NOTIFY channel fired by the sys_settings trigger.
const SettingsChannel = "settings_changed"

// SettingsStore implements settings.Store on sys_settings.
type SettingsStore struct {
	txManager *TxManager
}

var _ settings.Store = (*SettingsStore)(nil)

// NewSettingsStore creates a settings store.
func NewSettingsStore(txManager *TxManager) *SettingsStore {
	return &SettingsStore{txManager: txManager}
}

// Load returns every stored key and raw value.
func (s *SettingsStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, `SELECT key, value FROM sys_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Save upserts one value. The table trigger notifies SettingsChannel.
func (s *SettingsStore) Save(ctx context.Context, key, value, updatedBy string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = now()
	`, key, value, updatedBy)
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}
