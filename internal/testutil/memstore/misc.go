package memstore

import (
	"context"
	"maps"
	"slices"

	"storeops/internal/domain/events"
	"storeops/internal/domain/webhook"
)

type journalRepo struct{ s *Store }

func journalKey(p webhook.Provider, key string) string {
	return string(p) + "\x00" + key
}

func (r journalRepo) Begin(ctx context.Context, rc webhook.Receipt) (bool, error) {
	var fresh bool
	err := r.s.do(ctx, func(st *state) error {
		k := journalKey(rc.Provider, rc.EventKey)
		if _, seen := st.journal[k]; seen {
			return nil
		}
		rc.Payload = slices.Clone(rc.Payload)
		st.journal[k] = journalEntry{receipt: rc}
		fresh = true
		return nil
	})
	return fresh, err
}

func (r journalRepo) Finish(ctx context.Context, p webhook.Provider, key string, outcome webhook.Outcome, note string) error {
	return r.s.do(ctx, func(st *state) error {
		k := journalKey(p, key)
		e := st.journal[k]
		e.outcome = outcome
		e.note = note
		st.journal[k] = e
		return nil
	})
}

type publisher struct{ s *Store }

func (p publisher) Publish(ctx context.Context, ev events.Event) error {
	return p.s.do(ctx, func(st *state) error {
		st.events = append(st.events, ev)
		return nil
	})
}

// SettingsStore implements settings.Store.
type SettingsStore struct{ s *Store }

func (ss *SettingsStore) Load(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := ss.s.do(ctx, func(st *state) error {
		out = maps.Clone(st.settings)
		return nil
	})
	return out, err
}

func (ss *SettingsStore) Save(ctx context.Context, key, value, _ string) error {
	return ss.s.do(ctx, func(st *state) error {
		st.settings[key] = value
		return nil
	})
}
