package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

const (
	keyNotifySevenDays = "notify_seven_days"
	keyNotifyThreeDays = "notify_three_days"
	keyNotifyOneDay    = "notify_one_day"
)

// SettingsStore is a key/value table. Notification preferences live in it
// and can be watched with Subscribe.
type SettingsStore struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[chan model.NotificationPreferences]struct{}
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{
		db:   db,
		subs: make(map[chan model.NotificationPreferences]struct{}),
	}
}

// Get returns the value for key, or ok=false when it is unset.
func (s *SettingsStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = conn(ctx, s.db).QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return b, nil
}

// GetPreferences returns the stored notification preferences. Unset or
// unreadable flags take their default, which is enabled.
func (s *SettingsStore) GetPreferences(ctx context.Context) (model.NotificationPreferences, error) {
	prefs := model.DefaultNotificationPreferences()
	var err error
	if prefs.NotifySevenDays, err = s.getBool(ctx, keyNotifySevenDays, prefs.NotifySevenDays); err != nil {
		return prefs, err
	}
	if prefs.NotifyThreeDays, err = s.getBool(ctx, keyNotifyThreeDays, prefs.NotifyThreeDays); err != nil {
		return prefs, err
	}
	if prefs.NotifyOneDay, err = s.getBool(ctx, keyNotifyOneDay, prefs.NotifyOneDay); err != nil {
		return prefs, err
	}
	return prefs, nil
}

// SavePreferences stores all three flags in one transaction and publishes
// the new value to subscribers.
func (s *SettingsStore) SavePreferences(ctx context.Context, prefs model.NotificationPreferences) error {
	err := runInTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.Set(ctx, keyNotifySevenDays, strconv.FormatBool(prefs.NotifySevenDays)); err != nil {
			return err
		}
		if err := s.Set(ctx, keyNotifyThreeDays, strconv.FormatBool(prefs.NotifyThreeDays)); err != nil {
			return err
		}
		return s.Set(ctx, keyNotifyOneDay, strconv.FormatBool(prefs.NotifyOneDay))
	})
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}

	s.publish(prefs)
	return nil
}

// Subscribe returns a channel that receives the current preferences and
// then every saved change. Only the latest value is kept for a slow reader.
// Call the returned func to stop receiving.
func (s *SettingsStore) Subscribe(ctx context.Context) (<-chan model.NotificationPreferences, func(), error) {
	current, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan model.NotificationPreferences, 1)
	ch <- current

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (s *SettingsStore) publish(prefs model.NotificationPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subs {
		// Drop a stale unread value so the reader sees the latest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- prefs:
		default:
		}
	}
}
