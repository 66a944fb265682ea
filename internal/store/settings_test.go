package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

func TestSettingsGetSet(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	if _, ok, err := ss.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("get missing: ok=%v err=%v", ok, err)
	}

	if err := ss.Set(ctx, "lang", "ru"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ss.Set(ctx, "lang", "en"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, ok, err := ss.Get(ctx, "lang")
	if err != nil || !ok || v != "en" {
		t.Errorf("get = %q ok=%v err=%v", v, ok, err)
	}

	all, err := ss.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("settings = %v", all)
	}
}

func TestPreferencesDefaultToEnabled(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))

	prefs, err := ss.GetPreferences(context.Background())
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if prefs != model.DefaultNotificationPreferences() {
		t.Errorf("prefs = %+v, want all enabled", prefs)
	}
}

func TestPreferencesSaveIndependentFlags(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	want := model.NotificationPreferences{NotifySevenDays: false, NotifyThreeDays: true, NotifyOneDay: false}
	if err := ss.SavePreferences(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := ss.GetPreferences(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestPreferencesBadValueFallsBack(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	ss.Set(ctx, keyNotifyOneDay, "maybe")
	got, err := ss.GetPreferences(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.NotifyOneDay {
		t.Error("unparseable flag should fall back to enabled")
	}
}

func TestPreferencesSubscribe(t *testing.T) {
	ss := NewSettingsStore(openTestDB(t))
	ctx := context.Background()

	ch, cancel, err := ss.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	first := <-ch
	if first != model.DefaultNotificationPreferences() {
		t.Errorf("first value = %+v", first)
	}

	saved := model.NotificationPreferences{NotifyOneDay: true}
	if err := ss.SavePreferences(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case got := <-ch:
		if got != saved {
			t.Errorf("published %+v, want %+v", got, saved)
		}
	case <-time.After(time.Second):
		t.Fatal("no value published")
	}

	cancel()
	if _, open := <-ch; open {
		t.Error("channel should be closed after cancel")
	}
	cancel()
}
