package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sellerapp/shopchat/internal/models"
)

func sampleState(t *testing.T) models.AppState {
	t.Helper()
	ts := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)
	inFlight := true
	id := "srv-123"
	return models.AppState{
		UserInfo: &models.UserInfo{
			Email: "shopper@example.com", Name: "Shopper",
			UserID: "google-1", IsAuthenticated: true, Location: "bangalore",
		},
		CurrentSessionID: &id,
		Sessions: []models.ChatSession{{
			ID: "srv-123", Title: "New Chat",
			CreatedAt: ts, LastUpdatedAt: ts.Add(time.Minute),
			Messages: []models.ChatMessage{
				{ID: "m1", Role: models.RoleBot, Text: "Hello!", Timestamp: ts},
				{ID: "m2", Role: models.RoleUser, Text: "red shoes", Timestamp: ts.Add(time.Second), InFlight: &inFlight},
				{ID: "m3", Role: models.RoleBot, Timestamp: ts.Add(time.Minute), SearchResults: []models.SearchResult{{
					ItemID: "i1", Name: "Red Runner", Images: []string{"https://img/1.jpg"},
					Price: models.Price{Currency: "INR", Value: "2499"}, BrandName: "Acme",
				}}},
			},
		}},
	}
}

// adapters under test share one contract, so the suite runs against both.
func eachAdapter(t *testing.T, fn func(t *testing.T, open func(t *testing.T) Adapter, corrupt func(t *testing.T, a Adapter))) {
	t.Helper()

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "state.json")
		fn(t,
			func(t *testing.T) Adapter {
				slot, err := NewFileSlot(path, nil)
				if err != nil {
					t.Fatalf("NewFileSlot: %v", err)
				}
				return slot
			},
			func(t *testing.T, _ Adapter) {
				if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
					t.Fatalf("corrupt slot: %v", err)
				}
			},
		)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.db")
		fn(t,
			func(t *testing.T) Adapter {
				slot, err := NewSQLiteSlot(path, "", nil)
				if err != nil {
					t.Fatalf("NewSQLiteSlot: %v", err)
				}
				t.Cleanup(func() { _ = slot.Close() })
				return slot
			},
			func(t *testing.T, a Adapter) {
				slot := a.(*SQLiteSlot)
				if _, err := slot.db.Exec(
					`INSERT INTO app_state (slot, payload, updated_at) VALUES (?, ?, 0)
					 ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload`,
					slot.slot, "{not json"); err != nil {
					t.Fatalf("corrupt slot: %v", err)
				}
			},
		)
	})
}

func TestLoadMissingSlot(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(t *testing.T) Adapter, _ func(t *testing.T, a Adapter)) {
		adapter := open(t)
		state, err := adapter.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !state.Equal(DefaultState()) {
			t.Errorf("missing slot loaded %+v, want default state", state)
		}
	})
}

func TestRoundTrip(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(t *testing.T) Adapter, _ func(t *testing.T, a Adapter)) {
		adapter := open(t)
		want := sampleState(t)

		if err := adapter.Save(want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := adapter.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip mismatch:\n got: %+v\nwant: %+v", got, want)
		}
	})
}

func TestCorruptSlotClearedOnLoad(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(t *testing.T) Adapter, corrupt func(t *testing.T, a Adapter)) {
		adapter := open(t)
		if err := adapter.Save(sampleState(t)); err != nil {
			t.Fatalf("Save: %v", err)
		}

		corrupt(t, adapter)

		state, err := adapter.Load()
		if err != nil {
			t.Fatalf("Load after corruption: %v", err)
		}
		if !state.Equal(DefaultState()) {
			t.Errorf("corrupt slot loaded %+v, want default state", state)
		}

		// Slot must have been cleared: a second load sees a missing slot,
		// not the corrupt payload again.
		state, err = adapter.Load()
		if err != nil {
			t.Fatalf("second Load: %v", err)
		}
		if !state.Equal(DefaultState()) {
			t.Errorf("second load got %+v, want default state", state)
		}
	})
}

func TestSaveOverwrites(t *testing.T) {
	eachAdapter(t, func(t *testing.T, open func(t *testing.T) Adapter, _ func(t *testing.T, a Adapter)) {
		adapter := open(t)
		first := sampleState(t)
		if err := adapter.Save(first); err != nil {
			t.Fatalf("Save: %v", err)
		}

		second := first.Clone()
		second.Sessions[0].Title = "Renamed"
		if err := adapter.Save(second); err != nil {
			t.Fatalf("second Save: %v", err)
		}

		got, err := adapter.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Sessions[0].Title != "Renamed" {
			t.Errorf("Load returned stale snapshot, title = %q", got.Sessions[0].Title)
		}
	})
}
