package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
	"counsel/backend/migrations"
)

func TestPostgresIntegration_ReserveReleaseAndBlackout(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("COUNSEL_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("COUNSEL_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A single connection keeps the session search_path for every query.
	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "counsel_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewStore(db)
	date := domain.MustDate("2025-03-10")
	slot, err := domain.NewSlot("c1", date, domain.MustClock("10:00"), domain.MustClock("11:00"), 1)
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		created, err := tx.CreateSlot(ctx, slot)
		if err != nil {
			return err
		}
		slot = created
		return nil
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.ReserveCapacity(ctx, slot.ID); err != nil {
			return err
		}
		_, err := tx.InsertBooking(ctx, domain.Booking{SlotID: slot.ID, ProviderID: "c1", SubjectID: "s1", Date: date})
		return err
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.ReserveCapacity(ctx, slot.ID)
		return err
	})
	if !errors.Is(err, store.ErrSlotFull) {
		t.Fatalf("second reserve err = %v, want %v", err, store.ErrSlotFull)
	}

	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.DeleteSlot(ctx, "c1", slot.ID)
	})
	if !errors.Is(err, store.ErrSlotHasBookings) {
		t.Fatalf("delete err = %v, want %v", err, store.ErrSlotHasBookings)
	}

	var affected int
	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		affected, err = tx.SetBlackout(ctx, "c1", domain.DateRange{From: date, To: date}, true)
		return err
	})
	if err != nil {
		t.Fatalf("blackout: %v", err)
	}
	if affected != 1 {
		t.Fatalf("blackout affected = %d, want 1", affected)
	}

	got, err := s.GetSlot(ctx, slot.ID)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if !got.Blacked || got.BookedCount != 1 {
		t.Fatalf("slot after blackout = %+v", got)
	}
	if !got.Date.Equal(date) {
		t.Fatalf("date = %s, want %s", got.Date, date)
	}

	available, err := s.ListSlots(ctx, store.SlotFilter{ProviderID: "c1", AvailableOnly: true})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("available = %d, want 0", len(available))
	}
}

func TestPostgresIntegration_ConcurrentReservesNeverOverbook(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("COUNSEL_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("COUNSEL_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "counsel_test_" + randomHex(t, 8)
	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	s := NewStore(db)
	slot, err := domain.NewSlot("c1", domain.MustDate("2025-03-11"), domain.MustClock("09:00"), domain.MustClock("10:00"), 3)
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}
	err = s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		created, err := tx.CreateSlot(ctx, slot)
		slot = created
		return err
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
				_, err := tx.ReserveCapacity(ctx, slot.ID)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, store.ErrSlotFull):
				full++
			default:
				t.Errorf("reserve err = %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 3 || full != 7 {
		t.Fatalf("ok=%d full=%d, want 3 and 7", ok, full)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

// applyMigrations runs the goose Up sections directly so the test schema
// stays isolated from the goose version table in public.
func applyMigrations(ctx context.Context, exec rawExecutor) error {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := strings.TrimLeft(sql[upIdx+len(upMarker):], "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
