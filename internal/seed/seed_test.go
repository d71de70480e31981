package seed

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hitoshi/salonbook/internal/database"
	"github.com/hitoshi/salonbook/internal/repository"
)

func newTestStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	pool, err := database.OpenSQLite(database.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "seed.db"),
		PoolSize: 2,
	})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	store := repository.NewSQLiteStore(pool)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestSeeder(store repository.Store) *Seeder {
	var buf bytes.Buffer
	return NewSeeder(store.Masters(), store.Schedules(), slog.New(slog.NewJSONHandler(&buf, nil)))
}

func TestDefault(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(f.Masters) != 1 {
		t.Fatalf("expected 1 master, got %d", len(f.Masters))
	}
	m := f.Masters[0]
	if m.Name != "Анна" || m.OwnerID != "" {
		t.Errorf("unexpected master: %+v", m)
	}
	if !reflect.DeepEqual(m.Services, []string{"Маникюр", "Педикюр"}) {
		t.Errorf("unexpected services: %v", m.Services)
	}
	if len(m.Schedule) != 2 || m.Schedule[0].Date != "2026-01-20" {
		t.Errorf("unexpected schedule: %+v", m.Schedule)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "masters:\n  - photo_url: x\n"},
		{"missing date", "masters:\n  - name: A\n    schedule:\n      - times: [\"10:00\"]\n"},
		{"broken yaml", "masters: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "masters:\n  - owner_id: \"42\"\n    name: Ольга\n    services: [Стрижка]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Masters) != 1 || f.Masters[0].OwnerID != "42" {
		t.Errorf("unexpected file: %+v", f)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	seeder := newTestSeeder(store)
	ctx := context.Background()

	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	first, err := seeder.Apply(ctx, f)
	if err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if first.Created != 1 || first.Existing != 0 {
		t.Errorf("first result = %+v", first)
	}

	second, err := seeder.Apply(ctx, f)
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if second.Created != 0 || second.Existing != 1 {
		t.Errorf("second result = %+v", second)
	}

	masters, err := store.Masters().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(masters) != 1 {
		t.Fatalf("expected 1 master after two runs, got %d", len(masters))
	}

	entries, err := store.Schedules().ListByMaster(ctx, masters[0].ID)
	if err != nil {
		t.Fatalf("ListByMaster: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 schedule entries, got %d", len(entries))
	}
	if !reflect.DeepEqual(entries[0].Times, []string{"10:00", "14:00"}) {
		t.Errorf("times duplicated or reordered: %v", entries[0].Times)
	}
}

func TestSeeder_MatchesByOwnerAndMergesSchedule(t *testing.T) {
	store := newTestStore(t)
	seeder := newTestSeeder(store)
	ctx := context.Background()

	first, err := Parse([]byte("masters:\n  - owner_id: \"42\"\n    name: Ольга\n    schedule:\n      - date: \"2026-02-01\"\n        times: [\"10:00\"]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := seeder.Apply(ctx, first); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// 名前を変えてもowner_idで同じマスターとみなす
	second, err := Parse([]byte("masters:\n  - owner_id: \"42\"\n    name: Olga\n    schedule:\n      - date: \"2026-02-01\"\n        times: [\"10:00\", \"12:00\"]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	result, err := seeder.Apply(ctx, second)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Existing != 1 {
		t.Errorf("expected existing master, got %+v", result)
	}

	master, err := store.Masters().FindByOwner(ctx, "42")
	if err != nil || master == nil {
		t.Fatalf("FindByOwner: %v, %v", master, err)
	}
	if master.Name != "Ольга" {
		t.Errorf("name should not be overwritten, got %q", master.Name)
	}
	entries, err := store.Schedules().ListByMaster(ctx, master.ID)
	if err != nil {
		t.Fatalf("ListByMaster: %v", err)
	}
	if len(entries) != 1 || !reflect.DeepEqual(entries[0].Times, []string{"10:00", "12:00"}) {
		t.Errorf("unexpected schedule: %+v", entries)
	}
}

func TestCleanServices(t *testing.T) {
	got := cleanServices([]string{" Маникюр ", "", "Маникюр", "Педикюр"})
	want := []string{"Маникюр", "Педикюр"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
