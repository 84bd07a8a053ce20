package storage

import (
	"context"
	"errors"
	"testing"

	"chess-tournament-system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// a single connection keeps the in-memory database alive and shared
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGormStoreParticipantsUpsert(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	birth, _ := models.ParseDate("10-12-1815")
	if err := store.SaveParticipants(ctx, []*models.Participant{
		{NationalID: "AB00001", FirstName: "Ada", LastName: "Byron", BirthDate: birth},
		{NationalID: "AB00002", FirstName: "Alan", LastName: "Turing"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveParticipants(ctx, []*models.Participant{
		{NationalID: "AB00001", FirstName: "Ada", LastName: "Lovelace", BirthDate: birth, Score: 1.5},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.LoadParticipants(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(got))
	}
	ada := models.IndexParticipants(got)["AB00001"]
	if ada.LastName != "Lovelace" || ada.Score != 1.5 || ada.BirthDate.String() != "10-12-1815" {
		t.Fatalf("upsert not applied: %+v", ada)
	}
}

func TestGormStoreTournaments(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	tour := sampleTournament("Spring Open")
	if err := store.SaveTournament(ctx, tour); err != nil {
		t.Fatalf("save: %v", err)
	}
	tour.Rounds[0].Finish(tour.Rounds[0].StartTime.Time)
	tour.NumberOfRounds = 1
	if err := store.SaveTournament(ctx, tour); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var recs []TournamentRecord
	if err := store.db.Find(&recs).Error; err != nil {
		t.Fatalf("query records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one record per slug, got %d", len(recs))
	}
	if recs[0].Status != models.StatusAllRoundsClosed || recs[0].Slug != "spring-open" {
		t.Fatalf("unexpected summary columns %+v", recs[0])
	}

	got, err := store.LoadTournament(ctx, "Spring Open")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.CurrentRound != 1 || got.Rounds[0].IsOpen() {
		t.Fatalf("unexpected state: round=%d open=%v", got.CurrentRound, got.Rounds[0].IsOpen())
	}

	if err := store.SaveTournament(ctx, sampleTournament("Autumn Cup")); err != nil {
		t.Fatalf("save: %v", err)
	}
	all, err := store.ListTournaments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Autumn Cup" {
		t.Fatalf("unexpected listing of %d", len(all))
	}

	if _, err := store.LoadTournament(ctx, "Missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
