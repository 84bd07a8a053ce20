package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chess-tournament-system/metrics"
	"chess-tournament-system/storage"

	"github.com/go-co-op/gocron/v2"
)

// Archiver is the object store closed tournaments are copied to.
type Archiver interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// ArchiveWorker periodically uploads every closed tournament that is not yet
// in the archive. Objects are write-once: an existing key is never replaced.
type ArchiveWorker struct {
	store    storage.TournamentStore
	archiver Archiver
	metrics  *metrics.Recorder
	interval time.Duration
}

func NewArchiveWorker(store storage.TournamentStore, archiver Archiver, rec *metrics.Recorder, interval time.Duration) *ArchiveWorker {
	return &ArchiveWorker{
		store:    store,
		archiver: archiver,
		metrics:  rec,
		interval: interval,
	}
}

func ArchiveKey(slug string) string {
	return fmt.Sprintf("tournaments/%s.json", slug)
}

// Start schedules the archive job and returns the running scheduler. The
// caller shuts it down.
func (w *ArchiveWorker) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if _, err := w.RunOnce(ctx); err != nil {
				log.Printf("[ARCHIVE] ❌ run failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule archive job: %w", err)
	}
	sched.Start()
	log.Printf("🔁 [ARCHIVE] worker scheduled every %s", w.interval)
	return sched, nil
}

// RunOnce uploads the closed tournaments missing from the archive and
// returns how many were uploaded. A failure on one tournament does not stop
// the others.
func (w *ArchiveWorker) RunOnce(ctx context.Context) (int, error) {
	tournaments, err := w.store.ListTournaments(ctx)
	if err != nil {
		return 0, err
	}

	uploaded := 0
	for _, t := range tournaments {
		if !t.IsClosed() {
			continue
		}
		key := ArchiveKey(t.Slug())
		exists, err := w.archiver.Exists(ctx, key)
		if err != nil {
			w.metrics.ArchiveUpload("failed")
			log.Printf("[ARCHIVE] ⚠️ %s: %v", key, err)
			continue
		}
		if exists {
			w.metrics.ArchiveUpload("skipped")
			continue
		}

		doc, err := json.Marshal(t)
		if err != nil {
			w.metrics.ArchiveUpload("failed")
			log.Printf("[ARCHIVE] ⚠️ encode %s: %v", t.Name, err)
			continue
		}
		if err := w.archiver.Put(ctx, key, doc); err != nil {
			w.metrics.ArchiveUpload("failed")
			log.Printf("[ARCHIVE] ⚠️ %s: %v", key, err)
			continue
		}
		w.metrics.ArchiveUpload("uploaded")
		uploaded++
		log.Printf("[ARCHIVE] ✅ archived %q as %s", t.Name, key)
	}
	return uploaded, nil
}
