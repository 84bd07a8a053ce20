package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"chess-tournament-system/metrics"
	"chess-tournament-system/models"
	"chess-tournament-system/services"
)

// FederationPlayer is one entry of the federation roster feed.
type FederationPlayer struct {
	NationalID string    `json:"national_id"`
	FirstName  string    `json:"firstname"`
	LastName   string    `json:"lastname"`
	BirthDate  string    `json:"birthdate"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetPlayerChangesResponse is the top-level structure of the feed response.
type GetPlayerChangesResponse struct {
	Players []FederationPlayer `json:"players"`
}

// RegistrySyncWorker pulls roster changes from the federation feed and merges
// them into the registry. It never touches scores.
type RegistrySyncWorker struct {
	registry     *services.RegistryService
	metrics      *metrics.Recorder
	interval     time.Duration
	baseURL      string
	serviceToken string
	httpClient   *http.Client

	lastSync time.Time
}

func NewRegistrySyncWorker(registry *services.RegistryService, rec *metrics.Recorder, baseURL, serviceToken string, interval time.Duration, client *http.Client) *RegistrySyncWorker {
	return &RegistrySyncWorker{
		registry:     registry,
		metrics:      rec,
		interval:     interval,
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   client,
	}
}

func (w *RegistrySyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Registry Sync Worker (federation feed → participants)…")
	go w.run(ctx)
}

func (w *RegistrySyncWorker) run(ctx context.Context) {
	// Initial sync from the beginning of time
	if err := w.SyncOnce(ctx); err != nil {
		log.Printf("[REGISTRY_SYNC] ⚠️ Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				log.Printf("[REGISTRY_SYNC] ❌ Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Registry Sync Worker stopped")
			return
		}
	}
}

// SyncOnce fetches the changes since the last successful sync and merges them.
func (w *RegistrySyncWorker) SyncOnce(ctx context.Context) error {
	players, err := w.fetch(ctx, w.lastSync)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		log.Printf("[REGISTRY_SYNC] ✅ No player changes since %s", w.lastSync.UTC().Format(time.RFC3339))
		return nil
	}

	incoming := make([]*models.Participant, 0, len(players))
	latest := w.lastSync
	for _, fp := range players {
		if fp.NationalID == "" {
			log.Printf("[REGISTRY_SYNC] ⚠️ Skipping player without national_id (%s %s)", fp.FirstName, fp.LastName)
			continue
		}
		birth, err := models.ParseDate(fp.BirthDate)
		if err != nil {
			log.Printf("[REGISTRY_SYNC] ⚠️ Ignoring birthdate %q for %s: %v", fp.BirthDate, fp.NationalID, err)
		}
		incoming = append(incoming, &models.Participant{
			NationalID: fp.NationalID,
			FirstName:  fp.FirstName,
			LastName:   fp.LastName,
			BirthDate:  birth,
		})
		if fp.UpdatedAt.After(latest) {
			latest = fp.UpdatedAt
		}
	}

	res, err := w.registry.Merge(ctx, incoming)
	if err != nil {
		return fmt.Errorf("merge federation players: %w", err)
	}
	w.lastSync = latest
	w.metrics.RegistrySynced(res.Added, res.Updated)
	log.Printf("[REGISTRY_SYNC] ✅ Synced %d player(s) (%d added, %d updated). Next since=%s",
		len(players), res.Added, res.Updated, latest.UTC().Format(time.RFC3339))
	return nil
}

func (w *RegistrySyncWorker) fetch(ctx context.Context, since time.Time) ([]FederationPlayer, error) {
	endpointURL, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry sync URL '%s': %w", w.baseURL, err)
	}
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	if w.serviceToken != "" {
		req.Header.Set("X-Service-Token", w.serviceToken)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to federation feed failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("federation feed non-200 response: %d: %s", resp.StatusCode, body)
	}

	var response GetPlayerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode federation feed response: %w", err)
	}
	return response.Players, nil
}
