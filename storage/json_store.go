package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chess-tournament-system/models"
	"chess-tournament-system/utils"
)

const (
	playersDir     = "players"
	playersFile    = "players.json"
	tournamentsDir = "tournaments"
)

// JSONStore keeps the registry in {base}/players/players.json and each
// tournament in {base}/tournaments/{slug}.json.
type JSONStore struct {
	basePath string
}

func NewJSONStore(basePath string) *JSONStore {
	return &JSONStore{basePath: basePath}
}

// EnsureDirectories creates the players and tournaments directories.
func (s *JSONStore) EnsureDirectories() error {
	for _, dir := range []string{s.playersPath(), s.tournamentsPath()} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (s *JSONStore) playersPath() string     { return filepath.Join(s.basePath, playersDir) }
func (s *JSONStore) tournamentsPath() string { return filepath.Join(s.basePath, tournamentsDir) }

func (s *JSONStore) tournamentFile(name string) string {
	return filepath.Join(s.tournamentsPath(), models.SlugFor(name)+".json")
}

func (s *JSONStore) LoadParticipants(ctx context.Context) ([]*models.Participant, error) {
	data, err := os.ReadFile(filepath.Join(s.playersPath(), playersFile))
	if errors.Is(err, os.ErrNotExist) {
		return []*models.Participant{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var participants []*models.Participant
	if err := json.Unmarshal(data, &participants); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return participants, nil
}

func (s *JSONStore) SaveParticipants(ctx context.Context, participants []*models.Participant) error {
	if participants == nil {
		participants = []*models.Participant{}
	}
	return s.writeJSON(filepath.Join(s.playersPath(), playersFile), participants)
}

func (s *JSONStore) LoadTournament(ctx context.Context, name string) (*models.Tournament, error) {
	if models.SlugFor(name) == "" {
		return nil, fmt.Errorf("tournament %q: %w", name, ErrNotFound)
	}
	return s.loadTournamentFile(s.tournamentFile(name))
}

func (s *JSONStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	if t.Slug() == "" {
		return fmt.Errorf("tournament name %q has no usable storage key", t.Name)
	}
	return s.writeJSON(s.tournamentFile(t.Name), t)
}

// ListTournaments decodes every tournament file, skipping unreadable ones.
func (s *JSONStore) ListTournaments(ctx context.Context) ([]*models.Tournament, error) {
	entries, err := os.ReadDir(s.tournamentsPath())
	if errors.Is(err, os.ErrNotExist) {
		return []*models.Tournament{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	tournaments := make([]*models.Tournament, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.loadTournamentFile(filepath.Join(s.tournamentsPath(), name))
		if err != nil {
			log.Printf("[STORE] skipping %s: %v", name, err)
			continue
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, nil
}

func (s *JSONStore) loadTournamentFile(path string) (*models.Tournament, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t, _, err := models.DecodeTournament(data)
	if err != nil {
		return nil, err
	}
	logFabricated(t)
	return t, nil
}

func (s *JSONStore) writeJSON(path string, payload any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func logFabricated(t *models.Tournament) {
	for _, r := range t.Fabricated {
		log.Printf("[STORE] ⚠️ %s: %s match %d references unknown player %s; rebuilt from stored data",
			t.Name, r.Round, r.Match+1, r.Participant.NationalID)
	}
}
