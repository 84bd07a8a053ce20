package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"chess-tournament-system/models"
	"chess-tournament-system/storage"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var (
	ErrDuplicateParticipant = errors.New("participant already registered")
	ErrInvalidParticipant   = errors.New("invalid participant")
)

// RegistryService is the only writer of the participant registry. Every
// read-modify-write cycle holds mu so the HTTP layer and the sync worker
// never interleave.
type RegistryService struct {
	store storage.ParticipantStore
	mu    sync.Mutex
}

func NewRegistryService(store storage.ParticipantStore) *RegistryService {
	return &RegistryService{store: store}
}

// List returns the registry sorted by family name, then given name, using
// locale collation so accented names sort next to their plain forms.
func (s *RegistryService) List(ctx context.Context) ([]*models.Participant, error) {
	s.mu.Lock()
	participants, err := s.store.LoadParticipants(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sortParticipants(participants)
	return participants, nil
}

// Search filters List by a case- and accent-insensitive substring of the
// full name or national id.
func (s *RegistryService) Search(ctx context.Context, query string) ([]*models.Participant, error) {
	participants, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := foldName(strings.TrimSpace(query))
	if needle == "" {
		return participants, nil
	}
	matches := make([]*models.Participant, 0, len(participants))
	for _, p := range participants {
		hay := foldName(p.FirstName + " " + p.LastName + " " + p.NationalID)
		if strings.Contains(hay, needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// Add registers a new participant with a score of zero.
func (s *RegistryService) Add(ctx context.Context, p *models.Participant) (*models.Participant, error) {
	p.NationalID = strings.TrimSpace(p.NationalID)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.NationalID == "" || p.FirstName == "" || p.LastName == "" {
		return nil, fmt.Errorf("%w: national_id, firstname and lastname are required", ErrInvalidParticipant)
	}
	p.Score = 0

	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.store.LoadParticipants(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := models.IndexParticipants(participants)[p.NationalID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.NationalID)
	}
	participants = append(participants, p)
	if err := s.store.SaveParticipants(ctx, participants); err != nil {
		return nil, err
	}
	log.Printf("[REGISTRY] registered %s (%s)", p.FullName(), p.NationalID)
	return p, nil
}

// Snapshot returns the registry in stored order, for tournament creation.
func (s *RegistryService) Snapshot(ctx context.Context) ([]*models.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadParticipants(ctx)
}

// ApplyTournament folds the tournament's unapplied gains into the registry
// and saves it. The tournament's ledger is updated in place; the caller must
// persist the tournament afterwards.
func (s *RegistryService) ApplyTournament(ctx context.Context, t *models.Tournament) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.store.LoadParticipants(ctx)
	if err != nil {
		return nil, err
	}
	updated := ApplyTournamentResults(participants, t)
	if len(updated) == 0 {
		return nil, nil
	}
	if err := s.store.SaveParticipants(ctx, participants); err != nil {
		return nil, err
	}
	log.Printf("[REGISTRY] %s: applied results for %d participant(s)", t.Name, len(updated))
	return updated, nil
}

// MergeResult counts what Merge changed.
type MergeResult struct {
	Added   int
	Updated int
}

// Merge upserts externally sourced participants by national id. New ids join
// with a score of zero; known ids get their names and birth date refreshed.
// Registry scores are never touched.
func (s *RegistryService) Merge(ctx context.Context, incoming []*models.Participant) (MergeResult, error) {
	var res MergeResult
	if len(incoming) == 0 {
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.store.LoadParticipants(ctx)
	if err != nil {
		return res, err
	}
	byID := models.IndexParticipants(participants)
	for _, in := range incoming {
		if in == nil || strings.TrimSpace(in.NationalID) == "" {
			continue
		}
		if cur, ok := byID[in.NationalID]; ok {
			if cur.FirstName == in.FirstName && cur.LastName == in.LastName && cur.BirthDate.Equal(in.BirthDate.Time) {
				continue
			}
			cur.FirstName = in.FirstName
			cur.LastName = in.LastName
			cur.BirthDate = in.BirthDate
			res.Updated++
			continue
		}
		p := in.Clone()
		p.Score = 0
		participants = append(participants, p)
		byID[p.NationalID] = p
		res.Added++
	}
	if res.Added == 0 && res.Updated == 0 {
		return res, nil
	}
	if err := s.store.SaveParticipants(ctx, participants); err != nil {
		return res, err
	}
	return res, nil
}

func sortParticipants(participants []*models.Participant) {
	c := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if r := c.CompareString(a.LastName, b.LastName); r != 0 {
			return r < 0
		}
		return c.CompareString(a.FirstName, b.FirstName) < 0
	})
}

func foldName(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
