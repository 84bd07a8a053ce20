package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"chess-tournament-system/models"
)

var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrTournamentClosed  = errors.New("tournament is closed")
	ErrInvalidTournament = errors.New("invalid tournament")
)

// TournamentService drives the round lifecycle:
// NotStarted → RoundOpen(k) → RoundClosed(k) → … → AllRoundsClosed → Closed.
// Transitions only move forward. Precondition failures are reported as
// false, not as errors.
type TournamentService struct {
	pairing *PairingService
	rng     *rand.Rand
	now     func() time.Time
}

func NewTournamentService(pairing *PairingService, rng *rand.Rand) *TournamentService {
	return &TournamentService{
		pairing: pairing,
		rng:     rng,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for round and closing stamps.
func (s *TournamentService) SetClock(now func() time.Time) {
	s.now = now
}

// NewTournamentInput carries the operator-provided tournament details.
type NewTournamentInput struct {
	Name           string
	Location       string
	StartDate      models.Date
	Description    string
	NumberOfRounds int
}

// CreateTournament builds a tournament whose roster is a value snapshot of
// the registry. The registry scores copied in are recorded as already
// applied, so only points won in this tournament flow back to the registry.
func (s *TournamentService) CreateTournament(in NewTournamentInput, registry []*models.Participant) (*models.Tournament, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTournament)
	}
	if in.NumberOfRounds < 0 {
		return nil, fmt.Errorf("%w: number_of_rounds must be positive", ErrInvalidTournament)
	}
	t := models.NewTournament(strings.TrimSpace(in.Name), in.Location, in.StartDate, in.Description)
	if in.NumberOfRounds > 0 {
		t.NumberOfRounds = in.NumberOfRounds
	}
	t.AddPlayersFromRegistry(registry)
	for _, p := range t.Players {
		t.ScoresApplied[p.NationalID] = p.Score
	}
	return t, nil
}

// StartRound pairs the roster and appends a new round. It returns false,
// leaving the tournament untouched, when the tournament is closed, all rounds
// were played, or no pair could be formed.
func (s *TournamentService) StartRound(t *models.Tournament) bool {
	if t.IsClosed() || t.CurrentRound >= t.NumberOfRounds {
		return false
	}
	pairs := s.pairing.GeneratePairs(t.Players, t.CurrentRound, t.Rounds)
	if len(pairs) == 0 {
		return false
	}

	round := models.NewRound(t.CurrentRound+1, s.now())
	for _, p := range pairs {
		white := models.Side(s.rng.Intn(2))
		round.Matches = append(round.Matches, models.NewMatch(p.Player1, p.Player2, white))
	}
	t.Rounds = append(t.Rounds, round)
	t.CurrentRound++

	log.Printf("[ROUND] %s: %s started with %d match(es)", t.Name, round.Name, len(round.Matches))
	return true
}

// FinishRound stamps the end time of the most recent round. Results are not
// required; the caller collects them afterwards.
func (s *TournamentService) FinishRound(t *models.Tournament) bool {
	if len(t.Rounds) == 0 || t.CurrentRound == 0 || t.IsClosed() {
		return false
	}
	round := t.LastRound()
	round.Finish(s.now())
	log.Printf("[ROUND] %s: %s finished (%d unfinished match(es))", t.Name, round.Name, len(round.Unfinished()))
	return true
}

// CloseTournament sets the end date once every round has been started.
// Calling it again returns false.
func (s *TournamentService) CloseTournament(t *models.Tournament) bool {
	if t.IsClosed() || t.CurrentRound < t.NumberOfRounds {
		return false
	}
	end := models.NewDate(s.now())
	t.EndDate = &end
	log.Printf("[ROUND] %s: tournament closed on %s", t.Name, end)
	return true
}

// Match looks up a match by 1-based round and match numbers.
func (s *TournamentService) Match(t *models.Tournament, roundNumber, matchNumber int) (*models.Match, error) {
	if roundNumber < 1 || roundNumber > len(t.Rounds) {
		return nil, fmt.Errorf("%w: %d", ErrRoundNotFound, roundNumber)
	}
	round := t.Rounds[roundNumber-1]
	if matchNumber < 1 || matchNumber > len(round.Matches) {
		return nil, fmt.Errorf("%w: %s match %d", ErrMatchNotFound, round.Name, matchNumber)
	}
	return round.Matches[matchNumber-1], nil
}

// RecordResult decides a match and credits the earned points to both
// players' tournament scores.
func (s *TournamentService) RecordResult(t *models.Tournament, roundNumber, matchNumber int, outcome models.Outcome) error {
	if t.IsClosed() {
		return ErrTournamentClosed
	}
	m, err := s.Match(t, roundNumber, matchNumber)
	if err != nil {
		return err
	}
	return creditResult(m, outcome)
}

func creditResult(m *models.Match, outcome models.Outcome) error {
	if err := m.SetResult(outcome); err != nil {
		return err
	}
	for _, side := range m.Sides {
		if side.Participant != nil {
			side.Participant.Score += side.Points
		}
	}
	return nil
}
