package services

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"chess-tournament-system/models"
)

func newTestTournamentService(seed int64) *TournamentService {
	rng := rand.New(rand.NewSource(seed))
	s := NewTournamentService(NewPairingService(rng), rng)
	s.SetClock(func() time.Time { return time.Date(2024, time.June, 1, 10, 0, 0, 0, time.Local) })
	return s
}

func newTestTournament(t *testing.T, s *TournamentService, players, rounds int) *models.Tournament {
	t.Helper()
	tour, err := s.CreateTournament(NewTournamentInput{Name: "Spring Open", NumberOfRounds: rounds}, roster(players))
	if err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tour
}

func recordAll(t *testing.T, s *TournamentService, tour *models.Tournament, outcome models.Outcome) {
	t.Helper()
	round := len(tour.Rounds)
	for i := range tour.LastRound().Matches {
		if err := s.RecordResult(tour, round, i+1, outcome); err != nil {
			t.Fatalf("record result: %v", err)
		}
	}
}

func opponentIn(r *models.Round, id string) *models.Participant {
	for _, m := range r.Matches {
		a, b := m.Sides[models.SideA].Participant, m.Sides[models.SideB].Participant
		if a.NationalID == id {
			return b
		}
		if b.NationalID == id {
			return a
		}
	}
	return nil
}

func TestCreateTournamentSnapshotsRegistry(t *testing.T) {
	s := newTestTournamentService(1)
	registry := roster(3)
	registry[0].Score = 4

	tour, err := s.CreateTournament(NewTournamentInput{Name: "  Club Night  "}, registry)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tour.Name != "Club Night" || tour.NumberOfRounds != models.DefaultNumberOfRounds {
		t.Fatalf("unexpected tournament %q with %d rounds", tour.Name, tour.NumberOfRounds)
	}
	if tour.Players[0] == registry[0] {
		t.Fatal("roster must hold copies, not registry instances")
	}
	if tour.ScoresApplied["AB00001"] != 4 {
		t.Fatalf("expected ledger baseline 4, got %v", tour.ScoresApplied["AB00001"])
	}

	if _, err := s.CreateTournament(NewTournamentInput{Name: " "}, registry); !errors.Is(err, ErrInvalidTournament) {
		t.Fatalf("expected ErrInvalidTournament, got %v", err)
	}
	if _, err := s.CreateTournament(NewTournamentInput{Name: "x", NumberOfRounds: -1}, registry); !errors.Is(err, ErrInvalidTournament) {
		t.Fatalf("expected ErrInvalidTournament, got %v", err)
	}
}

// Four players admit three distinct pairings. Results are steered so the
// repeat-avoiding heuristic can reach the third one.
func TestEndToEndFourPlayersThreeRounds(t *testing.T) {
	s := newTestTournamentService(42)
	tour := newTestTournament(t, s, 4, 3)

	if !s.StartRound(tour) {
		t.Fatal("round 1 did not start")
	}
	if len(tour.LastRound().Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(tour.LastRound().Matches))
	}
	recordAll(t, s, tour, models.OutcomeSideAWins)
	if !s.FinishRound(tour) {
		t.Fatal("round 1 did not finish")
	}
	r1 := tour.Rounds[0]
	for _, m := range r1.Matches {
		if m.Sides[models.SideA].Participant.Score != 1 || m.Sides[models.SideB].Participant.Score != 0 {
			t.Fatalf("unexpected scores after round 1: %v/%v",
				m.Sides[models.SideA].Participant.Score, m.Sides[models.SideB].Participant.Score)
		}
	}
	if s.CloseTournament(tour) {
		t.Fatal("closed after 1 of 3 rounds")
	}

	if !s.StartRound(tour) {
		t.Fatal("round 2 did not start")
	}
	recordSteeredSecondRound(t, s, tour)
	if !s.FinishRound(tour) {
		t.Fatal("round 2 did not finish")
	}
	if s.CloseTournament(tour) {
		t.Fatal("closed after 2 of 3 rounds")
	}

	if !s.StartRound(tour) {
		t.Fatal("round 3 did not start")
	}
	for _, m := range tour.LastRound().Matches {
		if HavePlayed(tour.Rounds[:2], m.Sides[models.SideA].Participant, m.Sides[models.SideB].Participant) {
			t.Fatal("round 3 repeated a pairing")
		}
	}
	recordAll(t, s, tour, models.OutcomeDraw)
	if !s.FinishRound(tour) {
		t.Fatal("round 3 did not finish")
	}

	if s.StartRound(tour) {
		t.Fatal("started a round beyond number_of_rounds")
	}
	if !s.CloseTournament(tour) {
		t.Fatal("close failed after all rounds")
	}
	if s.CloseTournament(tour) {
		t.Fatal("second close must fail")
	}
	if s.StartRound(tour) || s.FinishRound(tour) {
		t.Fatal("closed tournament accepted a transition")
	}
	if tour.Status() != models.StatusClosed || tour.EndDate.String() != "01-06-2024" {
		t.Fatalf("unexpected final state %s %v", tour.Status(), tour.EndDate)
	}
}

// recordSteeredSecondRound decides round 2 of a four-player tournament whose
// round 1 was won by side A everywhere. Side A wins the winners' match, and
// the player that side beat in round 1 loses again, so round 3 can be paired
// without repeats.
func recordSteeredSecondRound(t *testing.T, s *TournamentService, tour *models.Tournament) {
	t.Helper()
	r1, r2 := tour.Rounds[0], tour.LastRound()
	var winners, losers *models.Match
	for _, m := range r2.Matches {
		if m.Sides[models.SideA].Participant.Score == 1 {
			winners = m
		} else {
			losers = m
		}
	}
	if winners == nil || losers == nil {
		t.Fatal("round 2 should pair winners together and losers together")
	}
	w1 := winners.Sides[models.SideA].Participant
	if err := s.RecordResult(tour, 2, matchNumber(r2, winners), models.OutcomeSideAWins); err != nil {
		t.Fatalf("record: %v", err)
	}
	// w1's first opponent loses again
	beaten := opponentIn(r1, w1.NationalID)
	outcome := models.OutcomeSideAWins
	if losers.Sides[models.SideA].Participant == beaten {
		outcome = models.OutcomeSideBWins
	}
	if err := s.RecordResult(tour, 2, matchNumber(r2, losers), outcome); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func matchNumber(r *models.Round, m *models.Match) int {
	for i, candidate := range r.Matches {
		if candidate == m {
			return i + 1
		}
	}
	return 0
}

// With four players every pairing is used after three rounds, so a fourth
// cannot be paired and the default four-round tournament cannot be closed.
func TestFourthRoundWithFourPlayersCannotBePaired(t *testing.T) {
	s := newTestTournamentService(3)
	tour := newTestTournament(t, s, 4, 4)

	for round := 1; round <= 3; round++ {
		if !s.StartRound(tour) {
			t.Fatalf("round %d did not start", round)
		}
		switch round {
		case 1:
			recordAll(t, s, tour, models.OutcomeSideAWins)
		case 2:
			recordSteeredSecondRound(t, s, tour)
		default:
			recordAll(t, s, tour, models.OutcomeDraw)
		}
		if !s.FinishRound(tour) {
			t.Fatalf("round %d did not finish", round)
		}
	}

	if s.StartRound(tour) {
		t.Fatal("a fourth round was paired without repeats")
	}
	if len(tour.Rounds) != 3 || tour.CurrentRound != 3 {
		t.Fatalf("failed StartRound changed the tournament: rounds=%d current=%d", len(tour.Rounds), tour.CurrentRound)
	}
	if tour.Status() != models.StatusRoundClosed {
		t.Fatalf("expected %s, got %s", models.StatusRoundClosed, tour.Status())
	}
	if s.CloseTournament(tour) {
		t.Fatal("closed before number_of_rounds were played")
	}
}

func TestRoundCountInvariant(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		s := newTestTournamentService(seed)
		rng := rand.New(rand.NewSource(seed))
		tour := newTestTournament(t, s, 7, 5)
		for step := 0; step < 30; step++ {
			switch rng.Intn(4) {
			case 0:
				s.StartRound(tour)
			case 1:
				s.FinishRound(tour)
			case 2:
				s.CloseTournament(tour)
			default:
				if r := tour.LastRound(); r != nil {
					for i, m := range r.Matches {
						if !m.IsFinished {
							_ = s.RecordResult(tour, len(tour.Rounds), i+1, models.Outcome(rng.Intn(3)+1))
						}
					}
				}
			}
			if tour.CurrentRound != len(tour.Rounds) || tour.CurrentRound > tour.NumberOfRounds {
				t.Fatalf("seed %d step %d: current=%d rounds=%d total=%d",
					seed, step, tour.CurrentRound, len(tour.Rounds), tour.NumberOfRounds)
			}
			for _, r := range tour.Rounds {
				seen := map[string]bool{}
				for _, m := range r.Matches {
					for _, side := range m.Sides {
						if seen[side.Participant.NationalID] {
							t.Fatalf("seed %d: %s double-booked in %s", seed, side.Participant.NationalID, r.Name)
						}
						seen[side.Participant.NationalID] = true
					}
				}
			}
		}
	}
}

func TestScoresNeverDecrease(t *testing.T) {
	s := newTestTournamentService(5)
	tour := newTestTournament(t, s, 6, 3)
	prev := map[string]float64{}
	for r := 0; r < 3 && s.StartRound(tour); r++ {
		for i := range tour.LastRound().Matches {
			_ = s.RecordResult(tour, len(tour.Rounds), i+1, models.Outcome(i%3+1))
			// a second result for the same match is refused
			if err := s.RecordResult(tour, len(tour.Rounds), i+1, models.OutcomeSideBWins); !errors.Is(err, models.ErrMatchFinished) {
				t.Fatalf("expected ErrMatchFinished, got %v", err)
			}
			for _, p := range tour.Players {
				if p.Score < prev[p.NationalID] {
					t.Fatalf("%s score decreased", p.NationalID)
				}
				prev[p.NationalID] = p.Score
			}
		}
		s.FinishRound(tour)
	}
}

func TestRecordResultLookups(t *testing.T) {
	s := newTestTournamentService(1)
	tour := newTestTournament(t, s, 4, 1)
	if !s.StartRound(tour) {
		t.Fatal("round did not start")
	}
	if err := s.RecordResult(tour, 2, 1, models.OutcomeDraw); !errors.Is(err, ErrRoundNotFound) {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
	if err := s.RecordResult(tour, 1, 3, models.OutcomeDraw); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
	s.FinishRound(tour)
	if !s.CloseTournament(tour) {
		t.Fatal("close failed")
	}
	if err := s.RecordResult(tour, 1, 1, models.OutcomeDraw); !errors.Is(err, ErrTournamentClosed) {
		t.Fatalf("expected ErrTournamentClosed, got %v", err)
	}
}

func TestFinishRoundWithoutRound(t *testing.T) {
	s := newTestTournamentService(1)
	tour := newTestTournament(t, s, 4, 2)
	if s.FinishRound(tour) {
		t.Fatal("finished a round that was never started")
	}
}

func TestStartRoundNeedsTwoPlayers(t *testing.T) {
	s := newTestTournamentService(1)
	tour := newTestTournament(t, s, 1, 2)
	if s.StartRound(tour) {
		t.Fatal("started a round with one participant")
	}
	if tour.CurrentRound != 0 || len(tour.Rounds) != 0 {
		t.Fatal("failed StartRound left side effects")
	}
}
