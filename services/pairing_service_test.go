package services

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"chess-tournament-system/models"
)

func roster(n int) []*models.Participant {
	players := make([]*models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		players = append(players, &models.Participant{
			NationalID: fmt.Sprintf("AB%05d", i),
			FirstName:  fmt.Sprintf("Player%d", i),
			LastName:   "Test",
		})
	}
	return players
}

func assertNoDoubleBooking(t *testing.T, pairs []Pair) {
	t.Helper()
	seen := map[string]bool{}
	for _, p := range pairs {
		if p.Player1.NationalID == p.Player2.NationalID {
			t.Fatalf("participant %s paired with themselves", p.Player1.NationalID)
		}
		for _, id := range []string{p.Player1.NationalID, p.Player2.NationalID} {
			if seen[id] {
				t.Fatalf("participant %s appears in more than one pair", id)
			}
			seen[id] = true
		}
	}
}

func roundOf(pairs ...[2]*models.Participant) *models.Round {
	r := models.NewRound(1, time.Now())
	for _, p := range pairs {
		r.Matches = append(r.Matches, models.NewMatch(p[0], p[1], models.SideA))
	}
	return r
}

func TestFirstRoundPairsEveryoneWhenEven(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(4)

	pairs := ps.GeneratePairs(players, 0, nil)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	assertNoDoubleBooking(t, pairs)
}

func TestFirstRoundLeavesOneUnpairedWhenOdd(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(7)))
	pairs := ps.GeneratePairs(roster(5), 0, nil)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs for 5 players, got %d", len(pairs))
	}
	assertNoDoubleBooking(t, pairs)
}

func TestGeneratePairsNeedsTwoParticipants(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	if pairs := ps.GeneratePairs(roster(1), 0, nil); len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(pairs))
	}
	if pairs := ps.GeneratePairs(nil, 2, nil); len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %d", len(pairs))
	}
}

func TestFirstRoundNeverDoubleBooks(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		ps := NewPairingService(rand.New(rand.NewSource(seed)))
		for n := 2; n <= 9; n++ {
			assertNoDoubleBooking(t, ps.GeneratePairs(roster(n), 0, nil))
		}
	}
}

func TestScoreGroupPairsNeighbours(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(4)
	players[0].Score, players[1].Score, players[2].Score, players[3].Score = 0, 3, 1, 2

	pairs := ps.GeneratePairs(players, 1, nil)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	// order by score: AB00002(3), AB00004(2), AB00003(1), AB00001(0)
	if pairs[0].Player1.NationalID != "AB00002" || pairs[0].Player2.NationalID != "AB00004" {
		t.Fatalf("unexpected first pair %s-%s", pairs[0].Player1.NationalID, pairs[0].Player2.NationalID)
	}
	if pairs[1].Player1.NationalID != "AB00003" || pairs[1].Player2.NationalID != "AB00001" {
		t.Fatalf("unexpected second pair %s-%s", pairs[1].Player1.NationalID, pairs[1].Player2.NationalID)
	}
}

func TestScoreGroupAvoidsRepeatPairing(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(4)
	a, b, c, d := players[0], players[1], players[2], players[3]
	history := []*models.Round{roundOf([2]*models.Participant{a, b}, [2]*models.Participant{c, d})}
	a.Score, b.Score, c.Score, d.Score = 1, 1, 0, 0

	pairs := ps.GeneratePairs(players, 1, history)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Player1 != a || pairs[0].Player2 != c {
		t.Fatalf("expected A to meet C, got %s-%s", pairs[0].Player1.NationalID, pairs[0].Player2.NationalID)
	}
	if pairs[1].Player1 != b || pairs[1].Player2 != d {
		t.Fatalf("expected B to meet D, got %s-%s", pairs[1].Player1.NationalID, pairs[1].Player2.NationalID)
	}
	for _, p := range pairs {
		if HavePlayed(history, p.Player1, p.Player2) {
			t.Fatalf("%s-%s is a repeat pairing", p.Player1.NationalID, p.Player2.NationalID)
		}
	}
	assertNoDoubleBooking(t, pairs)
}

func TestScoreGroupSkipsSlotWithoutFreshOpponent(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(2)
	history := []*models.Round{roundOf([2]*models.Participant{players[0], players[1]})}

	if pairs := ps.GeneratePairs(players, 1, history); len(pairs) != 0 {
		t.Fatalf("expected no pairs once everyone has met, got %d", len(pairs))
	}
}

func TestScoreGroupNeverSwapsInTrailingParticipant(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(3)
	a, b, c := players[0], players[1], players[2]
	history := []*models.Round{roundOf([2]*models.Participant{a, b})}
	a.Score, b.Score, c.Score = 1, 1, 0

	if pairs := ps.GeneratePairs(players, 1, history); len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %s-%s", pairs[0].Player1.NationalID, pairs[0].Player2.NationalID)
	}

	// with five players the fourth rank is still a candidate, the fifth is not
	players = roster(5)
	history = []*models.Round{roundOf([2]*models.Participant{players[0], players[1]})}
	players[0].Score, players[1].Score = 1, 1
	pairs := ps.GeneratePairs(players, 1, history)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Player1 != players[0] || pairs[0].Player2 != players[2] {
		t.Fatalf("expected AB00001-AB00003, got %s-%s", pairs[0].Player1.NationalID, pairs[0].Player2.NationalID)
	}
	for _, p := range pairs {
		if p.Player1 == players[4] || p.Player2 == players[4] {
			t.Fatal("trailing participant was paired")
		}
	}
	assertNoDoubleBooking(t, pairs)
}

func TestScoreGroupDoesNotReorderRoster(t *testing.T) {
	ps := NewPairingService(rand.New(rand.NewSource(1)))
	players := roster(4)
	players[3].Score = 5
	ps.GeneratePairs(players, 1, nil)
	if players[0].NationalID != "AB00001" || players[3].NationalID != "AB00004" {
		t.Fatal("GeneratePairs reordered the caller's roster")
	}
}
