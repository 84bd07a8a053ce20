package services

import (
	"log"
	"math/rand"
	"sort"

	"chess-tournament-system/models"
)

// Pair is one pairing for the next round. Player1 becomes side A of the
// match and Player2 side B.
type Pair struct {
	Player1 *models.Participant
	Player2 *models.Participant
}

// pairKey is an unordered pair of national ids.
type pairKey struct {
	low, high string
}

func keyFor(a, b *models.Participant) pairKey {
	if a.NationalID < b.NationalID {
		return pairKey{a.NationalID, b.NationalID}
	}
	return pairKey{b.NationalID, a.NationalID}
}

// PairingService decides who plays whom. It holds no tournament state; the
// random source only drives the first-round shuffle.
type PairingService struct {
	rng *rand.Rand
}

func NewPairingService(rng *rand.Rand) *PairingService {
	return &PairingService{rng: rng}
}

// GeneratePairs returns the opponent pairs for the round following
// completedRounds. No participant appears in more than one pair. An empty
// result means no round can be played.
func (ps *PairingService) GeneratePairs(roster []*models.Participant, completedRounds int, history []*models.Round) []Pair {
	if len(roster) < 2 {
		return nil
	}
	var pairs []Pair
	if completedRounds == 0 {
		pairs = ps.generateFirstRoundPairs(roster)
	} else {
		pairs = ps.generateScoreGroupPairs(roster, history)
	}

	if unpaired := len(roster) - 2*len(pairs); unpaired > 0 {
		log.Printf("[PAIRING] round %d: %d pair(s), %d participant(s) without an opponent", completedRounds+1, len(pairs), unpaired)
	}
	return pairs
}

// generateFirstRoundPairs shuffles the complete graph of candidate pairs and
// keeps every pair whose two participants are still free.
func (ps *PairingService) generateFirstRoundPairs(roster []*models.Participant) []Pair {
	n := len(roster)
	candidates := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			candidates = append(candidates, Pair{Player1: roster[i], Player2: roster[j]})
		}
	}
	ps.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	target := (n + 1) / 2
	claimed := make(map[string]bool, n)
	pairs := make([]Pair, 0, target)
	for _, c := range candidates {
		if len(pairs) >= target {
			break
		}
		if claimed[c.Player1.NationalID] || claimed[c.Player2.NationalID] {
			continue
		}
		claimed[c.Player1.NationalID] = true
		claimed[c.Player2.NationalID] = true
		pairs = append(pairs, c)
	}
	return pairs
}

// generateScoreGroupPairs pairs neighbours in score order (1v2, 3v4, ...).
// When a neighbour pairing already happened, the first later participant at
// rank i+2, i+4, ... whose pairing with the higher-ranked player is fresh is
// swapped into the partner slot. The last participant of an odd roster is
// never a candidate. Without such a candidate the slot sits out.
func (ps *PairingService) generateScoreGroupPairs(roster []*models.Participant, history []*models.Round) []Pair {
	order := make([]*models.Participant, len(roster))
	copy(order, roster)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Score > order[j].Score
	})

	used := usedPairs(history)
	var pairs []Pair
	for i := 0; i+1 < len(order); i += 2 {
		p1 := order[i]
		if _, seen := used[keyFor(p1, order[i+1])]; !seen {
			pairs = append(pairs, Pair{Player1: p1, Player2: order[i+1]})
			continue
		}

		repaired := false
		for j := i + 2; j+1 < len(order); j += 2 {
			if _, seen := used[keyFor(p1, order[j])]; seen {
				continue
			}
			order[i+1], order[j] = order[j], order[i+1]
			pairs = append(pairs, Pair{Player1: p1, Player2: order[i+1]})
			repaired = true
			break
		}
		if !repaired {
			log.Printf("[PAIRING] no fresh opponent for %s (%s); slot skipped", p1.FullName(), p1.NationalID)
		}
	}
	return pairs
}

// usedPairs collects every pairing that already happened in the history.
func usedPairs(history []*models.Round) map[pairKey]struct{} {
	used := make(map[pairKey]struct{})
	for _, r := range history {
		for _, m := range r.Matches {
			a, b := m.Sides[models.SideA].Participant, m.Sides[models.SideB].Participant
			if a == nil || b == nil {
				continue
			}
			used[keyFor(a, b)] = struct{}{}
		}
	}
	return used
}

// HavePlayed reports whether the two participants already met in the history.
func HavePlayed(history []*models.Round, a, b *models.Participant) bool {
	_, ok := usedPairs(history)[keyFor(a, b)]
	return ok
}
