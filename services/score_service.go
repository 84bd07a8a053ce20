package services

import (
	"chess-tournament-system/models"
)

// ApplyTournamentResults adds each roster participant's tournament gains to
// the registry participant with the same national id and returns the ids
// that changed. The tournament's ScoresApplied ledger makes repeated calls
// add only what was won since the previous call. Roster participants with no
// registry counterpart are skipped.
func ApplyTournamentResults(registry []*models.Participant, t *models.Tournament) []string {
	if t.ScoresApplied == nil {
		t.ScoresApplied = map[string]float64{}
	}
	byID := models.IndexParticipants(registry)

	var updated []string
	for _, p := range t.Players {
		target, ok := byID[p.NationalID]
		if !ok {
			continue
		}
		delta := p.Score - t.ScoresApplied[p.NationalID]
		if delta <= 0 {
			continue
		}
		target.Score += delta
		t.ScoresApplied[p.NationalID] = p.Score
		updated = append(updated, p.NationalID)
	}
	return updated
}
