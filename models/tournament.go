package models

import (
	"github.com/gosimple/slug"
)

// DefaultNumberOfRounds is used when a tournament is created without an
// explicit round count.
const DefaultNumberOfRounds = 4

// Tournament states, in lifecycle order.
const (
	StatusNotStarted      = "not_started"
	StatusRoundOpen       = "round_open"
	StatusRoundClosed     = "round_closed"
	StatusAllRoundsClosed = "all_rounds_closed"
	StatusClosed          = "closed"
)

// Tournament owns its rounds and a value snapshot of the registry taken at
// creation. Roster scores are tournament-local.
//
// CurrentRound always equals len(Rounds) and never exceeds NumberOfRounds.
type Tournament struct {
	Name           string
	Location       string
	StartDate      Date
	EndDate        *Date
	Description    string
	NumberOfRounds int
	CurrentRound   int
	Rounds         []*Round
	Players        []*Participant

	// ScoresApplied records, per national id, how much of the roster score
	// has already been added to the registry.
	ScoresApplied map[string]float64

	// Fabricated lists match participants that could not be resolved against
	// the roster when the tournament was decoded.
	Fabricated []Resolution
}

func NewTournament(name, location string, startDate Date, description string) *Tournament {
	return &Tournament{
		Name:           name,
		Location:       location,
		StartDate:      startDate,
		Description:    description,
		NumberOfRounds: DefaultNumberOfRounds,
		Rounds:         []*Round{},
		Players:        []*Participant{},
		ScoresApplied:  map[string]float64{},
	}
}

// Slug is the storage key derived from the name. Two names with the same slug
// share storage.
func (t *Tournament) Slug() string {
	return SlugFor(t.Name)
}

func SlugFor(name string) string {
	return slug.Make(name)
}

// AddPlayersFromRegistry replaces the roster with copies of the registry
// participants, keeping the first occurrence of each national id.
func (t *Tournament) AddPlayersFromRegistry(registry []*Participant) {
	seen := make(map[string]struct{}, len(registry))
	roster := make([]*Participant, 0, len(registry))
	for _, p := range registry {
		if p == nil {
			continue
		}
		if _, dup := seen[p.NationalID]; dup {
			continue
		}
		seen[p.NationalID] = struct{}{}
		roster = append(roster, p.Clone())
	}
	t.Players = roster
}

func (t *Tournament) IsClosed() bool {
	return t.EndDate != nil
}

// LastRound returns the most recently started round, or nil.
func (t *Tournament) LastRound() *Round {
	if len(t.Rounds) == 0 {
		return nil
	}
	return t.Rounds[len(t.Rounds)-1]
}

func (t *Tournament) Player(nationalID string) *Participant {
	for _, p := range t.Players {
		if p.NationalID == nationalID {
			return p
		}
	}
	return nil
}

// Status names the lifecycle state.
func (t *Tournament) Status() string {
	switch {
	case t.IsClosed():
		return StatusClosed
	case len(t.Rounds) == 0:
		return StatusNotStarted
	case t.LastRound().IsOpen():
		return StatusRoundOpen
	case t.CurrentRound >= t.NumberOfRounds:
		return StatusAllRoundsClosed
	default:
		return StatusRoundClosed
	}
}
