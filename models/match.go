package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Side indexes one of the two seats of a match.
type Side int

const (
	SideA Side = 0
	SideB Side = 1
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

// Outcome is the decided result of a match.
type Outcome int

const (
	OutcomeSideAWins Outcome = iota + 1
	OutcomeSideBWins
	OutcomeDraw
)

const (
	WinPoints  = 1.0
	DrawPoints = 0.5
)

var (
	ErrMatchFinished  = errors.New("match already has a result")
	ErrInvalidOutcome = errors.New("invalid match outcome")
)

// ParseOutcome reads the operator's answer: "1" (first listed player wins),
// "2" (second listed player wins) or "draw".
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "1", "a", "A":
		return OutcomeSideAWins, nil
	case "2", "b", "B":
		return OutcomeSideBWins, nil
	case "draw", "DRAW", "Draw":
		return OutcomeDraw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// String renders the outcome in the form ParseOutcome accepts.
func (o Outcome) String() string {
	switch o {
	case OutcomeSideAWins:
		return "1"
	case OutcomeSideBWins:
		return "2"
	case OutcomeDraw:
		return "draw"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// MatchSide is a participant and the points they earned in the match.
type MatchSide struct {
	Participant *Participant
	Points      float64
}

// Match pairs two participants. WhitePlayer is the side that moves first.
type Match struct {
	Sides       [2]MatchSide
	WhitePlayer Side
	IsFinished  bool
}

func NewMatch(a, b *Participant, whitePlayer Side) *Match {
	return &Match{
		Sides: [2]MatchSide{
			{Participant: a},
			{Participant: b},
		},
		WhitePlayer: whitePlayer,
	}
}

// SetResult fills in both point fields and marks the match finished. Points
// never change once the match is finished.
func (m *Match) SetResult(outcome Outcome) error {
	if m.IsFinished {
		return ErrMatchFinished
	}
	switch outcome {
	case OutcomeSideAWins:
		m.Sides[SideA].Points, m.Sides[SideB].Points = WinPoints, 0
	case OutcomeSideBWins:
		m.Sides[SideA].Points, m.Sides[SideB].Points = 0, WinPoints
	case OutcomeDraw:
		m.Sides[SideA].Points, m.Sides[SideB].Points = DrawPoints, DrawPoints
	default:
		return fmt.Errorf("%w: %d", ErrInvalidOutcome, outcome)
	}
	m.IsFinished = true
	return nil
}

// Involves reports whether the participant plays in this match.
func (m *Match) Involves(nationalID string) bool {
	for _, s := range m.Sides {
		if s.Participant != nil && s.Participant.NationalID == nationalID {
			return true
		}
	}
	return false
}

// ColorLabel is "White" for the first mover and "Black" for the other side.
func (m *Match) ColorLabel(side Side) string {
	if side == m.WhitePlayer {
		return "White"
	}
	return "Black"
}

func (m *Match) MarshalJSON() ([]byte, error) {
	players := make([][2]any, 0, len(m.Sides))
	for _, s := range m.Sides {
		players = append(players, [2]any{s.Participant, s.Points})
	}
	return json.Marshal(struct {
		Players     [][2]any `json:"players"`
		WhitePlayer Side     `json:"white_player"`
		IsFinished  bool     `json:"is_finished"`
	}{
		Players:     players,
		WhitePlayer: m.WhitePlayer,
		IsFinished:  m.IsFinished,
	})
}
