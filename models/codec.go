package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// placeholderNationalID stands in for match fragments that carry no id.
const placeholderNationalID = "XX00000"

var ErrInvalidMatchPlayer = errors.New("invalid player data in match")

// ResolutionKind tags how a match participant was rebuilt during decoding.
type ResolutionKind int

const (
	// Resolved participants are the roster instance with the same national id.
	Resolved ResolutionKind = iota
	// Fabricated participants were built from the stored fragment because no
	// roster entry matched.
	Fabricated
)

func (k ResolutionKind) String() string {
	if k == Fabricated {
		return "fabricated"
	}
	return "resolved"
}

// Resolution reports the identity outcome for one match seat.
type Resolution struct {
	Kind        ResolutionKind  `json:"kind"`
	Participant *Participant    `json:"participant"`
	Fragment    json.RawMessage `json:"fragment,omitempty"`
	Round       string          `json:"round"`
	Match       int             `json:"match"`
}

type tournamentWire struct {
	Name           string             `json:"name"`
	Location       string             `json:"location"`
	StartDate      Date               `json:"start_date"`
	EndDate        *Date              `json:"end_date"`
	NumberOfRounds int                `json:"number_of_rounds"`
	CurrentRound   int                `json:"current_round"`
	Rounds         []*Round           `json:"rounds"`
	Players        []*Participant     `json:"players"`
	Description    string             `json:"description"`
	ScoresApplied  map[string]float64 `json:"scores_applied,omitempty"`
}

type tournamentDecodeWire struct {
	tournamentWire
	Rounds []roundWire `json:"rounds"`
}

type roundWire struct {
	Name      string      `json:"name"`
	Matches   []matchWire `json:"matches"`
	StartTime Timestamp   `json:"start_time"`
	EndTime   *Timestamp  `json:"end_time"`
}

type matchWire struct {
	Players     []json.RawMessage `json:"players"`
	WhitePlayer Side              `json:"white_player"`
	IsFinished  bool              `json:"is_finished"`
}

func (t *Tournament) MarshalJSON() ([]byte, error) {
	rounds := t.Rounds
	if rounds == nil {
		rounds = []*Round{}
	}
	players := t.Players
	if players == nil {
		players = []*Participant{}
	}
	return json.Marshal(tournamentWire{
		Name:           t.Name,
		Location:       t.Location,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		NumberOfRounds: t.NumberOfRounds,
		CurrentRound:   t.CurrentRound,
		Rounds:         rounds,
		Players:        players,
		Description:    t.Description,
		ScoresApplied:  t.ScoresApplied,
	})
}

func (t *Tournament) UnmarshalJSON(data []byte) error {
	decoded, _, err := DecodeTournament(data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

// DecodeTournament rebuilds a tournament, resolving every match participant
// against the roster by national id so that one person maps to one instance.
// Participants missing from the roster are fabricated from the stored
// fragment and reported with Kind == Fabricated.
func DecodeTournament(data []byte) (*Tournament, []Resolution, error) {
	var wire tournamentDecodeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, nil, fmt.Errorf("decode tournament: %w", err)
	}

	t := NewTournament(wire.Name, wire.Location, wire.StartDate, wire.Description)
	t.EndDate = wire.EndDate
	if wire.NumberOfRounds > 0 {
		t.NumberOfRounds = wire.NumberOfRounds
	}
	// a repeated national id keeps its first entry
	seen := make(map[string]struct{}, len(wire.Players))
	for _, p := range wire.Players {
		if p == nil {
			continue
		}
		if _, dup := seen[p.NationalID]; dup {
			continue
		}
		seen[p.NationalID] = struct{}{}
		t.Players = append(t.Players, p)
	}
	for id, applied := range wire.ScoresApplied {
		t.ScoresApplied[id] = applied
	}

	byID := IndexParticipants(t.Players)
	var resolutions []Resolution
	for _, rw := range wire.Rounds {
		round := &Round{
			Name:      rw.Name,
			Matches:   make([]*Match, 0, len(rw.Matches)),
			StartTime: rw.StartTime,
			EndTime:   rw.EndTime,
		}
		for mi, mw := range rw.Matches {
			match, res, err := decodeMatch(mw, byID)
			if err != nil {
				return nil, nil, fmt.Errorf("decode %s match %d: %w", rw.Name, mi+1, err)
			}
			for i := range res {
				res[i].Round = rw.Name
				res[i].Match = mi
				if res[i].Kind == Fabricated {
					t.Fabricated = append(t.Fabricated, res[i])
				}
			}
			resolutions = append(resolutions, res...)
			round.Matches = append(round.Matches, match)
		}
		t.Rounds = append(t.Rounds, round)
	}
	t.CurrentRound = len(t.Rounds)
	return t, resolutions, nil
}

func decodeMatch(mw matchWire, byID map[string]*Participant) (*Match, []Resolution, error) {
	if len(mw.Players) != 2 {
		return nil, nil, fmt.Errorf("%w: expected 2 players, got %d", ErrInvalidMatchPlayer, len(mw.Players))
	}
	if !mw.WhitePlayer.Valid() {
		return nil, nil, fmt.Errorf("%w: white_player %d", ErrInvalidMatchPlayer, mw.WhitePlayer)
	}
	m := &Match{WhitePlayer: mw.WhitePlayer, IsFinished: mw.IsFinished}
	resolutions := make([]Resolution, 0, 2)
	for i, raw := range mw.Players {
		var seat []json.RawMessage
		if err := json.Unmarshal(raw, &seat); err != nil || len(seat) != 2 {
			return nil, nil, fmt.Errorf("%w: seat %d", ErrInvalidMatchPlayer, i)
		}
		var points float64
		if err := json.Unmarshal(seat[1], &points); err != nil {
			return nil, nil, fmt.Errorf("%w: seat %d points: %v", ErrInvalidMatchPlayer, i, err)
		}
		res, err := resolveParticipant(seat[0], byID)
		if err != nil {
			return nil, nil, err
		}
		m.Sides[i] = MatchSide{Participant: res.Participant, Points: points}
		resolutions = append(resolutions, res)
	}
	return m, resolutions, nil
}

// participantFragment is a permissive view of a stored participant.
type participantFragment struct {
	FirstName  string  `json:"firstname"`
	LastName   string  `json:"lastname"`
	BirthDate  string  `json:"birthdate"`
	NationalID *string `json:"national_id"`
	Score      float64 `json:"score"`
}

func resolveParticipant(raw json.RawMessage, byID map[string]*Participant) (Resolution, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Resolution{}, ErrInvalidMatchPlayer
	}
	var frag participantFragment
	if err := json.Unmarshal(trimmed, &frag); err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidMatchPlayer, err)
	}
	id := placeholderNationalID
	if frag.NationalID != nil {
		id = *frag.NationalID
	}
	if p, ok := byID[id]; ok {
		return Resolution{Kind: Resolved, Participant: p}, nil
	}
	// A bad birth date must not make the whole file unreadable.
	birth, _ := ParseDate(frag.BirthDate)
	return Resolution{
		Kind: Fabricated,
		Participant: &Participant{
			NationalID: id,
			FirstName:  frag.FirstName,
			LastName:   frag.LastName,
			BirthDate:  birth,
			Score:      frag.Score,
		},
		Fragment: append(json.RawMessage(nil), trimmed...),
	}, nil
}
