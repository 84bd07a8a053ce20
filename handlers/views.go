package handlers

import (
	"sort"

	"chess-tournament-system/models"
)

type tournamentSummary struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Location       string `json:"location"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date,omitempty"`
	Status         string `json:"status"`
	CurrentRound   int    `json:"current_round"`
	NumberOfRounds int    `json:"number_of_rounds"`
	Players        int    `json:"players"`
}

type standingView struct {
	Rank       int     `json:"rank"`
	NationalID string  `json:"national_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}

type seatView struct {
	Color      string  `json:"color"`
	NationalID string  `json:"national_id"`
	Name       string  `json:"name"`
	Points     float64 `json:"points"`
}

type matchView struct {
	Number     int         `json:"number"`
	Seats      [2]seatView `json:"seats"`
	IsFinished bool        `json:"is_finished"`
}

type roundView struct {
	Number    int         `json:"number"`
	Name      string      `json:"name"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time,omitempty"`
	Matches   []matchView `json:"matches"`
}

type fabricatedView struct {
	Round      string `json:"round"`
	Match      int    `json:"match"`
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
}

type tournamentDetail struct {
	tournamentSummary
	Description string           `json:"description"`
	Standings   []standingView   `json:"standings"`
	Rounds      []roundView      `json:"rounds"`
	Fabricated  []fabricatedView `json:"fabricated,omitempty"`
}

func summarize(t *models.Tournament) tournamentSummary {
	s := tournamentSummary{
		Name:           t.Name,
		Slug:           t.Slug(),
		Location:       t.Location,
		StartDate:      t.StartDate.String(),
		Status:         t.Status(),
		CurrentRound:   t.CurrentRound,
		NumberOfRounds: t.NumberOfRounds,
		Players:        len(t.Players),
	}
	if t.EndDate != nil {
		s.EndDate = t.EndDate.String()
	}
	return s
}

func detail(t *models.Tournament) tournamentDetail {
	d := tournamentDetail{
		tournamentSummary: summarize(t),
		Description:       t.Description,
		Standings:         standings(t.Players),
		Rounds:            make([]roundView, 0, len(t.Rounds)),
	}
	for i, r := range t.Rounds {
		rv := roundView{
			Number:    i + 1,
			Name:      r.Name,
			StartTime: r.StartTime.String(),
			Matches:   make([]matchView, 0, len(r.Matches)),
		}
		if r.EndTime != nil {
			rv.EndTime = r.EndTime.String()
		}
		for j, m := range r.Matches {
			mv := matchView{Number: j + 1, IsFinished: m.IsFinished}
			for side, seat := range m.Sides {
				sv := seatView{Color: m.ColorLabel(models.Side(side)), Points: seat.Points}
				if seat.Participant != nil {
					sv.NationalID = seat.Participant.NationalID
					sv.Name = seat.Participant.FullName()
				}
				mv.Seats[side] = sv
			}
			rv.Matches = append(rv.Matches, mv)
		}
		d.Rounds = append(d.Rounds, rv)
	}
	for _, f := range t.Fabricated {
		d.Fabricated = append(d.Fabricated, fabricatedView{
			Round:      f.Round,
			Match:      f.Match + 1,
			NationalID: f.Participant.NationalID,
			Name:       f.Participant.FullName(),
		})
	}
	return d
}

// standings orders the roster by tournament score, highest first. Ties keep
// roster order and share a rank.
func standings(players []*models.Participant) []standingView {
	ordered := make([]*models.Participant, len(players))
	copy(ordered, players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	out := make([]standingView, 0, len(ordered))
	for i, p := range ordered {
		rank := i + 1
		if i > 0 && p.Score == ordered[i-1].Score {
			rank = out[i-1].Rank
		}
		out = append(out, standingView{Rank: rank, NationalID: p.NationalID, Name: p.FullName(), Score: p.Score})
	}
	return out
}
