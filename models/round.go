package models

import (
	"fmt"
	"time"
)

// Round groups the matches played together. Its pairings never change after
// creation; only results are filled in.
type Round struct {
	Name      string     `json:"name"`
	Matches   []*Match   `json:"matches"`
	StartTime Timestamp  `json:"start_time"`
	EndTime   *Timestamp `json:"end_time"`
}

func NewRound(number int, now time.Time) *Round {
	return &Round{
		Name:      fmt.Sprintf("Round %d", number),
		Matches:   []*Match{},
		StartTime: NewTimestamp(now),
	}
}

func (r *Round) IsOpen() bool {
	return r.EndTime == nil
}

// Finish stamps the end time.
func (r *Round) Finish(now time.Time) {
	ts := NewTimestamp(now)
	r.EndTime = &ts
}

// Unfinished returns the matches still waiting for a result, in pairing order.
func (r *Round) Unfinished() []*Match {
	var pending []*Match
	for _, m := range r.Matches {
		if !m.IsFinished {
			pending = append(pending, m)
		}
	}
	return pending
}
