package models

import (
	"errors"
	"testing"
)

func newTestParticipant(id, first, last string) *Participant {
	return &Participant{NationalID: id, FirstName: first, LastName: last}
}

func TestMatchSetResult(t *testing.T) {
	tests := []struct {
		outcome Outcome
		a, b    float64
	}{
		{OutcomeSideAWins, 1, 0},
		{OutcomeSideBWins, 0, 1},
		{OutcomeDraw, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			m := NewMatch(newTestParticipant("AB00001", "Ada", "Lovelace"), newTestParticipant("AB00002", "Alan", "Turing"), SideA)
			if err := m.SetResult(tt.outcome); err != nil {
				t.Fatalf("set result: %v", err)
			}
			if !m.IsFinished {
				t.Fatal("expected match finished")
			}
			if m.Sides[SideA].Points != tt.a || m.Sides[SideB].Points != tt.b {
				t.Fatalf("expected %v-%v, got %v-%v", tt.a, tt.b, m.Sides[SideA].Points, m.Sides[SideB].Points)
			}
		})
	}
}

func TestMatchSetResultRejectsSecondResult(t *testing.T) {
	m := NewMatch(newTestParticipant("AB00001", "Ada", "Lovelace"), newTestParticipant("AB00002", "Alan", "Turing"), SideB)
	if err := m.SetResult(OutcomeSideAWins); err != nil {
		t.Fatalf("set result: %v", err)
	}
	if err := m.SetResult(OutcomeSideBWins); !errors.Is(err, ErrMatchFinished) {
		t.Fatalf("expected ErrMatchFinished, got %v", err)
	}
	if m.Sides[SideA].Points != WinPoints {
		t.Fatal("points changed after the match was finished")
	}
}

func TestMatchSetResultRejectsUnknownOutcome(t *testing.T) {
	m := NewMatch(newTestParticipant("AB00001", "Ada", "Lovelace"), newTestParticipant("AB00002", "Alan", "Turing"), SideA)
	if err := m.SetResult(Outcome(9)); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
	if m.IsFinished {
		t.Fatal("match must stay open after an invalid outcome")
	}
}

func TestParseOutcome(t *testing.T) {
	for in, want := range map[string]Outcome{"1": OutcomeSideAWins, "2": OutcomeSideBWins, "draw": OutcomeDraw, "B": OutcomeSideBWins} {
		got, err := ParseOutcome(in)
		if err != nil || got != want {
			t.Fatalf("ParseOutcome(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseOutcome("3"); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
}

func TestColorLabel(t *testing.T) {
	m := NewMatch(newTestParticipant("AB00001", "Ada", "Lovelace"), newTestParticipant("AB00002", "Alan", "Turing"), SideB)
	if m.ColorLabel(SideB) != "White" || m.ColorLabel(SideA) != "Black" {
		t.Fatalf("unexpected labels %s/%s", m.ColorLabel(SideA), m.ColorLabel(SideB))
	}
	if !m.Involves("AB00002") || m.Involves("ZZ99999") {
		t.Fatal("Involves reported the wrong participants")
	}
}
