// Package storage persists the participant registry and tournaments.
package storage

import (
	"context"
	"errors"

	"chess-tournament-system/models"
)

var ErrNotFound = errors.New("not found")

// ParticipantStore loads and saves the whole registry. National ids are the
// join key across save/load cycles.
type ParticipantStore interface {
	LoadParticipants(ctx context.Context) ([]*models.Participant, error)
	SaveParticipants(ctx context.Context, participants []*models.Participant) error
}

// TournamentStore keys tournaments by the slug of their name.
type TournamentStore interface {
	LoadTournament(ctx context.Context, name string) (*models.Tournament, error)
	SaveTournament(ctx context.Context, t *models.Tournament) error
	ListTournaments(ctx context.Context) ([]*models.Tournament, error)
}

type Store interface {
	ParticipantStore
	TournamentStore
}
