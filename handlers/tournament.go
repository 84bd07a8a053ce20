package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"chess-tournament-system/metrics"
	"chess-tournament-system/middleware"
	"chess-tournament-system/models"
	"chess-tournament-system/services"
	"chess-tournament-system/storage"

	"github.com/gofiber/fiber/v2"
)

// TournamentHandler serves the operator API. mu serialises every
// load-mutate-save cycle so concurrent requests act as one operator.
type TournamentHandler struct {
	tournaments   *services.TournamentService
	registry      *services.RegistryService
	store         storage.TournamentStore
	events        *services.EventBroker
	metrics       *metrics.Recorder
	defaultRounds int

	mu sync.Mutex
}

func NewTournamentHandler(
	tournaments *services.TournamentService,
	registry *services.RegistryService,
	store storage.TournamentStore,
	events *services.EventBroker,
	rec *metrics.Recorder,
	defaultRounds int,
) *TournamentHandler {
	if defaultRounds <= 0 {
		defaultRounds = models.DefaultNumberOfRounds
	}
	return &TournamentHandler{
		tournaments:   tournaments,
		registry:      registry,
		store:         store,
		events:        events,
		metrics:       rec,
		defaultRounds: defaultRounds,
	}
}

func SetupTournamentRoutes(app *fiber.App, h *TournamentHandler, operatorToken string) {
	app.Get("/tournaments", h.ListTournaments)
	app.Get("/tournaments/:name", h.GetTournament)
	app.Get("/tournaments/:name/stream", middleware.StreamAuthMiddleware(operatorToken), h.StreamTournament)

	// 🔐 Operator routes
	operator := middleware.OperatorAuthMiddleware(operatorToken)
	app.Post("/tournaments", operator, h.CreateTournament)
	app.Post("/tournaments/:name/rounds", operator, h.StartRound)
	app.Post("/tournaments/:name/rounds/current/finish", operator, h.FinishRound)
	app.Put("/tournaments/:name/rounds/:round/matches/:match/result", operator, h.RecordResult)
	app.Post("/tournaments/:name/close", operator, h.CloseTournament)
}

type createTournamentRequest struct {
	Name           string `json:"name"`
	Location       string `json:"location"`
	StartDate      string `json:"start_date"`
	Description    string `json:"description"`
	NumberOfRounds int    `json:"number_of_rounds"`
}

// CreateTournament snapshots the registry into a new tournament.
func (h *TournamentHandler) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	if models.SlugFor(req.Name) == "" {
		return badRequest(c, "name must contain at least one letter or digit")
	}

	start := models.NewDate(time.Now())
	if req.StartDate != "" {
		parsed, err := models.ParseDate(req.StartDate)
		if err != nil {
			return badRequest(c, "invalid start_date (use DD-MM-YYYY)")
		}
		start = parsed
	}
	rounds := req.NumberOfRounds
	if rounds == 0 {
		rounds = h.defaultRounds
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.UserContext()

	if _, err := h.store.LoadTournament(ctx, req.Name); err == nil {
		return conflict(c, "a tournament with this name already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return respondError(c, err)
	}

	registry, err := h.registry.Snapshot(ctx)
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.tournaments.CreateTournament(services.NewTournamentInput{
		Name:           req.Name,
		Location:       strings.TrimSpace(req.Location),
		StartDate:      start,
		Description:    req.Description,
		NumberOfRounds: rounds,
	}, registry)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.store.SaveTournament(ctx, t); err != nil {
		return respondError(c, err)
	}

	log.Printf("[TOURNAMENT] %s created %q with %d player(s), %d round(s)", middleware.Operator(c), t.Name, len(t.Players), t.NumberOfRounds)
	h.publish(t, "created", 0)
	return c.Status(fiber.StatusCreated).JSON(detail(t))
}

// ListTournaments returns summaries; ?status=unfinished keeps only open ones.
func (h *TournamentHandler) ListTournaments(c *fiber.Ctx) error {
	filter := c.Query("status")
	if filter != "" && filter != "unfinished" {
		return badRequest(c, "status must be 'unfinished' or omitted")
	}

	all, err := h.store.ListTournaments(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	res := make([]tournamentSummary, 0, len(all))
	for _, t := range all {
		if filter == "unfinished" && t.IsClosed() {
			continue
		}
		res = append(res, summarize(t))
	}
	return c.JSON(res)
}

func (h *TournamentHandler) GetTournament(c *fiber.Ctx) error {
	t, err := h.load(c.UserContext(), nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail(t))
}

// StartRound pairs the roster and opens the next round.
func (h *TournamentHandler) StartRound(c *fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.UserContext()

	t, err := h.load(ctx, nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	if !h.tournaments.StartRound(t) {
		return conflict(c, startRoundRefusal(t))
	}
	if err := h.store.SaveTournament(ctx, t); err != nil {
		return respondError(c, err)
	}

	round := t.LastRound()
	h.metrics.RoundStarted(len(t.Players) - 2*len(round.Matches))
	h.publish(t, "round_started", 0)
	return c.Status(fiber.StatusCreated).JSON(detail(t))
}

func startRoundRefusal(t *models.Tournament) string {
	switch {
	case t.IsClosed():
		return "tournament is closed"
	case t.CurrentRound >= t.NumberOfRounds:
		return "all rounds have already been played"
	default:
		return "no pairs could be generated for this round"
	}
}

type matchResult struct {
	Match   int    `json:"match"`
	Outcome string `json:"outcome"`
}

type finishRoundRequest struct {
	Results []matchResult `json:"results"`
}

type parsedResult struct {
	match   int
	outcome models.Outcome
}

// FinishRound closes the current round, records the supplied results for its
// unfinished matches and folds the gains into the registry. Results for
// matches that already have one are reported back as skipped.
func (h *TournamentHandler) FinishRound(c *fiber.Ctx) error {
	var req finishRoundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.UserContext()

	t, err := h.load(ctx, nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	if t.IsClosed() {
		return conflict(c, "tournament is closed")
	}
	if len(t.Rounds) == 0 {
		return conflict(c, "no round has been started")
	}

	roundNumber := len(t.Rounds)
	results := make([]parsedResult, 0, len(req.Results))
	for _, r := range req.Results {
		outcome, err := models.ParseOutcome(r.Outcome)
		if err != nil {
			return respondError(c, err)
		}
		if _, err := h.tournaments.Match(t, roundNumber, r.Match); err != nil {
			return respondError(c, err)
		}
		results = append(results, parsedResult{match: r.Match, outcome: outcome})
	}

	if !h.tournaments.FinishRound(t) {
		return conflict(c, "round cannot be finished")
	}

	var skipped []int
	for _, r := range results {
		err := h.tournaments.RecordResult(t, roundNumber, r.match, r.outcome)
		if errors.Is(err, models.ErrMatchFinished) {
			skipped = append(skipped, r.match)
			continue
		}
		if err != nil {
			return respondError(c, err)
		}
		h.metrics.ResultRecorded(r.outcome.String())
	}

	if err := h.saveAndApply(ctx, t); err != nil {
		return respondError(c, err)
	}

	h.metrics.RoundFinished()
	log.Printf("[ROUND] %s finished %s of %q", middleware.Operator(c), t.LastRound().Name, t.Name)
	h.publish(t, "round_finished", 0)

	return c.JSON(fiber.Map{
		"tournament": detail(t),
		"skipped":    skipped,
		"pending":    len(t.LastRound().Unfinished()),
	})
}

type recordResultRequest struct {
	Outcome string `json:"outcome"`
}

// RecordResult decides one match. :round is a 1-based number or "current".
func (h *TournamentHandler) RecordResult(c *fiber.Ctx) error {
	var req recordResultRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	outcome, err := models.ParseOutcome(strings.TrimSpace(req.Outcome))
	if err != nil {
		return respondError(c, err)
	}
	matchNumber, err := strconv.Atoi(c.Params("match"))
	if err != nil {
		return badRequest(c, "match must be a number")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.UserContext()

	t, err := h.load(ctx, nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	roundNumber, err := roundParam(c.Params("round"), t)
	if err != nil {
		return badRequest(c, "round must be a number or 'current'")
	}
	if err := h.tournaments.RecordResult(t, roundNumber, matchNumber, outcome); err != nil {
		return respondError(c, err)
	}
	if err := h.store.SaveTournament(ctx, t); err != nil {
		return respondError(c, err)
	}

	h.metrics.ResultRecorded(outcome.String())
	h.publish(t, "result_recorded", matchNumber)
	return c.JSON(detail(t))
}

func roundParam(raw string, t *models.Tournament) (int, error) {
	if raw == "current" {
		return len(t.Rounds), nil
	}
	return strconv.Atoi(raw)
}

// CloseTournament stamps the end date once every round was started and
// folds the remaining gains into the registry.
func (h *TournamentHandler) CloseTournament(c *fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctx := c.UserContext()

	t, err := h.load(ctx, nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	if !h.tournaments.CloseTournament(t) {
		if t.IsClosed() {
			return conflict(c, "tournament is already closed")
		}
		return conflict(c, "all rounds must be played before closing")
	}
	if err := h.saveAndApply(ctx, t); err != nil {
		return respondError(c, err)
	}

	h.metrics.TournamentClosed()
	log.Printf("[TOURNAMENT] %s closed %q", middleware.Operator(c), t.Name)
	h.publish(t, "closed", 0)
	return c.JSON(detail(t))
}

func (h *TournamentHandler) StreamTournament(c *fiber.Ctx) error {
	t, err := h.load(c.UserContext(), nameParam(c))
	if err != nil {
		return respondError(c, err)
	}
	initial := newEvent(t, "snapshot", 0)
	return h.events.Stream(c, t.Slug(), &initial)
}

// saveAndApply persists the results, folds them into the registry and saves
// again so the applied ledger matches the registry.
func (h *TournamentHandler) saveAndApply(ctx context.Context, t *models.Tournament) error {
	if err := h.store.SaveTournament(ctx, t); err != nil {
		return err
	}
	updated, err := h.registry.ApplyTournament(ctx, t)
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		return nil
	}
	return h.store.SaveTournament(ctx, t)
}

func (h *TournamentHandler) load(ctx context.Context, name string) (*models.Tournament, error) {
	t, err := h.store.LoadTournament(ctx, name)
	if err != nil {
		return nil, err
	}
	h.metrics.Fabricated(t.Slug(), len(t.Fabricated))
	return t, nil
}

func (h *TournamentHandler) publish(t *models.Tournament, kind string, match int) {
	h.events.Publish(t.Slug(), newEvent(t, kind, match))
}

func newEvent(t *models.Tournament, kind string, match int) services.TournamentEvent {
	ev := services.TournamentEvent{
		Type:         kind,
		Tournament:   t.Name,
		Status:       t.Status(),
		CurrentRound: t.CurrentRound,
		Match:        match,
		At:           models.NewTimestamp(time.Now()).String(),
	}
	if r := t.LastRound(); r != nil {
		ev.Round = r.Name
	}
	return ev
}
