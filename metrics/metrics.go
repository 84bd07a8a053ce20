// Package metrics exposes tournament activity counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chess_tournament"

// Recorder counts tournament lifecycle events. A nil *Recorder is valid and
// records nothing, so services can run without metrics in tests.
type Recorder struct {
	registry *prometheus.Registry

	roundsStarted   prometheus.Counter
	roundsFinished  prometheus.Counter
	tournamentsDone prometheus.Counter
	byes            prometheus.Counter
	results         *prometheus.CounterVec
	fabricated      *prometheus.GaugeVec
	archiveUploads  *prometheus.CounterVec
	registrySynced  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		roundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_started_total",
			Help: "Rounds started across all tournaments.",
		}),
		roundsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_finished_total",
			Help: "Rounds finished across all tournaments.",
		}),
		tournamentsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tournaments_closed_total",
			Help: "Tournaments closed.",
		}),
		byes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "unpaired_participants_total",
			Help: "Participants left without an opponent when a round started.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "results_recorded_total",
			Help: "Match results recorded, by outcome.",
		}, []string{"outcome"}),
		fabricated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fabricated_participants",
			Help: "Match participants rebuilt from stored data because the roster had no match, by tournament.",
		}, []string{"tournament"}),
		archiveUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "archive_uploads_total",
			Help: "Closed tournament archive attempts, by result.",
		}, []string{"result"}),
		registrySynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "registry_sync_participants_total",
			Help: "Participants merged from the federation feed, by change.",
		}, []string{"change"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.roundsStarted, r.roundsFinished, r.tournamentsDone, r.byes,
		r.results, r.fabricated, r.archiveUploads, r.registrySynced,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RoundStarted(unpaired int) {
	if r == nil {
		return
	}
	r.roundsStarted.Inc()
	if unpaired > 0 {
		r.byes.Add(float64(unpaired))
	}
}

func (r *Recorder) RoundFinished() {
	if r == nil {
		return
	}
	r.roundsFinished.Inc()
}

func (r *Recorder) TournamentClosed() {
	if r == nil {
		return
	}
	r.tournamentsDone.Inc()
}

// ResultRecorded counts one decided match; outcome is "1", "2" or "draw".
func (r *Recorder) ResultRecorded(outcome string) {
	if r == nil {
		return
	}
	r.results.WithLabelValues(outcome).Inc()
}

// Fabricated sets how many participants of the tournament were rebuilt on
// its latest load. Reloading the same document leaves the value unchanged.
func (r *Recorder) Fabricated(tournament string, n int) {
	if r == nil {
		return
	}
	r.fabricated.WithLabelValues(tournament).Set(float64(n))
}

// ArchiveUpload counts one archive attempt; result is "uploaded", "skipped"
// or "failed".
func (r *Recorder) ArchiveUpload(result string) {
	if r == nil {
		return
	}
	r.archiveUploads.WithLabelValues(result).Inc()
}

func (r *Recorder) RegistrySynced(added, updated int) {
	if r == nil {
		return
	}
	r.registrySynced.WithLabelValues("added").Add(float64(added))
	r.registrySynced.WithLabelValues("updated").Add(float64(updated))
}
