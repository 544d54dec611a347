// Package metrics counts ledger traffic with Prometheus collectors.
//
// Each Recorder owns a private registry so that several ledgers (or tests)
// never collide on metric names.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/Iron-Ham/borrowledger/internal/ledger"
)

// Outcome label values.
const (
	OutcomeGranted  = "granted"
	OutcomeRefused  = "refused"
	OutcomeFull     = "full"
	OutcomePartial  = "partial"
	OutcomeMismatch = "mismatch"
)

// Recorder holds the ledger collectors.
type Recorder struct {
	registry *prometheus.Registry

	borrows  *prometheus.CounterVec
	releases *prometheus.CounterVec
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		borrows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "borrowledger_borrows_total",
			Help: "Total borrow attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		releases: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "borrowledger_releases_total",
			Help: "Total release attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

// RecordBorrow records a borrow attempt of the given kind.
func (r *Recorder) RecordBorrow(kind ledger.Kind, granted bool) {
	outcome := OutcomeRefused
	if granted {
		outcome = OutcomeGranted
	}
	r.borrows.WithLabelValues(kind.String(), outcome).Inc()
}

// RecordRelease records a release attempt. err takes precedence over rel.
func (r *Recorder) RecordRelease(kind ledger.Kind, rel ledger.Release, err error) {
	outcome := OutcomeFull
	switch {
	case err != nil:
		outcome = OutcomeMismatch
	case rel == ledger.PartiallyReleased:
		outcome = OutcomePartial
	}
	r.releases.WithLabelValues(kind.String(), outcome).Inc()
}

// WatchLedger exports the number of borrowed addresses in l as a gauge,
// sampled on every scrape.
func (r *Recorder) WatchLedger(l *ledger.Ledger) {
	promauto.With(r.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "borrowledger_borrowed_addresses",
		Help: "Number of addresses currently borrowed.",
	}, func() float64 {
		return float64(l.Len())
	})
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Snapshot is a point-in-time copy of the counters keyed by
// "kind/outcome", e.g. "shared/granted".
type Snapshot struct {
	Borrows  map[string]float64 `json:"borrows" yaml:"borrows"`
	Releases map[string]float64 `json:"releases" yaml:"releases"`
}

// Snapshot gathers the current counter values.
func (r *Recorder) Snapshot() (Snapshot, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Borrows:  map[string]float64{},
		Releases: map[string]float64{},
	}
	for _, mf := range families {
		var dst map[string]float64
		switch mf.GetName() {
		case "borrowledger_borrows_total":
			dst = snap.Borrows
		case "borrowledger_releases_total":
			dst = snap.Releases
		default:
			continue
		}
		for _, m := range mf.GetMetric() {
			dst[labelKey(m)] = m.GetCounter().GetValue()
		}
	}
	return snap, nil
}

func labelKey(m *dto.Metric) string {
	var kind, outcome string
	for _, lp := range m.GetLabel() {
		switch lp.GetName() {
		case "kind":
			kind = lp.GetValue()
		case "outcome":
			outcome = lp.GetValue()
		}
	}
	return kind + "/" + outcome
}
