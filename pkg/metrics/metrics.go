package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters recorded by the asset, photo and profile packages.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	assetWrites      *prometheus.CounterVec
	assetDeletes     *prometheus.CounterVec
	uploadsRejected  *prometheus.CounterVec
	profileMutations *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		assetWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeptical_asset_writes_total",
			Help: "Assets written to the asset store, by category and result.",
		}, []string{"category", "result"}),
		assetDeletes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeptical_asset_deletes_total",
			Help: "Best-effort asset deletions, by category and result.",
		}, []string{"category", "result"}),
		uploadsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeptical_uploads_rejected_total",
			Help: "Uploads rejected before storage, by reason.",
		}, []string{"reason"}),
		profileMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zeptical_profile_mutations_total",
			Help: "Profile section mutations, by section, operation and result.",
		}, []string{"section", "op", "result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) AssetWritten(category string, err error) {
	if m == nil {
		return
	}
	m.assetWrites.WithLabelValues(category, result(err)).Inc()
}

func (m *Metrics) AssetDeleted(category string, err error) {
	if m == nil {
		return
	}
	m.assetDeletes.WithLabelValues(category, result(err)).Inc()
}

func (m *Metrics) UploadRejected(reason string) {
	if m == nil {
		return
	}
	m.uploadsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProfileMutation(section, op string, err error) {
	if m == nil {
		return
	}
	m.profileMutations.WithLabelValues(section, op, result(err)).Inc()
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
