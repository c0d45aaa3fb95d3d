package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's collectors on a private prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	OrdersCreated       prometheus.Counter
	OrdersPatched       prometheus.Counter
	OrdersDeleted       prometheus.Counter
	ListCacheHits       prometheus.Counter
	ListCacheMisses     prometheus.Counter
	ListCacheInvalidate prometheus.Counter
	DuplicateChecks     *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	DraftSaves          *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// NewRegistry registers every collector on a private registry
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_orders_created_total"})
	patched := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_orders_patched_total"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_orders_deleted_total"})
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_list_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_list_cache_misses_total"})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{Name: "appraisal_list_cache_invalidations_total"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_duplicate_checks_total",
		Help: "Duplicate address checks by result.",
	}, []string{"result"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_notifications_total",
		Help: "Notification dispatches by channel and outcome.",
	}, []string{"channel", "outcome"})
	draftSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_draft_saves_total",
		Help: "Intake draft saves by draft key and outcome.",
	}, []string{"draft", "outcome"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_order_events_total",
		Help: "Order events handed to the publisher by type and outcome.",
	}, []string{"type", "outcome"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appraisal_http_requests_total",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "appraisal_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(created, patched, deleted, hits, misses, invalidations,
		duplicates, notifications, draftSaves, events, requests, duration)
	return &Registry{
		reg:                 r,
		OrdersCreated:       created,
		OrdersPatched:       patched,
		OrdersDeleted:       deleted,
		ListCacheHits:       hits,
		ListCacheMisses:     misses,
		ListCacheInvalidate: invalidations,
		DuplicateChecks:     duplicates,
		Notifications:       notifications,
		DraftSaves:          draftSaves,
		EventsPublished:     events,
		HTTPRequests:        requests,
		HTTPDuration:        duration,
	}
}

// Handler serves the registry in the prometheus text format
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry to tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// OrderCreated counts a created order
func (r *Registry) OrderCreated() {
	if r != nil {
		r.OrdersCreated.Inc()
	}
}

// OrderPatched counts a patched order
func (r *Registry) OrderPatched() {
	if r != nil {
		r.OrdersPatched.Inc()
	}
}

// OrderDeleted counts a soft-deleted order
func (r *Registry) OrderDeleted() {
	if r != nil {
		r.OrdersDeleted.Inc()
	}
}

// CacheHit counts a first-page cache hit
func (r *Registry) CacheHit() {
	if r != nil {
		r.ListCacheHits.Inc()
	}
}

// CacheMiss counts a first-page cache miss
func (r *Registry) CacheMiss() {
	if r != nil {
		r.ListCacheMisses.Inc()
	}
}

// CacheInvalidated counts a cache invalidation
func (r *Registry) CacheInvalidated() {
	if r != nil {
		r.ListCacheInvalidate.Inc()
	}
}

// DuplicateCheck counts an address check by result
func (r *Registry) DuplicateCheck(found bool) {
	if r == nil {
		return
	}
	result := "clear"
	if found {
		result = "duplicate"
	}
	r.DuplicateChecks.WithLabelValues(result).Inc()
}

// Notification counts a notification attempt by channel and outcome
func (r *Registry) Notification(channel, outcome string) {
	if r == nil {
		return
	}
	r.Notifications.WithLabelValues(channel, outcome).Inc()
}

// DraftSave counts a draft save by draft key and outcome
func (r *Registry) DraftSave(draft, outcome string) {
	if r == nil {
		return
	}
	r.DraftSaves.WithLabelValues(draft, outcome).Inc()
}

// EventPublished counts an order event by type and outcome
func (r *Registry) EventPublished(eventType, outcome string) {
	if r == nil {
		return
	}
	r.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}
