package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LoyaltyMetrics tracks domain activity across accrual, redemption, and the
// lottery pipeline.
type LoyaltyMetrics struct {
	pointsAccrued   *prometheus.CounterVec
	pointsRedeemed  prometheus.Counter
	ticketsIssued   *prometheus.CounterVec
	drawsPerformed  *prometheus.CounterVec
	outboxPublished prometheus.Counter
	outboxFailed    prometheus.Counter
}

// NewLoyaltyMetrics registers the loyalty metrics on the provided registerer.
func NewLoyaltyMetrics(reg prometheus.Registerer) *LoyaltyMetrics {
	if reg == nil {
		return &LoyaltyMetrics{}
	}
	pointsAccrued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_points_accrued_total",
		Help: "Points credited to accounts, labeled by tier at accrual time.",
	}, []string{"tier"})
	pointsRedeemed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Points debited through reward redemptions.",
	})
	ticketsIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_tickets_issued_total",
		Help: "Lottery tickets issued, labeled by category.",
	}, []string{"category"})
	drawsPerformed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lottery_draws_performed_total",
		Help: "Completed lottery draws, labeled by category.",
	}, []string{"category"})
	outboxPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_events_published_total",
		Help: "Outbox events successfully published.",
	})
	outboxFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed.",
	})
	reg.MustRegister(pointsAccrued, pointsRedeemed, ticketsIssued, drawsPerformed, outboxPublished, outboxFailed)
	return &LoyaltyMetrics{
		pointsAccrued:   pointsAccrued,
		pointsRedeemed:  pointsRedeemed,
		ticketsIssued:   ticketsIssued,
		drawsPerformed:  drawsPerformed,
		outboxPublished: outboxPublished,
		outboxFailed:    outboxFailed,
	}
}

// AddPointsAccrued records credited points for the given tier.
func (m *LoyaltyMetrics) AddPointsAccrued(tier string, points int64) {
	if m == nil || m.pointsAccrued == nil {
		return
	}
	m.pointsAccrued.WithLabelValues(normalizeLabel(tier)).Add(float64(points))
}

// AddPointsRedeemed records debited points.
func (m *LoyaltyMetrics) AddPointsRedeemed(points int64) {
	if m == nil || m.pointsRedeemed == nil {
		return
	}
	m.pointsRedeemed.Add(float64(points))
}

// AddTicketsIssued records issued tickets for the given category.
func (m *LoyaltyMetrics) AddTicketsIssued(category string, count int) {
	if m == nil || m.ticketsIssued == nil {
		return
	}
	m.ticketsIssued.WithLabelValues(normalizeLabel(category)).Add(float64(count))
}

// IncDrawsPerformed records a completed draw for the given category.
func (m *LoyaltyMetrics) IncDrawsPerformed(category string) {
	if m == nil || m.drawsPerformed == nil {
		return
	}
	m.drawsPerformed.WithLabelValues(normalizeLabel(category)).Inc()
}

// IncOutboxPublished records a successful outbox publish.
func (m *LoyaltyMetrics) IncOutboxPublished() {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.Inc()
}

// IncOutboxFailed records a failed outbox publish attempt.
func (m *LoyaltyMetrics) IncOutboxFailed() {
	if m == nil || m.outboxFailed == nil {
		return
	}
	m.outboxFailed.Inc()
}
