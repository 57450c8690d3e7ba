package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_created_total",
		Help: "Total number of transactions created",
	}, []string{"payment_method"})

	TransactionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_failed_total",
		Help: "Total number of rejected checkouts",
	}, []string{"reason"})

	TransactionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_status_transitions_total",
		Help: "Total number of transaction status transitions",
	}, []string{"from", "to"})

	DepositsRequiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deposits_required_total",
		Help: "Total number of checkouts that required a COD deposit",
	})

	DepositsBypassedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deposits_bypassed_total",
		Help: "Total number of COD deposits waived for trusted buyers",
	})

	TransactionAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transaction_total_amount_mad",
		Help:    "Distribution of transaction totals in MAD",
		Buckets: []float64{50, 100, 250, 500, 1000, 1500, 3000, 5000, 10000},
	})

	KYCChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kyc_checks_total",
		Help: "Total number of identity verification checks by outcome",
	}, []string{"outcome"})

	KYCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kyc_check_latency_seconds",
		Help:    "Latency of identity verification checks",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
	})

	TrustScoreRecomputedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trust_score_recomputed_total",
		Help: "Total number of trust score recomputations by trigger",
	}, []string{"trigger"})

	MessagesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Total number of chat messages sent",
	}, []string{"type"})

	OffersRespondedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offers_responded_total",
		Help: "Total number of price offers answered",
	}, []string{"status"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of in-app notifications created",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
