// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bugdex_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	VotesCast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bugdex_votes_cast_total",
			Help: "Off-chain votes recorded, by direction and whether it switched an earlier vote",
		},
		[]string{"direction", "kind"},
	)

	SubmissionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bugdex_submissions_resolved_total",
			Help: "Submissions finalized by the resolver, by outcome",
		},
		[]string{"outcome"},
	)

	RewardsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bugdex_bug_rewards_awarded_total",
			Help: "BUG tokens credited to approved submissions",
		},
	)

	StakeVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bugdex_stake_verifications_total",
			Help: "Stake checks performed before entering voting, by result",
		},
		[]string{"result"},
	)

	ChainCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bugdex_chain_call_duration_seconds",
			Help:    "Latency of read-only contract calls",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "result"},
	)

	PendingSubmissions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bugdex_pending_submissions",
			Help: "Submissions in pending_voting seen by the last resolver run",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration,
		VotesCast,
		SubmissionsResolved,
		RewardsAwarded,
		StakeVerifications,
		ChainCalls,
		PendingSubmissions,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Direction labels a vote for the votes counter
func Direction(voteFor bool) string {
	if voteFor {
		return "for"
	}
	return "against"
}

// Status formats an HTTP status code as a label value
func Status(code int) string {
	return strconv.Itoa(code)
}
