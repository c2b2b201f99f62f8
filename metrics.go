/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Seednode/emojibox/wanted"
)

type gameMetrics struct {
	registry     *prometheus.Registry
	rounds       *prometheus.CounterVec
	gamesCreated prometheus.Counter
	activeGames  prometheus.Gauge
	reaction     prometheus.Histogram
}

func newGameMetrics() *gameMetrics {
	m := &gameMetrics{
		registry: prometheus.NewRegistry(),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emojibox",
			Name:      "rounds_total",
			Help:      "Resolved Emoji Wanted rounds, by outcome.",
		}, []string{"outcome"}),
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emojibox",
			Name:      "games_created_total",
			Help:      "Emoji Wanted games created.",
		}),
		activeGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emojibox",
			Name:      "active_games",
			Help:      "Emoji Wanted games currently held in memory.",
		}),
		reaction: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emojibox",
			Name:      "round_reaction_seconds",
			Help:      "Time from the start of a round to the wanted target being found.",
			Buckets:   []float64{0.25, 0.5, 1, 1.5, 2, 3, 4, 5, 7.5, 10},
		}),
	}

	m.registry.MustRegister(m.rounds, m.gamesCreated, m.activeGames, m.reaction)

	return m
}

func (m *gameMetrics) observe(tr wanted.Transition) {
	switch tr.To {
	case wanted.PhaseWon:
		m.rounds.WithLabelValues("won").Inc()
		m.reaction.Observe(tr.Elapsed.Round(time.Millisecond).Seconds())
	case wanted.PhaseLost:
		m.rounds.WithLabelValues(string(tr.Reason)).Inc()
	}
}

func registerMetricsHandlers(cfg *Config, m *gameMetrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
