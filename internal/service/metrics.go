package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for authAttempts.
const (
	outcomeSuccess     = "success"
	outcomeInvalid     = "invalid_input"
	outcomeConflict    = "conflict"
	outcomeBadPassword = "invalid_credentials"
	outcomeError       = "error"
)

var authAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "medicare_auth_attempts_total",
		Help: "Register and login attempts by outcome",
	},
	[]string{"operation", "outcome"},
)
