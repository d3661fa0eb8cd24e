package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "noelphones"

var (
	// AuthAttempts counts register and login calls by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Register and login attempts partitioned by outcome.",
	}, []string{"operation", "outcome"})

	// AuthRejections counts requests turned away by the auth middleware.
	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_rejections_total",
		Help:      "Requests rejected by authentication or role checks.",
	}, []string{"reason"})
)

// Outcome labels.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation_error"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Rejection reasons.
const (
	ReasonMissingHeader = "missing_header"
	ReasonBadFormat     = "bad_format"
	ReasonMalformed     = "malformed_token"
	ReasonBadSignature  = "bad_signature"
	ReasonExpired       = "expired_token"
	ReasonNoIdentity    = "no_identity"
	ReasonRole          = "insufficient_role"
)
