package advisory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"vitalscore/internal/model"
)

// ErrUnavailable wraps any advisory failure: transport errors, timeouts,
// or replies that cannot be parsed. Callers recover locally; the error
// never propagates past the weight resolver.
var ErrUnavailable = errors.New("weight advisory unavailable")

// Sufficiency flags whether each metric has enough recent data to be
// trusted (at least 3 non-null readings in the last 7 days).
type Sufficiency struct {
	HRV      bool `json:"hrv"`
	Sleep    bool `json:"sleep"`
	Recovery bool `json:"recovery"`
	Activity bool `json:"activity"`
}

// Request is the structured prompt payload sent to the collaborator.
type Request struct {
	Age         int               `json:"age"`
	Conditions  []model.Condition `json:"conditions"`
	Sufficiency Sufficiency       `json:"sufficiency"`
}

// Suggestion is the collaborator's raw weight proposal. The resolver
// re-normalizes; the four weights need not sum to anything in particular.
type Suggestion struct {
	HRV       float64 `json:"hrv"`
	Sleep     float64 `json:"sleep"`
	Recovery  float64 `json:"recovery"`
	Activity  float64 `json:"activity"`
	Reasoning string  `json:"reasoning"`
}

// Advisor is the capability interface for the external weighting
// collaborator. Implementations must honor context cancellation.
type Advisor interface {
	SuggestWeights(ctx context.Context, req Request) (Suggestion, error)
}

// CacheKey folds the request into a stable string. Condition order does
// not affect the key.
func CacheKey(req Request) string {
	conds := make([]string, 0, len(req.Conditions))
	for _, c := range req.Conditions {
		conds = append(conds, string(c))
	}
	sort.Strings(conds)
	return fmt.Sprintf("age=%d|conds=%s|suff=%t%t%t%t",
		req.Age,
		strings.Join(conds, ","),
		req.Sufficiency.HRV, req.Sufficiency.Sleep,
		req.Sufficiency.Recovery, req.Sufficiency.Activity,
	)
}
