// Package providers defines the contract every WHOIS chain stage implements.
//
// A stage never panics or returns a bare error: each call yields exactly one
// Result, and the chain advances only on Empty or Failure.
package providers

import (
	"context"

	"forensics/internal/intel/models"
	"forensics/pkg/domain"
)

// Outcome tags a Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeEmpty
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result is Success(record) | Empty(reason) | Failure(err).
type Result struct {
	Outcome Outcome
	Record  models.WhoisRecord
	Reason  string
	Err     error
}

func Success(record models.WhoisRecord) Result {
	return Result{Outcome: OutcomeSuccess, Record: record}
}

func Empty(reason string) Result {
	return Result{Outcome: OutcomeEmpty, Reason: reason}
}

func Failure(err error) Result {
	r := Result{Outcome: OutcomeFailure, Err: err}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

// OK reports whether the result ends the chain.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Label is a short outcome label for metrics: success, empty, or the failure category.
func (r Result) Label() string {
	if r.Outcome == OutcomeFailure {
		return string(GetCategory(r.Err))
	}
	return r.Outcome.String()
}

// WhoisProvider is one stage of the ownership chain.
type WhoisProvider interface {
	// ID returns a stable identifier used in logs and metrics
	ID() string

	// Lookup resolves ownership data for a validated domain
	Lookup(ctx context.Context, d domain.DomainName) Result
}
