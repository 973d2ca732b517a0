// Package contract holds reusable checks every WHOIS provider must pass.
package contract

import (
	"context"
	"testing"

	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/pkg/domain"
)

// ContractTest defines a successful lookup and its expected record
type ContractTest struct {
	Name         string
	Provider     providers.WhoisProvider
	Domain       string
	ValidateFunc func(t *testing.T, record models.WhoisRecord)
}

// ContractSuite is a collection of contract tests for a provider
type ContractSuite struct {
	ProviderID string
	Source     string
	Tests      []ContractTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			if test.Provider.ID() != s.ProviderID {
				t.Errorf("expected provider ID %s, got %s", s.ProviderID, test.Provider.ID())
			}

			result := test.Provider.Lookup(context.Background(), domain.MustDomainName(test.Domain))
			if !result.OK() {
				t.Fatalf("expected success, got %s: %s", result.Outcome, result.Reason)
			}

			// Every canonical field is populated
			if !result.Record.Complete() {
				t.Errorf("record has empty fields: %+v", result.Record)
			}

			if s.Source != "" && result.Record.Source != s.Source {
				t.Errorf("expected source %q, got %q", s.Source, result.Record.Source)
			}

			if test.ValidateFunc != nil {
				test.ValidateFunc(t, result.Record)
			}
		})
	}
}

// ErrorContractTest validates that provider failures follow the taxonomy
type ErrorContractTest struct {
	Name          string
	Provider      providers.WhoisProvider
	Domain        string
	ExpectedError providers.ErrorCategory
	ExpectedRetry bool
}

// Run executes an error contract test
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		result := ect.Provider.Lookup(context.Background(), domain.MustDomainName(ect.Domain))
		if result.Outcome != providers.OutcomeFailure {
			t.Fatalf("expected failure, got %s", result.Outcome)
		}

		category := providers.GetCategory(result.Err)
		if category != ect.ExpectedError {
			t.Errorf("expected error category %s, got %s", ect.ExpectedError, category)
		}

		if retryable := providers.IsRetryable(result.Err); retryable != ect.ExpectedRetry {
			t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, retryable)
		}
	})
}
