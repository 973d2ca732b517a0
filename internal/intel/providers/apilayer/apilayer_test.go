package apilayer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"forensics/internal/intel/fetch"
	fetchmocks "forensics/internal/intel/fetch/mocks"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/intel/providers/contract"
	"forensics/pkg/domain"
	"forensics/pkg/platform/circuit"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newProvider(t *testing.T, baseURL string, opts ...Option) *Provider {
	t.Helper()
	f, err := fetch.New(time.Second)
	require.NoError(t, err)
	p, err := New(f, baseURL, "test-key", opts...)
	require.NoError(t, err)
	return p
}

func TestContract(t *testing.T) {
	full, _ := newServer(t, http.StatusOK, `{"result":{
		"domain_name":"example.com","registrar_name":"Example Registrar",
		"creation_date":"1995-08-14","expiration_date":"2030-08-13","updated_date":"2024-08-14",
		"status":["clientDeleteProhibited","clientTransferProhibited"],
		"name_servers":["ns1.example.com","ns2.example.com"],
		"registrant_name":"Jane <Doe>","registrant_organization":"Example & Co",
		"registrant_country":"US","registrant_email":"jane@example.com",
		"admin_name":"Admin","admin_email":"admin@example.com","tech_name":"Tech","tech_email":"tech@example.com"}}`)
	sparse, _ := newServer(t, http.StatusOK, `{"result":{"domain_name":"example.com","registrar_name":"Example Registrar","status":["active"],"name_servers":["ns1.example.com","ns2.example.com"]}}`)

	cs := contract.ContractSuite{
		ProviderID: ProviderID,
		Source:     Source,
		Tests: []contract.ContractTest{
			{
				Name:     "full result is mapped and sanitized",
				Provider: newProvider(t, full.URL),
				Domain:   "example.com",
				ValidateFunc: func(t *testing.T, r models.WhoisRecord) {
					assert.Equal(t, "1995-08-14", r.CreationDate)
					assert.Equal(t, "2030-08-13", r.ExpiryDate)
					assert.Equal(t, "clientDeleteProhibited, clientTransferProhibited", r.Status)
					assert.Equal(t, "Jane &lt;Doe&gt;", r.RegistrantName)
					assert.Equal(t, "Example &amp; Co", r.RegistrantOrganization)
					assert.Equal(t, "tech@example.com", r.TechEmail)
				},
			},
			{
				Name:     "sparse result fills placeholders",
				Provider: newProvider(t, sparse.URL),
				Domain:   "example.com",
				ValidateFunc: func(t *testing.T, r models.WhoisRecord) {
					assert.Equal(t, "Example Registrar", r.Registrar)
					assert.Equal(t, "active", r.Status)
					assert.Equal(t, "ns1.example.com, ns2.example.com", r.NameServers)
					assert.Equal(t, models.Unknown, r.CreationDate)
					assert.Equal(t, models.Unknown, r.UpdatedDate)
					assert.Equal(t, models.Private, r.RegistrantName)
					assert.Equal(t, models.Private, r.AdminEmail)
				},
			},
		},
	}
	cs.Run(t)
}

func TestErrorContract(t *testing.T) {
	apiErr, _ := newServer(t, http.StatusOK, `{"error":"Domain not supported"}`)
	noResult, _ := newServer(t, http.StatusOK, `{"message":"ok"}`)
	garbage, _ := newServer(t, http.StatusOK, `<html>`)
	serverErr, _ := newServer(t, http.StatusInternalServerError, ``)
	throttled, _ := newServer(t, http.StatusTooManyRequests, ``)

	tests := []contract.ErrorContractTest{
		{Name: "api reported error", Provider: newProvider(t, apiErr.URL), Domain: "example.com", ExpectedError: providers.ErrorNotFound},
		{Name: "missing result", Provider: newProvider(t, noResult.URL), Domain: "example.com", ExpectedError: providers.ErrorBadData},
		{Name: "non-JSON body", Provider: newProvider(t, garbage.URL), Domain: "example.com", ExpectedError: providers.ErrorBadData},
		{Name: "5xx", Provider: newProvider(t, serverErr.URL), Domain: "example.com", ExpectedError: providers.ErrorHTTPStatus},
		{Name: "429", Provider: newProvider(t, throttled.URL), Domain: "example.com", ExpectedError: providers.ErrorRateLimited, ExpectedRetry: true},
	}
	for _, tc := range tests {
		tc.Run(t)
	}
}

// =============================================================================
// Request Shape and Guard Tests
// =============================================================================

type ProviderSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	fetcher *fetchmocks.MockFetcher
	d       domain.DomainName
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderSuite))
}

func (s *ProviderSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = fetchmocks.NewMockFetcher(s.ctrl)
	s.d = domain.MustDomainName("example.com")
}

func (s *ProviderSuite) TestNew() {
	s.Run("nil fetcher returns error", func() {
		_, err := New(nil, DefaultBaseURLForTest, "k")
		s.ErrorContains(err, "fetcher is required")
	})

	s.Run("relative base URL returns error", func() {
		_, err := New(s.fetcher, "/whois", "k")
		s.Error(err)
	})
}

func (s *ProviderSuite) TestRequestShape() {
	p, err := New(s.fetcher, DefaultBaseURLForTest, "secret")
	s.Require().NoError(err)

	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req fetch.Request) (*fetch.Response, error) {
		s.Equal(DefaultBaseURLForTest+"?domain=example.com", req.URL)
		s.Equal("secret", req.Header.Get("apikey"))
		s.Equal([]string{"secret"}, req.Header["Apikey"], "header key is stored canonically")
		s.Equal("application/json", req.Header.Get("Accept"))
		return &fetch.Response{Status: 200, Body: []byte(`{"result":{"registrar_name":"R"}}`)}, nil
	})

	result := p.Lookup(context.Background(), s.d)
	s.True(result.OK())
	s.Equal("example.com", result.Record.DomainName, "domain name falls back to the query")
}

func (s *ProviderSuite) TestMissingKeySkipsNetwork() {
	p, err := New(s.fetcher, DefaultBaseURLForTest, "")
	s.Require().NoError(err)

	result := p.Lookup(context.Background(), s.d)
	s.Equal(providers.OutcomeFailure, result.Outcome)
	s.Equal(providers.ErrorAuthentication, providers.GetCategory(result.Err))
}

func (s *ProviderSuite) TestTimeoutIsFailure() {
	p, err := New(s.fetcher, DefaultBaseURLForTest, "k")
	s.Require().NoError(err)
	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, &fetch.Failure{Kind: fetch.KindTimeout})

	result := p.Lookup(context.Background(), s.d)
	s.Equal(providers.ErrorTimeout, providers.GetCategory(result.Err))
}

func (s *ProviderSuite) TestOpenBreakerSkipsNetwork() {
	breaker := circuit.New(ProviderID, circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	p, err := New(s.fetcher, DefaultBaseURLForTest, "k", WithBreaker(breaker))
	s.Require().NoError(err)

	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, &fetch.Failure{Kind: fetch.KindNetwork}).Times(2)

	p.Lookup(context.Background(), s.d)
	p.Lookup(context.Background(), s.d)
	s.True(breaker.IsOpen())

	// Inside the first cooldown nothing reaches the network.
	for range 2 {
		result := p.Lookup(context.Background(), s.d)
		s.Equal(providers.ErrorProviderOutage, providers.GetCategory(result.Err))
		s.ErrorIs(result.Err, errCircuitOpen)
	}
}

func (s *ProviderSuite) TestInBandErrorDoesNotTripBreaker() {
	breaker := circuit.New(ProviderID, circuit.WithFailureThreshold(1))
	p, err := New(s.fetcher, DefaultBaseURLForTest, "k", WithBreaker(breaker))
	s.Require().NoError(err)
	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(&fetch.Response{Status: 200, Body: []byte(`{"error":"quota"}`)}, nil)

	p.Lookup(context.Background(), s.d)
	s.False(breaker.IsOpen())
}

const DefaultBaseURLForTest = "https://api.apilayer.test/whois/query"

func TestMapResultNonArrayNameServers(t *testing.T) {
	r := mapResult(domain.MustDomainName("a.com"), map[string]any{
		"name_servers":  "ns1.a.com",
		"status":        "ok",
		"creation_date": 12345,
	})
	assert.Equal(t, models.Unknown, r.NameServers)
	assert.Equal(t, "ok", r.Status)
	assert.Equal(t, models.Unknown, r.CreationDate)
}

func TestMapResultEmptyStatusList(t *testing.T) {
	r := mapResult(domain.MustDomainName("a.com"), map[string]any{"status": []any{}})
	assert.Equal(t, models.Unknown, r.Status)
}
