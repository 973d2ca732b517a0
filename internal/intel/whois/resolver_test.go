package whois

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"forensics/internal/intel/cache"
	"forensics/internal/intel/fetch"
	"forensics/internal/intel/models"
	"forensics/internal/intel/providers"
	"forensics/internal/intel/providers/apilayer"
	"forensics/internal/intel/providers/heuristic"
	"forensics/internal/intel/providers/mocks"
	"forensics/internal/intel/providers/rdap"
	"forensics/pkg/domain"
)

// =============================================================================
// Chain Precedence Suite
// =============================================================================
// Justification: stage N+1 must never run once stage N has succeeded. gomock
// call counts make any extra invocation a test failure.

type ChainSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	primary  *mocks.MockWhoisProvider
	registry *mocks.MockWhoisProvider
	fallback *mocks.MockWhoisProvider
	backend  *cache.MemoryBackend
	store    *cache.Store
	resolver *Resolver
	ctx      context.Context
}

func TestChainSuite(t *testing.T) {
	suite.Run(t, new(ChainSuite))
}

func (s *ChainSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.primary = mocks.NewMockWhoisProvider(s.ctrl)
	s.registry = mocks.NewMockWhoisProvider(s.ctrl)
	s.fallback = mocks.NewMockWhoisProvider(s.ctrl)
	s.primary.EXPECT().ID().Return("primary").AnyTimes()
	s.registry.EXPECT().ID().Return("registry").AnyTimes()
	s.fallback.EXPECT().ID().Return("fallback").AnyTimes()

	s.backend = cache.NewMemoryBackend()
	var err error
	s.store, err = cache.New(s.backend, time.Hour)
	s.Require().NoError(err)
	s.resolver, err = New(s.store, s.primary, s.registry, s.fallback)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func record(source string) models.WhoisRecord {
	return models.NewWhoisRecord("example.com", source)
}

func (s *ChainSuite) TestNew() {
	s.Run("missing collaborators are rejected", func() {
		_, err := New(nil, s.primary, s.registry, s.fallback)
		s.ErrorContains(err, "cache store is required")
		_, err = New(s.store, nil, s.registry, s.fallback)
		s.ErrorContains(err, "primary provider is required")
		_, err = New(s.store, s.primary, nil, s.fallback)
		s.ErrorContains(err, "registry provider is required")
		_, err = New(s.store, s.primary, s.registry, nil)
		s.ErrorContains(err, "fallback provider is required")
	})
}

func (s *ChainSuite) TestPrimarySuccessStopsChain() {
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("primary"))).Times(1)
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)
	s.fallback.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal(StateResolved, res.State)
	s.Equal("primary", res.Record.Source)
	s.Equal("primary", res.ResolvedBy())
	s.Len(res.Attempts, 1)
}

func (s *ChainSuite) TestRegistrySuccessSkipsFallback() {
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Failure(
		providers.NewProviderError(providers.ErrorTimeout, "primary", "timed out", nil)))
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("registry")))
	s.fallback.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal("registry", res.ResolvedBy())
	s.Equal([]State{StateTryPrimary, StateTryRegistry}, []State{res.Attempts[0].State, res.Attempts[1].State})
	s.Equal(providers.OutcomeFailure, res.Attempts[0].Outcome)
}

func (s *ChainSuite) TestEmptyAdvances() {
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("nothing"))
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("unmapped"))
	s.fallback.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("fallback")))

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal("fallback", res.ResolvedBy())
	s.Len(res.Attempts, 3)
}

func (s *ChainSuite) TestPanickingStageIsIsolated() {
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, domain.DomainName) providers.Result {
		panic("index out of range")
	})
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("registry")))

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal(StateResolved, res.State)
	s.Equal(providers.OutcomeFailure, res.Attempts[0].Outcome)
	s.Contains(res.Attempts[0].Reason, "panicked")
}

func (s *ChainSuite) TestIncompleteRecordIsFailure() {
	partial := record("primary")
	partial.Registrar = ""
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(partial))
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("registry")))

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal("registry", res.Record.Source)
}

func (s *ChainSuite) TestEveryStageDecliningStillResolves() {
	s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("a"))
	s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("b"))
	s.fallback.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("c"))

	res := s.resolver.Resolve(s.ctx, "example.com")
	s.Equal(StateResolved, res.State)
	s.Equal(heuristic.ProviderID, res.ResolvedBy())
	s.True(res.Record.Complete())
	s.NotNil(res.Record.Structure)
}

func (s *ChainSuite) TestCaching() {
	s.Run("resolved record is cached and served without providers", func() {
		s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Success(record("primary"))).Times(1)

		first := s.resolver.Resolve(s.ctx, "Example.COM ")
		s.Equal(StateResolved, first.State)

		second := s.resolver.Resolve(s.ctx, "example.com")
		s.Equal(StateCached, second.State)
		s.Equal("cache", second.ResolvedBy())
		s.Equal(first.Record, second.Record)
	})

	s.Run("structural record survives the cache round trip", func() {
		s.primary.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("a"))
		s.registry.EXPECT().Lookup(gomock.Any(), gomock.Any()).Return(providers.Empty("b"))
		s.fallback.EXPECT().Lookup(gomock.Any(), gomock.Any()).DoAndReturn(heuristic.New().Lookup)

		first := s.resolver.Resolve(s.ctx, "foo.xyzzy")
		second := s.resolver.Resolve(s.ctx, "foo.xyzzy")
		s.Equal(StateCached, second.State)
		s.Require().NotNil(second.Record.Structure)
		s.Equal(first.Record.Structure, second.Record.Structure)
	})
}

func (s *ChainSuite) TestValidationFailure() {
	tests := []struct {
		name   string
		input  string
		echo   string
		reason string
	}{
		{"empty", "", "Invalid", "domain is required"},
		{"too long", strings.Repeat("a", 250) + ".com", strings.Repeat("a", 250) + ".com", "domain name too long"},
		{"forbidden characters", "exa mple.com", "exa mple.com", "invalid domain format"},
		{"markup is echoed escaped", "<b>.com", "&lt;b&gt;.com", "invalid domain format"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			res := s.resolver.Resolve(s.ctx, tt.input)
			s.Equal(StateValidationFailed, res.State)
			s.True(res.Record.IsValidationFailure())
			s.Equal(tt.echo, res.Record.DomainName)
			s.Equal(tt.reason, res.Record.Error)
			s.Equal("Validation Failed", res.Record.Status)
			s.Empty(res.Attempts)
		})
	}
	s.Zero(s.backend.Len(), "validation failures are not cached")
}

// =============================================================================
// End-to-end Scenarios
// =============================================================================

type countingServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newCountingServer(t *testing.T, h http.HandlerFunc) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

type chain struct {
	resolver *Resolver
	store    *cache.Store
	primary  *countingServer
	registry *countingServer
}

func newChain(t *testing.T, primary, registry http.HandlerFunc) *chain {
	t.Helper()
	c := &chain{
		primary:  newCountingServer(t, primary),
		registry: newCountingServer(t, registry),
	}
	f, err := fetch.New(200 * time.Millisecond)
	require.NoError(t, err)

	api, err := apilayer.New(f, c.primary.URL, "key")
	require.NoError(t, err)
	reg, err := rdap.New(f, rdap.WithEndpoints(map[string]string{"com": c.registry.URL + "/domain/"}))
	require.NoError(t, err)

	c.store, err = cache.New(cache.NewMemoryBackend(), time.Hour)
	require.NoError(t, err)
	c.resolver, err = New(c.store, api, reg, heuristic.New())
	require.NoError(t, err)
	return c
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func hang(w http.ResponseWriter, r *http.Request) {
	<-r.Context().Done()
}

func TestScenarioPrimarySuccess(t *testing.T) {
	c := newChain(t,
		writeJSON(`{"result":{"domain_name":"example.com","registrar_name":"Example Registrar","status":["active"],"name_servers":["ns1.example.com","ns2.example.com"]}}`),
		writeJSON(`{}`),
	)

	res := c.resolver.Resolve(context.Background(), "example.com")
	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, "Example Registrar", res.Record.Registrar)
	assert.Equal(t, "active", res.Record.Status)
	assert.Equal(t, "ns1.example.com, ns2.example.com", res.Record.NameServers)
	assert.Equal(t, apilayer.Source, res.Record.Source)
	assert.Equal(t, int32(0), c.registry.calls.Load())

	cached, ok := cache.Lookup[models.WhoisRecord](context.Background(), c.store, "whois:example.com")
	require.True(t, ok)
	assert.Equal(t, res.Record, cached)
}

func TestScenarioPrimaryTimeoutRegistrySuccess(t *testing.T) {
	c := newChain(t,
		hang,
		writeJSON(`{"ldhName":"example.com","status":["active"],"events":[{"eventAction":"registration","eventDate":"1995-08-14"}],"entities":[]}`),
	)

	res := c.resolver.Resolve(context.Background(), "example.com")
	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, "1995-08-14", res.Record.CreationDate)
	assert.Equal(t, models.Unknown, res.Record.Registrar)
	assert.Contains(t, res.Record.Source, "RDAP")
	assert.Equal(t, rdap.ProviderID, res.ResolvedBy())
	assert.Contains(t, res.Attempts[0].Reason, "[timeout]")
}

func TestScenarioUnmappedTLDFallsToHeuristic(t *testing.T) {
	c := newChain(t,
		func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		writeJSON(`{}`),
	)

	res := c.resolver.Resolve(context.Background(), "foo.xyzzy")
	require.Equal(t, StateResolved, res.State)
	require.NotNil(t, res.Record.Structure)
	assert.Equal(t, "XYZZY", res.Record.Structure.TopLevelDomain)
	assert.Equal(t, "Unknown TLD", res.Record.Structure.TLDType)
	assert.Contains(t, res.Record.Structure.Note, "unavailable")
	assert.Equal(t, int32(0), c.registry.calls.Load(), "no registry endpoint for .xyzzy")
	assert.Equal(t, providers.OutcomeEmpty, res.Attempts[1].Outcome)
}

func TestInvalidInputMakesNoNetworkCall(t *testing.T) {
	c := newChain(t, writeJSON(`{}`), writeJSON(`{}`))

	for _, input := range []string{"", strings.Repeat("x", 254), "bad_domain!.com", "-lead.com"} {
		res := c.resolver.Resolve(context.Background(), input)
		assert.Equal(t, StateValidationFailed, res.State, input)
	}
	assert.Equal(t, int32(0), c.primary.calls.Load())
	assert.Equal(t, int32(0), c.registry.calls.Load())
}
