package dns

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"forensics/internal/intel/cache"
	"forensics/internal/intel/fetch"
	"forensics/internal/intel/models"
	"forensics/pkg/domain"
)

const aBody = `{"Status":0,"Answer":[
	{"name":"example.com.","type":5,"TTL":300,"data":"alias.example.com."},
	{"name":"example.com.","type":1,"TTL":300,"data":"93.184.216.34"},
	{"name":"example.com.","type":1,"TTL":300,"data":"93.184.216.35"},
	{"name":"example.com.","type":1,"TTL":300,"data":"93.184.216.34"}
]}`

const ptrBody = `{"Status":0,"Answer":[{"name":"34.216.184.93.in-addr.arpa.","type":12,"TTL":300,"data":"edge.example.net."}]}`

// =============================================================================
// Resolver Test Suite
// =============================================================================

type ResolverSuite struct {
	suite.Suite
	srv     *httptest.Server
	calls   atomic.Int32
	status  atomic.Int32
	lastURL atomic.Value
	backend *cache.MemoryBackend
	fwd     *Resolver
	rev     *ReverseResolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.calls.Store(0)
	s.status.Store(http.StatusOK)
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.lastURL.Store(r.URL.String())
		w.WriteHeader(int(s.status.Load()))
		if r.URL.Query().Get("type") == "12" {
			_, _ = w.Write([]byte(ptrBody))
			return
		}
		_, _ = w.Write([]byte(aBody))
	}))
	s.T().Cleanup(s.srv.Close)

	f, err := fetch.New(time.Second)
	s.Require().NoError(err)
	s.backend = cache.NewMemoryBackend()
	store, err := cache.New(s.backend, time.Hour)
	s.Require().NoError(err)

	s.fwd, err = New(f, store, WithEndpoint(s.srv.URL+"/resolve"))
	s.Require().NoError(err)
	s.rev, err = NewReverse(f, store, WithEndpoint(s.srv.URL+"/resolve"))
	s.Require().NoError(err)
}

func (s *ResolverSuite) TestNew() {
	s.Run("nil fetcher", func() {
		_, err := New(nil, nil)
		s.ErrorContains(err, "fetcher is required")
	})
	s.Run("nil cache", func() {
		f, _ := fetch.New(time.Second)
		_, err := NewReverse(f, nil)
		s.ErrorContains(err, "cache store is required")
	})
}

func (s *ResolverSuite) TestForwardLookup() {
	resp, ok := s.fwd.Lookup(context.Background(), domain.MustDomainName("example.com"))
	s.Require().True(ok)
	s.Equal("/resolve?name=example.com&type=1", s.lastURL.Load())
	s.Equal([]string{"93.184.216.34", "93.184.216.35"}, Addresses(resp))

	s.Run("second lookup is served from cache", func() {
		again, ok := s.fwd.Lookup(context.Background(), domain.MustDomainName("example.com"))
		s.True(ok)
		s.Equal(resp, again)
		s.Equal(int32(1), s.calls.Load())
	})

	s.Run("raw body is cached under dns key", func() {
		entry, err := s.backend.Read(context.Background(), "dns:example.com")
		s.Require().NoError(err)
		s.Contains(string(entry.Data), `"alias.example.com."`, "non-A answers are kept verbatim")
	})
}

func (s *ResolverSuite) TestReverseLookup() {
	resp, ok := s.rev.Lookup(context.Background(), "93.184.216.34")
	s.Require().True(ok)
	s.Equal("/resolve?name=34.216.184.93.in-addr.arpa&type=12", s.lastURL.Load())
	s.Equal([]string{"edge.example.net."}, resp.DataOfType(models.DNSTypePTR))

	_, err := s.backend.Read(context.Background(), "rdns:93.184.216.34")
	s.NoError(err)
}

func (s *ResolverSuite) TestFailuresReturnNoData() {
	s.Run("non-2xx", func() {
		s.status.Store(http.StatusServiceUnavailable)
		_, ok := s.fwd.Lookup(context.Background(), domain.MustDomainName("down.example"))
		s.False(ok)
		s.Zero(s.backend.Len(), "failures are not cached")
	})

	s.Run("invalid address makes no request", func() {
		before := s.calls.Load()
		_, ok := s.rev.Lookup(context.Background(), "not-an-ip")
		s.False(ok)
		s.Equal(before, s.calls.Load())
	})
}

func TestUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(srv.Close)

	f, _ := fetch.New(time.Second)
	store, _ := cache.New(cache.NewMemoryBackend(), time.Hour)
	r, err := New(f, store, WithEndpoint(srv.URL))
	assert.NoError(t, err)

	_, ok := r.Lookup(context.Background(), domain.MustDomainName("example.com"))
	assert.False(t, ok)
}

func TestReverseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"93.184.216.34", "34.216.184.93.in-addr.arpa"},
		{"10.0.0.1", "1.0.0.10.in-addr.arpa"},
		{"2001:db8::1", "1.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.0.8.b.d.0.1.0.0.2.ip6.arpa"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ReverseName(tt.in)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ReverseName("300.1.1.1")
	assert.Error(t, err)
}

func TestAddressesOfNilResponse(t *testing.T) {
	assert.Empty(t, Addresses(nil))
}
