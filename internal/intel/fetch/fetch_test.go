package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Bounded Fetcher Test Suite
// =============================================================================
// Justification: every provider's failure classification starts here. The
// suite pins timeout cancellation, non-2xx mapping and body decoding.

type FetcherSuite struct {
	suite.Suite
}

func TestFetcherSuite(t *testing.T) {
	suite.Run(t, new(FetcherSuite))
}

func (s *FetcherSuite) TestNew() {
	s.Run("non-positive timeout returns error", func() {
		_, err := New(0)
		s.Error(err)
	})

	s.Run("valid timeout", func() {
		f, err := New(time.Second)
		s.Require().NoError(err)
		s.Equal(time.Second, f.Timeout())
	})
}

func (s *FetcherSuite) TestSuccess() {
	var gotHeader, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("apikey")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f, err := New(time.Second)
	s.Require().NoError(err)

	resp, err := f.Fetch(context.Background(), Request{URL: srv.URL, Header: http.Header{"Apikey": {"k"}}})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.Status)
	s.JSONEq(`{"ok":true}`, string(resp.Body))
	s.Equal("k", gotHeader)
	s.Equal(DefaultUserAgent, gotUA)
}

func (s *FetcherSuite) TestNon2xxIsNetworkFailureWithStatus() {
	for _, status := range []int{http.StatusNotFound, http.StatusTooManyRequests, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		f, _ := New(time.Second)
		_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
		srv.Close()

		var failure *Failure
		s.Require().ErrorAs(err, &failure)
		s.Equal(KindNetwork, failure.Kind)
		s.Equal(status, failure.Status)
		s.Equal(status, StatusOf(err))
		s.False(IsTimeout(err))
	}
}

func (s *FetcherSuite) TestTimeoutCancelsInFlightRequest() {
	cancelled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	f, _ := New(50 * time.Millisecond)
	start := time.Now()
	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})

	s.True(IsTimeout(err), "expected timeout, got %v", err)
	s.Less(time.Since(start), 2*time.Second)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		s.Fail("server never observed cancellation")
	}
}

func (s *FetcherSuite) TestTransportErrorIsNetworkFailure() {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f, _ := New(time.Second)
	_, err := f.Fetch(context.Background(), Request{URL: url})

	var failure *Failure
	s.Require().ErrorAs(err, &failure)
	s.Equal(KindNetwork, failure.Kind)
	s.Zero(failure.Status)
}

func (s *FetcherSuite) TestDecodesCompressedBodies() {
	s.Run("gzip", func() {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte("hello gzip"))
		_ = gz.Close()
		s.Equal("hello gzip", s.fetchEncoded("gzip", buf.Bytes()))
	})

	s.Run("brotli", func() {
		var buf bytes.Buffer
		br := brotli.NewWriter(&buf)
		_, _ = br.Write([]byte("hello brotli"))
		_ = br.Close()
		s.Equal("hello brotli", s.fetchEncoded("br", buf.Bytes()))
	})
}

func (s *FetcherSuite) fetchEncoded(encoding string, body []byte) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", encoding)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f, _ := New(time.Second)
	resp, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	s.Require().NoError(err)
	return string(resp.Body)
}

func (s *FetcherSuite) TestRateLimitWaitCountsTowardTimeout() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	// One token per minute: the second call cannot get a token in time.
	f, _ := New(50*time.Millisecond, WithRateLimit(1.0/60, 1))
	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	s.Require().NoError(err)

	_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
	s.True(IsTimeout(err), "expected timeout, got %v", err)
}

func (s *FetcherSuite) TestBodyLimit() {
	body := bytes.Repeat([]byte("a"), 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s.Run("default cap", func() {
		f, err := New(time.Second)
		s.Require().NoError(err)
		s.Equal(int64(MaxBodyBytes), f.MaxBody())
	})

	s.Run("body exactly at the cap is returned whole", func() {
		f, err := New(time.Second, WithMaxBody(1024))
		s.Require().NoError(err)
		resp, err := f.Fetch(context.Background(), Request{URL: srv.URL})
		s.Require().NoError(err)
		s.Len(resp.Body, 1024)
	})

	s.Run("body over the cap fails instead of truncating", func() {
		f, err := New(time.Second, WithMaxBody(1023))
		s.Require().NoError(err)
		resp, err := f.Fetch(context.Background(), Request{URL: srv.URL})
		s.Nil(resp)
		var failure *Failure
		s.Require().ErrorAs(err, &failure)
		s.Equal(KindTooLarge, failure.Kind)
		s.ErrorIs(err, ErrBodyTooLarge)
		s.False(IsTimeout(err))
	})
}

func (s *FetcherSuite) TestPublicOnly() {
	s.Run("refuses a loopback server without reaching it", func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		f, err := New(time.Second, WithPublicOnly())
		s.Require().NoError(err)

		_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
		var failure *Failure
		s.Require().ErrorAs(err, &failure)
		s.Equal(KindNetwork, failure.Kind)
		s.ErrorIs(err, ErrBlockedAddress)
		s.Zero(hits.Load())
	})

	s.Run("unguarded fetcher still reaches loopback", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		f, err := New(time.Second)
		s.Require().NoError(err)
		_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
		s.NoError(err)
	})

	s.Run("dial addresses", func() {
		cases := []struct {
			address string
			allowed bool
		}{
			{"93.184.216.34:443", true},
			{"[2606:2800:220:1:248:1893:25c8:1946]:443", true},
			{"127.0.0.1:80", false},
			{"[::1]:80", false},
			{"10.1.2.3:80", false},
			{"192.168.0.10:8080", false},
			{"172.16.5.4:80", false},
			{"169.254.169.254:80", false},
			{"100.64.0.1:80", false},
			{"0.0.0.0:80", false},
			{"[::ffff:127.0.0.1]:80", false},
			{"[fe80::1]:80", false},
			{"not-an-address", false},
		}
		for _, tc := range cases {
			err := rejectNonPublic("tcp", tc.address, nil)
			if tc.allowed {
				s.NoError(err, tc.address)
			} else {
				s.ErrorIs(err, ErrBlockedAddress, tc.address)
			}
		}
	})
}
