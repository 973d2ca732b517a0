package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"forensics/pkg/requestcontext"
)

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA, gotID string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
		gotID = requestcontext.RequestID(r.Context())
	}))

	t.Run("uses forwarded headers and given request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("User-Agent", "curl/8.0")
		req.Header.Set(RequestIDHeader, "req-1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "203.0.113.7", gotIP)
		assert.Equal(t, "curl/8.0", gotUA)
		assert.Equal(t, "req-1", gotID)
		assert.Equal(t, "req-1", rr.Header().Get(RequestIDHeader))
	})

	t.Run("generates request id and strips port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "192.0.2.1", gotIP)
		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rr.Header().Get(RequestIDHeader))
	})
}
