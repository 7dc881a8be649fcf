package pprofserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-dispatch/internal/testutil/testlog"
)

func get(h http.Handler, remote, user, pass string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://example/debug/pprof/", nil)
	req.RemoteAddr = remote
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_LoopbackWithoutAuth(t *testing.T) {
	h := Handler(Config{Port: 6060}, nil)

	rr := get(h, "127.0.0.1:12345", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "goroutine")
}

func TestHandler_RemoteNeedsCredentials(t *testing.T) {
	rec := testlog.New()
	cfg := Config{Port: 6060, User: "ops", Pass: "secret"}
	h := Handler(cfg, rec.Logger())

	tests := []struct {
		name       string
		user, pass string
		want       int
	}{
		{name: "no credentials", want: http.StatusUnauthorized},
		{name: "wrong password", user: "ops", pass: "WRONG", want: http.StatusUnauthorized},
		{name: "valid", user: "ops", pass: "secret", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(h, "8.8.8.8:54444", tt.user, tt.pass)
			require.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
	assert.Len(t, rec.WithEvent("debug_unauthorized"), 2)
}

func TestHandler_RemoteDeniedWithoutConfiguredCredentials(t *testing.T) {
	h := Handler(Config{Port: 6060}, nil)

	rr := get(h, "10.0.0.5:1000", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNew_DisabledReturnsNil(t *testing.T) {
	assert.Nil(t, New(Config{}, nil))

	srv := New(Config{Port: 6060}, nil)
	require.NotNil(t, srv)
	assert.Equal(t, ":6060", srv.Addr)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("[::1]:80"))
	assert.True(t, isLoopback("127.0.0.1"))
	assert.False(t, isLoopback("192.168.1.1:80"))
	assert.False(t, isLoopback("not-an-ip"))
}
