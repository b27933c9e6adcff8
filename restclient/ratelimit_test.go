package restclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(`{"result":"x"}`)),
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{name: "too many requests", status: http.StatusTooManyRequests, rateLimited: true},
		{name: "service unavailable", status: http.StatusServiceUnavailable, rateLimited: true},
		{name: "ok passes through", status: http.StatusOK},
		{name: "not found passes through", status: http.StatusNotFound},
		{name: "server error passes through", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := response(tt.status)
			out, err := Classify("eloverblik", in, now)

			if !tt.rateLimited {
				require.NoError(t, err)
				assert.Same(t, in, out)
				return
			}

			assert.Nil(t, out)
			var rl *RateLimitedError
			require.True(t, errors.As(err, &rl))
			assert.Equal(t, now.Add(61*time.Second), rl.RetryAfter)
			assert.Equal(t, tt.status, rl.StatusCode)
		})
	}
}
