package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		retryAfter     time.Duration
		wantRetryAfter string
	}{
		{name: "plain"},
		{name: "retryable", retryAfter: 1500 * time.Millisecond, wantRetryAfter: "2"},
		{name: "retryable floor", retryAfter: time.Millisecond, wantRetryAfter: "1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) {
				c.Set("request_id", "rid-1")
				if tc.wantRetryAfter != "" {
					RespondRetryable(c, http.StatusServiceUnavailable, "busy", "try later", tc.retryAfter)
					return
				}
				RespondError(c, http.StatusBadRequest, "bad", "nope")
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.RequestID != "rid-1" || body.Code == "" {
				t.Errorf("body = %+v", body)
			}
			if got := w.Header().Get("Retry-After"); got != tc.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tc.wantRetryAfter)
			}
		})
	}
}
