package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/models"
)

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x00000000000000000000000000000000000000bb"
	addrC = "0x00000000000000000000000000000000000000cc"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// newTestServer serves handler and counts the requests it receives.
func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int32)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, calls.Add(1))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(baseURL),
		WithAPIKey("test-key"),
		WithThrottle(NewThrottle(1000, time.Millisecond)),
		WithRetry(3, time.Millisecond),
		WithLogger(testLogger()),
	}
	return New(append(base, opts...)...)
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func okRows(rows ...txRow) map[string]any {
	return map[string]any{"status": "1", "message": "OK", "result": rows}
}

func notOK(message, result string) map[string]any {
	return map[string]any{"status": "0", "message": message, "result": result}
}

func row(from, to, hash string, block int) txRow {
	return txRow{BlockNumber: fmt.Sprint(block), TimeStamp: "1700000000", Hash: hash, From: from, To: to, Value: "1"}
}

func TestFetchTransactions_SinglePage(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		q := r.URL.Query()
		if q.Get("module") != "account" || q.Get("action") != "txlist" {
			t.Errorf("unexpected module/action: %v", q)
		}
		if q.Get("address") != addrA {
			t.Errorf("address = %q, want normalized %q", q.Get("address"), addrA)
		}
		if q.Get("apikey") != "test-key" {
			t.Errorf("apikey = %q", q.Get("apikey"))
		}
		jsonResponse(w, 200, okRows(
			row("0x"+strings.ToUpper(addrA[2:]), addrB, "0x1", 10),
			txRow{BlockNumber: "11", Hash: "0x2", From: addrA, To: "", ContractAddress: addrC},
		))
	})
	c := newTestClient(srv.URL)

	edges, err := c.FetchTransactions(context.Background(), models.Address(strings.ToUpper(addrA)), models.PageOptions{})
	if err != nil {
		t.Fatalf("FetchTransactions() error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	if edges[0].TxHash != "0x1" || edges[0].To != addrB || edges[0].BlockNumber != 10 {
		t.Errorf("edge 0 = %+v", edges[0])
	}
	if edges[0].Timestamp.IsZero() {
		t.Error("edge 0 timestamp not parsed")
	}
	if edges[1].To != addrC {
		t.Errorf("contract creation edge To = %q, want %q", edges[1].To, addrC)
	}
}

func TestFetchTransactions_NoTransactions(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		jsonResponse(w, 200, map[string]any{"status": "0", "message": "No transactions found", "result": []any{}})
	})
	c := newTestClient(srv.URL)

	edges, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("got %d edges, want 0", len(edges))
	}
}

func TestFetchTransactions_Pagination(t *testing.T) {
	pages := map[string][]txRow{
		"1": {row(addrA, addrB, "0x1", 1), row(addrA, addrB, "0x2", 2)},
		"2": {row(addrA, addrB, "0x3", 3), row(addrA, addrB, "0x4", 4)},
		"3": {row(addrA, addrB, "0x5", 5)},
	}

	tests := []struct {
		name       string
		maxResults int
		wantEdges  int
		wantCalls  int32
	}{
		{name: "follows until short page", maxResults: 0, wantEdges: 5, wantCalls: 3},
		{name: "stops at result cap", maxResults: 3, wantEdges: 3, wantCalls: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
				if r.URL.Query().Get("offset") != "2" {
					t.Errorf("offset = %q, want 2", r.URL.Query().Get("offset"))
				}
				jsonResponse(w, 200, okRows(pages[r.URL.Query().Get("page")]...))
			})
			c := newTestClient(srv.URL)

			edges, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{PageSize: 2, MaxResults: tc.maxResults})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(edges) != tc.wantEdges {
				t.Errorf("got %d edges, want %d", len(edges), tc.wantEdges)
			}
			if calls.Load() != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tc.wantCalls)
			}
			for i, e := range edges {
				if want := fmt.Sprintf("0x%d", i+1); e.TxHash != want {
					t.Errorf("edge %d hash = %q, want %q (order must be preserved)", i, e.TxHash, want)
				}
			}
		})
	}
}

func TestFetchTransactions_BlockCursorPastWindow(t *testing.T) {
	const pageSize = 5000
	full := func(block int) []txRow {
		rows := make([]txRow, pageSize)
		for i := range rows {
			rows[i] = row(addrA, addrB, "0x", block)
		}
		return rows
	}

	var thirdStart string
	srv, calls := newTestServer(t, func(w http.ResponseWriter, r *http.Request, call int32) {
		switch call {
		case 1:
			jsonResponse(w, 200, okRows(full(50)...))
		case 2:
			jsonResponse(w, 200, okRows(full(100)...))
		default:
			thirdStart = r.URL.Query().Get("startblock")
			jsonResponse(w, 200, okRows(row(addrA, addrB, "0xlast", 101)))
		}
	})
	c := newTestClient(srv.URL)

	edges, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{PageSize: pageSize, MaxResults: 20000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if thirdStart != "100" {
		t.Errorf("continuation startblock = %q, want 100", thirdStart)
	}
	if len(edges) != 2*pageSize+1 {
		t.Errorf("got %d edges, want %d", len(edges), 2*pageSize+1)
	}
}

func TestFetchTransactions_RateLimitRetriesAndThrottles(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call == 1 {
			jsonResponse(w, 200, notOK("NOTOK", "Max rate limit reached"))
			return
		}
		jsonResponse(w, 200, okRows(row(addrA, addrB, "0x1", 1)))
	})
	throttle := NewThrottle(1000, 100*time.Millisecond)
	c := newTestClient(srv.URL, WithThrottle(throttle))

	edges, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 1 {
		t.Errorf("got %d edges, want 1", len(edges))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if throttle.Penalties() != 1 {
		t.Errorf("penalties = %d, want 1", throttle.Penalties())
	}
	if throttle.Rate() > 10.0001 {
		t.Errorf("rate after penalty = %v, want <= 10/s", throttle.Rate())
	}
}

func TestFetchTransactions_HTTP429UsesRetryAfter(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		jsonResponse(w, 200, okRows())
	})
	throttle := NewThrottle(1000, time.Millisecond)
	c := newTestClient(srv.URL, WithThrottle(throttle))

	if _, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if throttle.Penalties() != 1 {
		t.Errorf("penalties = %d, want 1", throttle.Penalties())
	}
}

func TestFetchTransactions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantCalls int32
	}{
		{name: "server error exhausts retries", status: 502, body: "bad gateway", wantErr: models.ErrRemoteUnavailable, wantCalls: 3},
		{name: "invalid api key is fatal", status: 200, body: `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`, wantErr: models.ErrUnauthorized, wantCalls: 1},
		{name: "http unauthorized is fatal", status: 401, body: "nope", wantErr: models.ErrUnauthorized, wantCalls: 1},
		{name: "invalid address is input error", status: 200, body: `{"status":"0","message":"NOTOK","result":"Error! Invalid address format"}`, wantErr: models.ErrInvalidAddress, wantCalls: 1},
		{name: "malformed json", status: 200, body: `<html>`, wantErr: models.ErrMalformedResponse, wantCalls: 1},
		{name: "malformed rows", status: 200, body: `{"status":"1","message":"OK","result":"oops"}`, wantErr: models.ErrMalformedResponse, wantCalls: 1},
		{name: "unknown status", status: 200, body: `{"status":"7","message":"?","result":[]}`, wantErr: models.ErrMalformedResponse, wantCalls: 1},
		{name: "unknown rejection is fatal", status: 200, body: `{"status":"0","message":"NOTOK","result":"something odd"}`, wantErr: models.ErrRemoteFatal, wantCalls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body)) //nolint:errcheck
			})
			c := newTestClient(srv.URL)

			_, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if calls.Load() != tc.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tc.wantCalls)
			}
		})
	}
}

func TestFetchTransactions_InvalidAddressSkipsRemote(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		jsonResponse(w, 200, okRows())
	})
	c := newTestClient(srv.URL)

	_, err := c.FetchTransactions(context.Background(), "0xnot-an-address", models.PageOptions{})
	if !errors.Is(err, models.ErrInvalidAddress) {
		t.Fatalf("error = %v, want ErrInvalidAddress", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestFetchTransactions_Cache(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		jsonResponse(w, 200, okRows(row(addrA, addrB, "0x1", 1)))
	})
	c := newTestClient(srv.URL, WithCache(NewCache(16, time.Minute)))

	for range 3 {
		edges, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 1 {
			t.Fatalf("got %d edges, want 1", len(edges))
		}
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (later lookups cached)", calls.Load())
	}
	if c.CacheLen() != 1 {
		t.Errorf("cache len = %d, want 1", c.CacheLen())
	}
}

func TestFetchTransactions_ErrorsAreNotCached(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, call int32) {
		if call == 1 {
			jsonResponse(w, 200, notOK("NOTOK", "Invalid API Key"))
			return
		}
		jsonResponse(w, 200, okRows())
	})
	c := newTestClient(srv.URL, WithCache(NewCache(16, time.Minute)))

	if _, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{}); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{}); err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchTransactions_NetworkErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(url, WithAPIKey("super-secret"), WithRetry(1, time.Millisecond))

	_, err := c.FetchTransactions(context.Background(), addrA, models.PageOptions{})
	if !errors.Is(err, models.ErrRemoteUnavailable) {
		t.Fatalf("error = %v, want ErrRemoteUnavailable", err)
	}
	if strings.Contains(err.Error(), "super-secret") {
		t.Errorf("error leaks api key: %v", err)
	}
}

func TestFetchTransactions_ContextCanceled(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		jsonResponse(w, 200, okRows())
	})
	c := newTestClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchTransactions(ctx, addrA, models.PageOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
