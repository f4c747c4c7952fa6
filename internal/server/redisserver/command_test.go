package redisserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// testClock is a manually advanced time source for expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHandler(t *testing.T) (*CommandHandler, *memory.Store, *testClock) {
	t.Helper()
	clock := newTestClock()
	store := memory.New(memory.WithClock(clock.Now))
	return NewCommandHandler(store, nil), store, clock
}

func do(h *CommandHandler, name string, args ...string) Result {
	return h.Handle(context.Background(), &Request{Name: name, Args: args})
}

func assertResult(t *testing.T, got Result, kind Kind, text string) {
	t.Helper()
	if got.Kind != kind {
		t.Fatalf("Kind = %v, want %v (err: %v)", got.Kind, kind, got.Err)
	}
	if kind != KindError && got.Text != text {
		t.Fatalf("Text = %q, want %q", got.Text, text)
	}
}

func assertError(t *testing.T, got Result, target error) {
	t.Helper()
	if got.Kind != KindError {
		t.Fatalf("Kind = %v, want error", got.Kind)
	}
	if !errors.Is(got.Err, target) {
		t.Fatalf("Err = %v, want %v", got.Err, target)
	}
}

// ============================================================
// PING / ECHO
// ============================================================

func TestCommandHandler_Ping(t *testing.T) {
	h, _, _ := newTestHandler(t)

	assertResult(t, do(h, "PING"), KindStatus, "PONG")
	assertResult(t, do(h, "PING", "hello"), KindStatus, "PONG")
	assertResult(t, do(h, "PING", "a", "b", "c"), KindStatus, "PONG")
}

func TestCommandHandler_PingEncodings(t *testing.T) {
	h, _, _ := newTestHandler(t)

	// The fixed inline message and the generic array path agree.
	inline, err := Decode([]byte("*1\r\n$4\r\nPING\r\n"))
	if err != nil {
		t.Fatalf("Decode(inline) error = %v", err)
	}
	array, _, err := decodeFrame([]byte("*2\r\n$4\r\nPING\r\n$1\r\nx\r\n"))
	if err != nil {
		t.Fatalf("decodeFrame(array) error = %v", err)
	}

	for _, req := range []*Request{inline, array} {
		got := string(Encode(h.Handle(context.Background(), req)))
		if got != "+PONG\r\n" {
			t.Errorf("reply = %q, want +PONG", got)
		}
	}
}

func TestCommandHandler_Echo(t *testing.T) {
	h, _, _ := newTestHandler(t)

	assertResult(t, do(h, "ECHO", "a", "b"), KindBulk, "a b")
	assertResult(t, do(h, "ECHO", "hello"), KindBulk, "hello")
	assertResult(t, do(h, "ECHO", ""), KindBulk, "")
	assertResult(t, do(h, "ECHO", " x ", "y"), KindBulk, " x  y")

	// No arguments: empty bulk, not nil.
	assertResult(t, do(h, "ECHO"), KindBulk, "")
	if got := string(Encode(do(h, "ECHO"))); got != "$0\r\n\r\n" {
		t.Errorf("reply = %q, want empty bulk", got)
	}
}

// ============================================================
// GET
// ============================================================

func TestCommandHandler_Get(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	assertResult(t, do(h, "GET", "missing"), KindNil, "")

	store.Set(ctx, "k", "v")
	assertResult(t, do(h, "GET", "k"), KindBulk, "v")

	// Extra arguments are ignored.
	assertResult(t, do(h, "GET", "k", "ignored"), KindBulk, "v")
}

// ============================================================
// SET
// ============================================================

func TestCommandHandler_Set(t *testing.T) {
	h, _, clock := newTestHandler(t)

	assertResult(t, do(h, "SET", "k", "v"), KindStatus, "OK")
	assertResult(t, do(h, "GET", "k"), KindBulk, "v")

	assertResult(t, do(h, "SET", "k", "v2"), KindStatus, "OK")
	assertResult(t, do(h, "GET", "k"), KindBulk, "v2")

	clock.Advance(100 * 365 * 24 * time.Hour)
	assertResult(t, do(h, "GET", "k"), KindBulk, "v2")
}

func TestCommandHandler_SetExpiry(t *testing.T) {
	tests := []struct {
		name   string
		unit   string
		amount string
		ttl    time.Duration
	}{
		{"EX seconds", "EX", "10", 10 * time.Second},
		{"ex is case-insensitive", "ex", "10", 10 * time.Second},
		{"Ex mixed case", "Ex", "2", 2 * time.Second},
		{"PX milliseconds", "PX", "1500", 1500 * time.Millisecond},
		{"any other word is milliseconds", "whatever", "250", 250 * time.Millisecond},
		{"explicit plus sign", "PX", "+40", 40 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, clock := newTestHandler(t)

			assertResult(t, do(h, "SET", "k", "v", tt.unit, tt.amount), KindStatus, "OK")

			clock.Advance(tt.ttl - time.Millisecond)
			assertResult(t, do(h, "GET", "k"), KindBulk, "v")

			clock.Advance(time.Millisecond)
			assertResult(t, do(h, "GET", "k"), KindNil, "")
		})
	}
}

func TestCommandHandler_SetZeroTTL(t *testing.T) {
	h, _, _ := newTestHandler(t)

	assertResult(t, do(h, "SET", "k", "v", "PX", "0"), KindStatus, "OK")
	assertResult(t, do(h, "GET", "k"), KindNil, "")
}

func TestCommandHandler_SetExtraArgsIgnored(t *testing.T) {
	h, _, clock := newTestHandler(t)

	assertResult(t, do(h, "SET", "k", "v", "EX", "1", "NX", "junk"), KindStatus, "OK")
	clock.Advance(time.Second)
	assertResult(t, do(h, "GET", "k"), KindNil, "")
}

func TestCommandHandler_SetInvalidTTLLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name   string
		unit   string
		amount string
	}{
		{"non-numeric", "EX", "abc"},
		{"negative", "PX", "-5"},
		{"float", "EX", "1.5"},
		{"empty", "PX", ""},
		{"overflows int64", "PX", "9223372036854775808"},
		{"seconds overflow milliseconds", "EX", strconv.FormatInt(9223372036854775807/1000+1, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, _ := newTestHandler(t)
			ctx := context.Background()

			// Absent key stays absent.
			assertError(t, do(h, "SET", "fresh", "v", tt.unit, tt.amount), domain.ErrInvalidTTL)
			if _, ok := store.Get(ctx, "fresh"); ok {
				t.Fatal("failed SET must not create the key")
			}

			// Existing key keeps its value.
			store.Set(ctx, "k", "old")
			assertError(t, do(h, "SET", "k", "new", tt.unit, tt.amount), domain.ErrInvalidTTL)
			if v, _ := store.Get(ctx, "k"); v != "old" {
				t.Fatalf("value = %q, want old", v)
			}
		})
	}
}

func TestCommandHandler_SetLargeEXClampsToNoExpiry(t *testing.T) {
	h, _, clock := newTestHandler(t)

	maxSecs := strconv.FormatInt(9223372036854775807/1000, 10)
	assertResult(t, do(h, "SET", "k", "v", "EX", maxSecs), KindStatus, "OK")

	clock.Advance(200 * 365 * 24 * time.Hour)
	assertResult(t, do(h, "GET", "k"), KindBulk, "v")
}

// ============================================================
// Rejections
// ============================================================

func TestCommandHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    *Request
		target error
	}{
		{"nil request", nil, domain.ErrWrongArgs},
		{"empty array", &Request{}, domain.ErrWrongArgs},
		{"GET without key", &Request{Name: "GET"}, domain.ErrWrongArgs},
		{"SET without args", &Request{Name: "SET"}, domain.ErrWrongArgs},
		{"SET without value", &Request{Name: "SET", Args: []string{"k"}}, domain.ErrWrongArgs},
		{"SET option without amount", &Request{Name: "SET", Args: []string{"k", "v", "EX"}}, domain.ErrWrongArgs},
		{"unknown command", &Request{Name: "DEL", Args: []string{"k"}}, domain.ErrUnknownCommand},
		{"lowercase get", &Request{Name: "get", Args: []string{"k"}}, domain.ErrUnknownCommand},
		{"lowercase ping", &Request{Name: "ping", Args: []string{"x"}}, domain.ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler(t)
			res := h.Handle(context.Background(), tt.req)

			assertError(t, res, tt.target)
			if got := string(Encode(res)); got != "-ERR\r\n" {
				t.Errorf("reply = %q, want -ERR", got)
			}
		})
	}
}

func TestCommandHandler_SetThreeArgsDoesNotMutate(t *testing.T) {
	h, store, _ := newTestHandler(t)
	ctx := context.Background()

	store.Set(ctx, "k", "old")
	assertError(t, do(h, "SET", "k", "new", "EX"), domain.ErrWrongArgs)
	if v, _ := store.Get(ctx, "k"); v != "old" {
		t.Fatalf("value = %q, want old", v)
	}
}

func TestCommandHandler_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	h := NewCommandHandler(memory.New(), reg)

	do(h, "SET", "k", "v")
	do(h, "GET", "k")
	do(h, "GET", "missing")
	do(h, "NOPE", "x")
	do(h, "SET", "k", "v", "EX", "abc")

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`respkv_commands_total{command="SET",result="status"} 1`,
		`respkv_commands_total{command="GET",result="bulk"} 1`,
		`respkv_commands_total{command="GET",result="nil"} 1`,
		`respkv_commands_total{command="unknown",result="error"} 1`,
		`respkv_commands_total{command="SET",result="error"} 1`,
		`respkv_errors_total{category="CMD"} 1`,
		`respkv_errors_total{category="VAL"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestCommandLabel(t *testing.T) {
	tests := []struct {
		req  *Request
		want string
	}{
		{nil, "unknown"},
		{&Request{Name: "GET"}, "GET"},
		{&Request{Name: "PING"}, "PING"},
		{&Request{Name: "get"}, "unknown"},
		{&Request{Name: "FLUSHALL"}, "unknown"},
	}

	for _, tt := range tests {
		if got := commandLabel(tt.req); got != tt.want {
			t.Errorf("commandLabel(%+v) = %q, want %q", tt.req, got, tt.want)
		}
	}
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		unit    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"EX", "10", 10000, false},
		{"eX", "0", 0, false},
		{"PX", "10", 10, false},
		{"", "7", 7, false},
		{"EX", "x", 0, true},
		{"PX", "-1", 0, true},
	}

	for _, tt := range tests {
		got, err := parseTTL(tt.unit, tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTTL(%q, %q) error = %v, wantErr %v", tt.unit, tt.raw, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("parseTTL(%q, %q) = %d, want %d", tt.unit, tt.raw, got, tt.want)
		}
		if err != nil && !errors.Is(err, domain.ErrInvalidTTL) {
			t.Errorf("parseTTL(%q, %q) error = %v, want ErrInvalidTTL", tt.unit, tt.raw, err)
		}
	}
}
