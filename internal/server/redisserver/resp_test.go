package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/yndnr/respkv/internal/core/domain"
)

// ============================================================
// Decode Tests
// ============================================================

func TestDecode_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Request
	}{
		{
			name:  "inline PING",
			input: "*1\r\n$4\r\nPING\r\n",
			want:  &Request{Name: "PING"},
		},
		{
			name:  "PING with message",
			input: "*2\r\n$4\r\nPING\r\n$2\r\nhi\r\n",
			want:  &Request{Name: "PING", Args: []string{"hi"}},
		},
		{
			name:  "GET command",
			input: "*2\r\n$3\r\nGET\r\n$6\r\nmykey1\r\n",
			want:  &Request{Name: "GET", Args: []string{"mykey1"}},
		},
		{
			name:  "SET with EX",
			input: "*5\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n$2\r\nEX\r\n$2\r\n10\r\n",
			want:  &Request{Name: "SET", Args: []string{"k", "v", "EX", "10"}},
		},
		{
			name:  "lowercase name is kept as sent",
			input: "*2\r\n$4\r\necho\r\n$1\r\nx\r\n",
			want:  &Request{Name: "echo", Args: []string{"x"}},
		},
		{
			name:  "binary payload with CRLF inside",
			input: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$4\r\na\r\nb\r\n",
			want:  &Request{Name: "SET", Args: []string{"k", "a\r\nb"}},
		},
		{
			name:  "empty bulk string",
			input: "*2\r\n$4\r\nECHO\r\n$0\r\n\r\n",
			want:  &Request{Name: "ECHO", Args: []string{""}},
		},
		{
			name:  "empty array",
			input: "*0\r\n",
			want:  &Request{},
		},
		{
			name:  "trailing bytes are ignored",
			input: "*1\r\n$4\r\nPING\r\ngarbage",
			want:  &Request{Name: "PING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Name != tt.want.Name {
				t.Errorf("Name = %q, want %q", got.Name, tt.want.Name)
			}
			if len(got.Args) != len(tt.want.Args) || (len(got.Args) > 0 && !reflect.DeepEqual(got.Args, tt.want.Args)) {
				t.Errorf("Args = %q, want %q", got.Args, tt.want.Args)
			}
		})
	}
}

func TestDecode_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"inline text command", "PING\r\n"},
		{"simple string", "+OK\r\n"},
		{"null array", "*-1\r\n"},
		{"non-digit count", "*x\r\n"},
		{"lone sigil", "*"},
		{"count without CRLF", "*2\r"},
		{"fewer elements than declared", "*2\r\n$3\r\nGET\r\n"},
		{"bulk shorter than declared", "*1\r\n$3\r\nGE\r\n"},
		{"bulk longer than declared", "*1\r\n$3\r\nGETX\r\n"},
		{"bulk without terminator", "*1\r\n$3\r\nGET"},
		{"element is not a bulk string", "*1\r\n+OK\r\n"},
		{"negative bulk length", "*1\r\n$-1\r\n"},
		{"non-digit bulk length", "*1\r\n$a\r\nx\r\n"},
		{"empty bulk length", "*1\r\n$\r\n\r\n"},
		{"oversized length digits", "*1\r\n$" + strings.Repeat("9", 40) + "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if err == nil {
				t.Fatal("Decode() should fail")
			}
			if !errors.Is(err, domain.ErrProtocol) {
				t.Errorf("error = %v, want ErrProtocol", err)
			}
		})
	}
}

func TestDecode_Limits(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"array too long", "*1025\r\n"},
		{"bulk too long", "*1\r\n$524289\r\n"},
		{"length line never terminated", "*1\r\n$" + strings.Repeat("1", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if !errors.Is(err, domain.ErrLimitExceeded) {
				t.Errorf("error = %v, want ErrLimitExceeded", err)
			}
		})
	}
}

func TestDecode_AtLimits(t *testing.T) {
	var b strings.Builder
	b.WriteString("*1024\r\n")
	for i := 0; i < MaxArrayLen; i++ {
		b.WriteString("$1\r\nx\r\n")
	}
	req, err := Decode([]byte(b.String()))
	if err != nil {
		t.Fatalf("array at limit: Decode() error = %v", err)
	}
	if len(req.Args) != MaxArrayLen-1 {
		t.Errorf("len(Args) = %d, want %d", len(req.Args), MaxArrayLen-1)
	}

	payload := strings.Repeat("v", MaxBulkLen)
	req, err = Decode(EncodeCommand("ECHO", payload))
	if err != nil {
		t.Fatalf("bulk at limit: Decode() error = %v", err)
	}
	if req.Args[0] != payload {
		t.Error("bulk at limit was not decoded intact")
	}
}

// ============================================================
// Incremental framing
// ============================================================

func TestDecodeFrame_PrefixesAreIncomplete(t *testing.T) {
	msgs := []string{
		"*2\r\n$3\r\nGET\r\n$1\r\nk\r\n",
		"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$4\r\na\r\nb\r\n",
		"*1\r\n$4\r\nPING\r\n",
		"*2\r\n$4\r\nECHO\r\n$0\r\n\r\n",
	}

	for _, msg := range msgs {
		for i := 0; i < len(msg); i++ {
			_, _, err := decodeFrame([]byte(msg[:i]))
			if !errors.Is(err, errIncomplete) {
				t.Errorf("decodeFrame(%q) error = %v, want errIncomplete", msg[:i], err)
			}
		}

		req, n, err := decodeFrame([]byte(msg))
		if err != nil {
			t.Fatalf("decodeFrame(%q) error = %v", msg, err)
		}
		if n != len(msg) {
			t.Errorf("decodeFrame(%q) consumed %d, want %d", msg, n, len(msg))
		}
		if req == nil {
			t.Errorf("decodeFrame(%q) returned nil request", msg)
		}
	}
}

func TestDecodeFrame_Pipelined(t *testing.T) {
	first := EncodeCommand("SET", "k", "v")
	second := EncodeCommand("GET", "k")
	buf := append(append([]byte{}, first...), second...)

	req, n, err := decodeFrame(buf)
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if req.Name != "SET" || n != len(first) {
		t.Fatalf("first frame = %+v consumed %d, want SET consumed %d", req, n, len(first))
	}

	req, n, err = decodeFrame(buf[n:])
	if err != nil {
		t.Fatalf("decodeFrame() error = %v", err)
	}
	if req.Name != "GET" || n != len(second) {
		t.Fatalf("second frame = %+v consumed %d, want GET consumed %d", req, n, len(second))
	}
}

// ============================================================
// Encode Tests
// ============================================================

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want string
	}{
		{"status", Status("PONG"), "+PONG\r\n"},
		{"ok", Status("OK"), "+OK\r\n"},
		{"bulk", Bulk("a b"), "$3\r\na b\r\n"},
		{"empty bulk", Bulk(""), "$0\r\n\r\n"},
		{"binary bulk", Bulk("a\r\nb"), "$4\r\na\r\nb\r\n"},
		{"nil bulk", NilBulk(), "$-1\r\n"},
		{"error", Error(domain.ErrInvalidTTL), "-ERR\r\n"},
		{"error without cause", Error(nil), "-ERR\r\n"},
		{"zero result", Result{}, "-ERR\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Encode(tt.in)); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteHelpers(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	_ = WriteSimpleString(w, "OK")
	_ = WriteError(w, "ERR")
	_ = WriteNullBulk(w)
	_ = WriteBulkString(w, "hello")
	_ = WriteArrayHeader(w, 2)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := "+OK\r\n-ERR\r\n$-1\r\n$5\r\nhello\r\n*2\r\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestEncodeCommand(t *testing.T) {
	got := string(EncodeCommand("SET", "k", "v"))
	want := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	if got != want {
		t.Fatalf("EncodeCommand() = %q, want %q", got, want)
	}

	req, err := Decode([]byte(got))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if req.Name != "SET" || !reflect.DeepEqual(req.Args, []string{"k", "v"}) {
		t.Errorf("Decode(EncodeCommand()) = %+v", req)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindStatus, "status"},
		{KindBulk, "bulk"},
		{KindNil, "nil"},
		{KindError, "error"},
		{Kind(0), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
