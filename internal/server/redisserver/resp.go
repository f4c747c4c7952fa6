package redisserver

import (
	"bufio"
	"bytes"
	"errors"
	"strconv"

	"github.com/yndnr/respkv/internal/core/domain"
)

// Protocol limits to prevent DoS attacks.
const (
	// MaxArrayLen limits the number of elements in a RESP array.
	MaxArrayLen = 1024

	// MaxBulkLen limits the size of a single bulk string (512KB).
	MaxBulkLen = 512 * 1024

	// maxHeaderLen limits "*<n>\r\n" and "$<n>\r\n" lines.
	maxHeaderLen = 32
)

// GenericError is the text of the one error reply the server sends.
const GenericError = "ERR"

// pingInline is the fixed 14-byte PING request, answered without array parsing.
var pingInline = []byte("*1\r\n$4\r\nPING\r\n")

var crlf = []byte("\r\n")

// errIncomplete reports that the buffer holds a valid prefix of a message.
var errIncomplete = errors.New("resp: incomplete message")

// Request is one decoded command invocation.
type Request struct {
	Name string
	Args []string
}

// Decode decodes the first message in data.
//
// data is treated as complete: a message cut short is a protocol error.
// Bytes after the first message are ignored.
func Decode(data []byte) (*Request, error) {
	req, _, err := decodeFrame(data)
	if errors.Is(err, errIncomplete) {
		return nil, domain.ErrProtocol.WithDetails("truncated message").WithCause(err)
	}
	return req, err
}

// decodeFrame decodes the first message in buf and returns the number of
// bytes it occupied. It returns errIncomplete if buf ends before the message
// does, so callers can wait for more input.
func decodeFrame(buf []byte) (*Request, int, error) {
	if bytes.HasPrefix(buf, pingInline) {
		return &Request{Name: CmdPing}, len(pingInline), nil
	}
	if len(buf) == 0 {
		return nil, 0, errIncomplete
	}
	if buf[0] != '*' {
		return nil, 0, domain.ErrProtocol.WithDetails("expected array")
	}
	if len(buf) == 1 {
		return nil, 0, errIncomplete
	}
	if !isDigit(buf[1]) {
		return nil, 0, domain.ErrProtocol.WithDetails("invalid array length")
	}

	n, pos, err := readLength(buf, 1)
	if err != nil {
		return nil, 0, err
	}
	if n > MaxArrayLen {
		return nil, 0, domain.ErrLimitExceeded.WithDetails("array length " + strconv.Itoa(n) + " exceeds limit")
	}

	elems := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var elem string
		elem, pos, err = readBulkString(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		elems = append(elems, elem)
	}

	req := &Request{}
	if len(elems) > 0 {
		req.Name = elems[0]
		req.Args = elems[1:]
	}
	return req, pos, nil
}

// readBulkString reads "$<len>\r\n<bytes>\r\n" starting at pos.
func readBulkString(buf []byte, pos int) (string, int, error) {
	if pos >= len(buf) {
		return "", 0, errIncomplete
	}
	if buf[pos] != '$' {
		return "", 0, domain.ErrProtocol.WithDetails("expected bulk string")
	}

	n, pos, err := readLength(buf, pos+1)
	if err != nil {
		return "", 0, err
	}
	if n > MaxBulkLen {
		return "", 0, domain.ErrLimitExceeded.WithDetails("bulk length " + strconv.Itoa(n) + " exceeds limit")
	}

	end := pos + n
	if end+len(crlf) > len(buf) {
		// A byte that can't start the terminator is already a mismatch.
		if end < len(buf) && buf[end] != '\r' {
			return "", 0, domain.ErrProtocol.WithDetails("invalid bulk terminator")
		}
		return "", 0, errIncomplete
	}
	if !bytes.Equal(buf[end:end+len(crlf)], crlf) {
		return "", 0, domain.ErrProtocol.WithDetails("invalid bulk terminator")
	}
	return string(buf[pos:end]), end + len(crlf), nil
}

// readLength reads a decimal length terminated by CRLF starting at pos and
// returns it with the position after the CRLF.
func readLength(buf []byte, pos int) (int, int, error) {
	idx := bytes.Index(buf[pos:], crlf)
	if idx < 0 {
		if len(buf)-pos > maxHeaderLen {
			return 0, 0, domain.ErrLimitExceeded.WithDetails("length line too long")
		}
		for _, b := range buf[pos:] {
			if !isDigit(b) && b != '\r' {
				return 0, 0, domain.ErrProtocol.WithDetails("invalid length")
			}
		}
		return 0, 0, errIncomplete
	}

	line := buf[pos : pos+idx]
	if len(line) == 0 || len(line) > maxHeaderLen {
		return 0, 0, domain.ErrProtocol.WithDetails("invalid length")
	}
	for _, b := range line {
		if !isDigit(b) {
			return 0, 0, domain.ErrProtocol.WithDetails("invalid length")
		}
	}
	n, err := strconv.Atoi(string(line))
	if err != nil {
		return 0, 0, domain.ErrProtocol.WithDetails("invalid length").WithCause(err)
	}
	return n, pos + idx + len(crlf), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// ============================================================
// Results
// ============================================================

// Kind tags the variant held by a Result.
type Kind uint8

const (
	KindStatus Kind = iota + 1
	KindBulk
	KindNil
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindBulk:
		return "bulk"
	case KindNil:
		return "nil"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command, ready to be encoded.
type Result struct {
	Kind Kind
	Text string
	// Err is the cause of a KindError result. It never reaches the wire.
	Err error
}

// Status returns a simple-string result.
func Status(s string) Result {
	return Result{Kind: KindStatus, Text: s}
}

// Bulk returns a present bulk-string result.
func Bulk(s string) Result {
	return Result{Kind: KindBulk, Text: s}
}

// NilBulk returns the absent bulk-string result.
func NilBulk() Result {
	return Result{Kind: KindNil}
}

// Error returns the generic error result caused by err.
func Error(err error) Result {
	return Result{Kind: KindError, Err: err}
}

// Encode returns the wire form of r.
func Encode(r Result) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_ = WriteResult(w, r)
	_ = w.Flush()
	return buf.Bytes()
}

// WriteResult writes the wire form of r to w.
func WriteResult(w *bufio.Writer, r Result) error {
	switch r.Kind {
	case KindStatus:
		return WriteSimpleString(w, r.Text)
	case KindBulk:
		return WriteBulkString(w, r.Text)
	case KindNil:
		return WriteNullBulk(w)
	default:
		return WriteError(w, GenericError)
	}
}

func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + s + "\r\n")
	return err
}

func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + s + "\r\n")
	return err
}

func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

func WriteBulkString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

func WriteArrayHeader(w *bufio.Writer, n int) error {
	_, err := w.WriteString("*" + strconv.Itoa(n) + "\r\n")
	return err
}

// EncodeCommand returns the array-of-bulk-strings form of a command.
func EncodeCommand(name string, args ...string) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_ = WriteArrayHeader(w, 1+len(args))
	_ = WriteBulkString(w, name)
	for _, a := range args {
		_ = WriteBulkString(w, a)
	}
	_ = w.Flush()
	return buf.Bytes()
}
