package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/resp"
)

// DefaultTimeout bounds one request/reply exchange when the context has no
// deadline.
const DefaultTimeout = 5 * time.Second

// ServerError is an error reply sent by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// IsServerError reports whether err is an error reply from the server.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// Reply is a decoded server reply.
type Reply struct {
	Kind  string `json:"kind" yaml:"kind"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Nil   bool   `json:"nil,omitempty" yaml:"nil,omitempty"`
}

// Raw renders the reply the way redis-cli does.
func (r Reply) Raw() string {
	switch {
	case r.Nil:
		return "(nil)"
	case r.Kind == "error":
		return "(error) " + r.Value
	case r.Kind == "bulk":
		return strconv.Quote(r.Value)
	case r.Kind == "integer":
		return "(integer) " + r.Value
	default:
		return r.Value
	}
}

// Client is a RESP client for a single connection. It is safe for
// concurrent use; requests are serialized.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	rd      *resp.Reader
	wr      *resp.Writer
	timeout time.Duration
}

// Dial connects to addr, either host:port or unix:/path/to/socket.
// timeout bounds the dial and, later, each exchange without a context
// deadline. Zero means DefaultTimeout.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	network, address := splitNetwork(addr)
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &Client{
		conn:    conn,
		rd:      resp.NewReader(conn),
		wr:      resp.NewWriter(conn),
		timeout: timeout,
	}, nil
}

func splitNetwork(addr string) (network, address string) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		return "unix", path
	}
	return "tcp", addr
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends name and args as an array of bulk strings and reads one reply.
// An error reply is returned both as Reply and as a *ServerError.
func (c *Client) Do(ctx context.Context, name string, args ...string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return Reply{}, err
	}

	vals := make([]resp.Value, 0, 1+len(args))
	vals = append(vals, resp.StringValue(name))
	for _, a := range args {
		vals = append(vals, resp.StringValue(a))
	}
	if err := c.wr.WriteValue(resp.ArrayValue(vals)); err != nil {
		return Reply{}, fmt.Errorf("write %s: %w", name, err)
	}

	v, _, err := c.rd.ReadValue()
	if err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	reply := toReply(v)
	if reply.Kind == "error" {
		return reply, &ServerError{Message: reply.Value}
	}
	return reply, nil
}

func toReply(v resp.Value) Reply {
	switch v.Type() {
	case resp.SimpleString:
		return Reply{Kind: "status", Value: v.String()}
	case resp.Error:
		return Reply{Kind: "error", Value: v.String()}
	case resp.Integer:
		return Reply{Kind: "integer", Value: v.String()}
	case resp.BulkString:
		if v.IsNull() {
			return Reply{Kind: "bulk", Nil: true}
		}
		return Reply{Kind: "bulk", Value: v.String()}
	default:
		return Reply{Kind: "array", Value: v.String(), Nil: v.IsNull()}
	}
}

// Ping sends PING and returns the status text.
func (c *Client) Ping(ctx context.Context) (string, error) {
	r, err := c.Do(ctx, "PING")
	if err != nil {
		return "", err
	}
	return r.Value, nil
}

// Echo sends ECHO with args and returns the echoed text.
func (c *Client) Echo(ctx context.Context, args ...string) (string, error) {
	r, err := c.Do(ctx, "ECHO", args...)
	if err != nil {
		return "", err
	}
	return r.Value, nil
}

// Get returns the value of key and whether it exists.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	r, err := c.Do(ctx, "GET", key)
	if err != nil {
		return "", false, err
	}
	if r.Nil {
		return "", false, nil
	}
	return r.Value, true, nil
}

// Expiry selects the optional SET expiry. The zero value means none.
type Expiry struct {
	Seconds int64
	Millis  int64
}

func (e Expiry) args() []string {
	switch {
	case e.Seconds > 0:
		return []string{"EX", strconv.FormatInt(e.Seconds, 10)}
	case e.Millis > 0:
		return []string{"PX", strconv.FormatInt(e.Millis, 10)}
	default:
		return nil
	}
}

// Set stores value under key with an optional expiry.
func (c *Client) Set(ctx context.Context, key, value string, exp Expiry) error {
	args := append([]string{key, value}, exp.args()...)
	_, err := c.Do(ctx, "SET", args...)
	return err
}
