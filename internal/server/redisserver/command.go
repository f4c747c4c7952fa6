package redisserver

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/respkv/internal/core/domain"
	"github.com/yndnr/respkv/internal/telemetry/logger"
	"github.com/yndnr/respkv/internal/telemetry/metric"
)

// Recognized command names. Matching is exact (case-sensitive).
const (
	CmdPing = "PING"
	CmdEcho = "ECHO"
	CmdGet  = "GET"
	CmdSet  = "SET"
)

// setExpireSeconds selects a TTL in seconds; any other option word means milliseconds.
const setExpireSeconds = "EX"

// Store is the key-value storage used by the command handler.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	SetWithTTL(ctx context.Context, key, value string, ttlMillis int64)
}

// CommandHandler routes decoded requests to the store.
type CommandHandler struct {
	store   Store
	metrics *metric.Registry
}

// NewCommandHandler creates a new CommandHandler. metrics may be nil.
// Rejections are logged through the logger carried by the request context.
func NewCommandHandler(store Store, metrics *metric.Registry) *CommandHandler {
	return &CommandHandler{
		store:   store,
		metrics: metrics,
	}
}

// Handle executes req and returns its result. Failures of any kind come
// back as an error Result; Handle never panics on client input.
func (h *CommandHandler) Handle(ctx context.Context, req *Request) Result {
	start := time.Now()
	res := h.dispatch(ctx, req)

	h.metrics.ObserveCommand(commandLabel(req), res.Kind.String(), time.Since(start))
	if res.Kind == KindError {
		h.metrics.IncError(domain.Category(res.Err))
		logger.L(ctx).Debug("command rejected",
			"command", commandName(req),
			"code", domain.GetErrorCode(res.Err),
			"error", res.Err)
	}
	return res
}

func (h *CommandHandler) dispatch(ctx context.Context, req *Request) Result {
	if req == nil || req.Name == "" {
		return Error(domain.ErrWrongArgs.WithDetails("empty request"))
	}

	switch req.Name {
	case CmdPing:
		return h.handlePing()
	case CmdEcho:
		return h.handleEcho(req.Args)
	case CmdGet:
		return h.handleGet(ctx, req.Args)
	case CmdSet:
		return h.handleSet(ctx, req.Args)
	default:
		return Error(domain.ErrUnknownCommand.WithDetails("'" + req.Name + "'"))
	}
}

func (h *CommandHandler) handlePing() Result {
	return Status("PONG")
}

// handleEcho joins its arguments with single spaces. No arguments give an
// empty bulk string.
func (h *CommandHandler) handleEcho(args []string) Result {
	return Bulk(strings.Join(args, " "))
}

// handleGet handles GET key. Missing and expired keys are both nil.
func (h *CommandHandler) handleGet(ctx context.Context, args []string) Result {
	if len(args) < 1 {
		return Error(domain.ErrWrongArgs.WithDetails("GET needs a key"))
	}

	value, ok := h.store.Get(ctx, args[0])
	if !ok {
		return NilBulk()
	}
	return Bulk(value)
}

// handleSet handles SET key value [EX seconds | <option> milliseconds].
func (h *CommandHandler) handleSet(ctx context.Context, args []string) Result {
	switch {
	case len(args) < 2:
		return Error(domain.ErrWrongArgs.WithDetails("SET needs a key and a value"))
	case len(args) == 3:
		return Error(domain.ErrWrongArgs.WithDetails("SET expire option without a value"))
	}

	key, value := args[0], args[1]
	if len(args) == 2 {
		h.store.Set(ctx, key, value)
		return Status("OK")
	}

	ttl, err := parseTTL(args[2], args[3])
	if err != nil {
		return Error(err)
	}
	h.store.SetWithTTL(ctx, key, value, ttl)
	return Status("OK")
}

// parseTTL converts a SET expiry to milliseconds. unit "EX" (any case) means
// seconds; any other unit word means milliseconds.
func parseTTL(unit, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidTTL.WithDetails(strconv.Quote(raw) + " is not an integer").WithCause(err)
	}
	if n < 0 {
		return 0, domain.ErrInvalidTTL.WithDetails(strconv.Quote(raw) + " is negative")
	}

	if strings.EqualFold(unit, setExpireSeconds) {
		if n > math.MaxInt64/1000 {
			return 0, domain.ErrInvalidTTL.WithDetails(strconv.Quote(raw) + " seconds is out of range")
		}
		n *= 1000
	}
	return n, nil
}

// maxLoggedName caps client-supplied command names in log lines.
const maxLoggedName = 64

func commandName(req *Request) string {
	if req == nil {
		return ""
	}
	return logger.Truncate(req.Name, maxLoggedName)
}

// commandLabel bounds the metric label set to the known commands.
func commandLabel(req *Request) string {
	if req == nil {
		return "unknown"
	}
	switch req.Name {
	case CmdPing, CmdEcho, CmdGet, CmdSet:
		return req.Name
	default:
		return "unknown"
	}
}
