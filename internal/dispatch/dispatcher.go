// Package dispatch resolves, executes and bounds one inspection request at
// a time: registry lookup, payload decoding and response assembly run
// inline; only the inspector invocation runs on the worker pool.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Atiyakh/dyright/internal/codec"
	"github.com/Atiyakh/dyright/internal/log"
	"github.com/Atiyakh/dyright/internal/pool"
	"github.com/Atiyakh/dyright/internal/rlimit"
	"github.com/Atiyakh/dyright/internal/script"
)

// Resolver looks up the inspection script entry for a type name.
type Resolver interface {
	Get(typeName string) *script.Entry
}

// Defaults are applied when a request leaves a knob unset.
type Defaults struct {
	Timeout time.Duration
	RAMMB   int
}

// Dispatcher executes inspection requests against the registry on a
// bounded worker pool.
type Dispatcher struct {
	registry Resolver
	codecs   *codec.Registry
	pool     *pool.Pool
	defaults Defaults
	logger   *slog.Logger
}

// New creates a Dispatcher.
func New(registry Resolver, codecs *codec.Registry, p *pool.Pool, defaults Defaults) *Dispatcher {
	if defaults.Timeout <= 0 {
		defaults.Timeout = 5 * time.Second
	}
	return &Dispatcher{
		registry: registry,
		codecs:   codecs,
		pool:     p,
		defaults: defaults,
		logger:   log.WithComponent("dispatch"),
	}
}

// Execute runs one inspection attempt and always returns exactly one
// response carrying the request's ID. The caller never waits past the
// request deadline; a timed-out task is abandoned, not terminated (the
// interpreter's deadline interrupt is the only brake on a runaway script).
func (d *Dispatcher) Execute(ctx context.Context, req Request) Response {
	start := time.Now()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.defaults.Timeout
	}
	deadline := start.Add(timeout)

	reqLogger := log.WithRequest(req.ID).With("type_name", req.TypeName)

	entry := d.registry.Get(req.TypeName)
	if entry == nil {
		return d.fail(req, KindUnknownType,
			fmt.Sprintf("no inspection script registered for type: %s", req.TypeName))
	}
	if !entry.Loaded() {
		return d.fail(req, KindScriptLoadError,
			fmt.Sprintf("script load error: %s", entry.LoadError))
	}

	dec, ok := d.codecs.Get(req.Serialization)
	if !ok {
		return d.fail(req, KindUnsupportedSerialization,
			fmt.Sprintf("unknown serialization format: %s", req.Serialization))
	}

	obj, err := dec.Decode(req.Payload)
	if err != nil {
		return d.fail(req, KindDeserializationError,
			fmt.Sprintf("deserialization error: %v", err))
	}

	limits := rlimit.Limits{RAMMB: d.defaults.RAMMB}
	if req.Limits != nil {
		limits = *req.Limits
	}

	submitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	task, err := d.pool.Submit(submitCtx, func() (string, error) {
		restore := rlimit.Apply(limits)
		defer restore()
		return entry.Inspector.Inspect(obj, deadline)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Timed out waiting for queue space; intended behavior, the
			// clock starts at admission.
			return d.fail(req, KindTimeout,
				fmt.Sprintf("inspection timed out after %dms", timeout.Milliseconds()))
		}
		if errors.Is(err, context.Canceled) {
			// The caller went away during queue wait. The request was
			// abandoned before any script ran, so it is not a script
			// failure; it ends the same way an admission timeout does.
			return d.fail(req, KindTimeout, "inspection cancelled while waiting for a worker")
		}
		return d.fail(req, KindInspectionError, fmt.Sprintf("inspection error: %v", err))
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case res := <-task.Done():
		if res.Err != nil {
			return d.fail(req, KindInspectionError,
				fmt.Sprintf("inspection error: %v", res.Err))
		}
		elapsed := time.Since(start)
		reqLogger.Debug("inspection complete", "elapsed_ms", elapsed.Milliseconds())
		return Response{ID: req.ID, Success: true, Result: res.Value, Elapsed: elapsed}
	case <-timer.C:
		reqLogger.Warn("inspection timed out", "timeout_ms", timeout.Milliseconds())
		return d.fail(req, KindTimeout,
			fmt.Sprintf("inspection timed out after %dms", timeout.Milliseconds()))
	}
}

func (d *Dispatcher) fail(req Request, kind ErrorKind, msg string) Response {
	d.logger.Debug("inspection failed", "inspection_id", req.ID, "kind", string(kind), "error", msg)
	return Response{ID: req.ID, Success: false, Error: msg, Kind: kind}
}
