package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/guardvault/internal/chain"
	"github.com/roach88/guardvault/internal/ir"
	"github.com/roach88/guardvault/internal/store"
)

// Call is a request to execute one action as Sender.
// An empty FlowToken starts a new flow.
type Call struct {
	Action    ir.ActionURI
	Sender    string
	Args      ir.IRObject
	FlowToken string
}

// Receipt is the journaled outcome of a call. Err is set when the call was
// rejected; the completion then carries the rejection code as its output
// case and Signals is empty.
type Receipt struct {
	Invocation ir.Invocation
	Completion ir.Completion
	Signals    []ir.Signal
	Err        *chain.Error
}

// OK reports whether the call was applied.
func (r *Receipt) OK() bool { return r.Err == nil }

// SignalSink receives the signals of every applied call after they are
// journaled. A failing sink is logged; the journal stays authoritative.
type SignalSink interface {
	Publish(ctx context.Context, signals []ir.Signal) error
}

// Engine is the single writer over a World and its journal.
//
// Every call goes through Apply, which holds the engine lock for the whole
// transaction: seq stamping, invocation write, execution, and the atomic
// completion+signals write. Calls therefore observe a total order, and
// the journal is that order.
//
// Apply may be used directly from any goroutine. Enqueue/Submit hand calls
// to a Run loop instead.
type Engine struct {
	mu sync.Mutex

	store        *store.Store
	world        *World
	clock        *Clock
	time         TimeSource
	lastTime     int64
	flowGen      FlowTokenGenerator
	manifestHash string
	sinks        []SignalSink
	logger       *slog.Logger
	queue        *callQueue
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock resumes seq stamping from c, e.g. after Replay.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLastBlockTime resumes block-time ordering from t, e.g. the
// Report.LastBlockTime of a Replay. Apply refuses block times before it.
func WithLastBlockTime(t int64) Option {
	return func(e *Engine) { e.lastTime = t }
}

// WithTimeSource sets the block time source. Default: SystemTime.
func WithTimeSource(ts TimeSource) Option {
	return func(e *Engine) { e.time = ts }
}

// WithFlowGenerator sets the flow token generator. Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(e *Engine) { e.flowGen = g }
}

// WithManifestHash records the deployment manifest hash on every invocation.
func WithManifestHash(h string) Option {
	return func(e *Engine) { e.manifestHash = h }
}

// WithSink adds a signal sink.
func WithSink(s SignalSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over world, journaling to s.
func New(s *store.Store, world *World, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		world:   world,
		clock:   NewClock(),
		time:    SystemTime{},
		flowGen: UUIDv7Generator{},
		logger:  slog.Default(),
		queue:   newCallQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// World returns the contracts the engine drives. Callers must not mutate
// them outside Apply.
func (e *Engine) World() *World { return e.world }

// Clock returns the engine's seq clock.
func (e *Engine) Clock() *Clock { return e.clock }

// NewFlow returns a fresh flow token.
func (e *Engine) NewFlow() string {
	return e.flowGen.Generate()
}

// Apply executes call and journals its outcome.
//
// A protocol rejection is not an error: it is journaled and reported via
// Receipt.Err. Apply returns an error only when the call cannot be
// journaled (unknown action, bad args, bad sender, a block time before the
// last journaled one, store failure). If
// execution fails with something other than a protocol rejection, the
// invocation stays in the journal without a completion and shows up in
// store.FindIncompleteFlows.
func (e *Engine) Apply(ctx context.Context, call Call) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := call.Args
	if args == nil {
		args = ir.IRObject{}
	}
	h, err := bindCall(call.Action, args)
	if err != nil {
		return nil, err
	}
	sender, err := chain.ParseAddress(call.Sender)
	if err != nil {
		return nil, NewInvalidSenderError(string(call.Action), call.Sender)
	}

	flow := call.FlowToken
	if flow == "" {
		flow = e.flowGen.Generate()
	}
	now := e.time.Now()
	if now < e.lastTime {
		return nil, NewTimeRegressionError(string(call.Action), now, e.lastTime)
	}

	inv := ir.Invocation{
		FlowToken:     flow,
		ActionURI:     call.Action,
		Args:          args,
		Seq:           e.clock.Next(),
		Sender:        string(sender),
		BlockTime:     now,
		ManifestHash:  e.manifestHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	inv.ID, err = ir.InvocationID(inv.FlowToken, inv.ActionURI, inv.Args, inv.Sender, inv.BlockTime, inv.Seq)
	if err != nil {
		return nil, err
	}
	if err := e.store.WriteInvocation(ctx, inv); err != nil {
		return nil, err
	}
	e.lastTime = now

	out, err := execute(h, e.world, chain.NewTx(sender, now))
	if err != nil {
		e.logger.Error("call failed without a protocol outcome",
			"error", err,
			"invocation_id", inv.ID,
			"action", inv.ActionURI,
			"flow", inv.FlowToken,
			"seq", inv.Seq,
		)
		return nil, fmt.Errorf("execute %s: %w", inv.ActionURI, err)
	}

	comp, signals, err := seal(inv.ID, out, e.clock.Next, e.clock.Next)
	if err != nil {
		return nil, err
	}
	if err := e.store.WriteOutcome(ctx, comp, signals); err != nil {
		return nil, err
	}

	e.logger.Debug("call applied",
		"action", inv.ActionURI,
		"sender", inv.Sender,
		"flow", inv.FlowToken,
		"seq", inv.Seq,
		"case", comp.OutputCase,
		"signals", len(signals),
	)

	if len(signals) > 0 {
		for _, sink := range e.sinks {
			if err := sink.Publish(ctx, signals); err != nil {
				e.logger.Warn("signal sink failed",
					"error", err,
					"completion_id", comp.ID,
					"signals", len(signals),
				)
			}
		}
	}

	return &Receipt{Invocation: inv, Completion: comp, Signals: signals, Err: out.rejection}, nil
}

// outcome is the protocol-level result of executing a handler.
type outcome struct {
	outputCase string
	result     ir.IRObject
	rejection  *chain.Error
	events     []chain.Event
}

// execute runs h in tx. A *chain.Error becomes a rejection outcome with
// tx's signals discarded; any other error is returned as is.
func execute(h handler, w *World, tx *chain.Tx) (outcome, error) {
	result, err := h(w, tx)
	if err != nil {
		tx.Discard()
		var ce *chain.Error
		if !errors.As(err, &ce) {
			return outcome{}, err
		}
		return outcome{outputCase: string(ce.Code), result: rejectionResult(ce), rejection: ce}, nil
	}
	if result == nil {
		result = ir.IRObject{}
	}
	return outcome{outputCase: ir.SuccessCase, result: result, events: tx.Events()}, nil
}

func rejectionResult(ce *chain.Error) ir.IRObject {
	res := ir.IRObject{"message": ir.IRString(ce.Message)}
	if ce.Cause != nil {
		res["cause"] = ir.IRString(ce.Cause.Error())
	}
	if len(ce.Details) > 0 {
		details := make(ir.IRObject, len(ce.Details))
		for k, v := range ce.Details {
			details[k] = ir.IRString(v)
		}
		res["details"] = details
	}
	return res
}

// seal builds the completion and its stamped signals for out. compSeq and
// sigSeq supply seqs; Apply passes the live clock and Replay passes the
// journaled seqs back in.
func seal(invocationID string, out outcome, compSeq, sigSeq func() int64) (ir.Completion, []ir.Signal, error) {
	comp := ir.Completion{
		InvocationID: invocationID,
		OutputCase:   out.outputCase,
		Result:       out.result,
		Seq:          compSeq(),
	}
	var err error
	comp.ID, err = ir.CompletionID(comp.InvocationID, comp.OutputCase, comp.Result, comp.Seq)
	if err != nil {
		return ir.Completion{}, nil, err
	}

	signals := make([]ir.Signal, 0, len(out.events))
	for _, ev := range out.events {
		sig := ir.Signal{
			CompletionID: comp.ID,
			Seq:          sigSeq(),
			Source:       ev.Source.String(),
			Name:         ev.Name,
			Args:         ev.Args,
		}
		sig.ID, err = ir.SignalID(sig.CompletionID, sig.Seq, sig.Source, sig.Name, sig.Args)
		if err != nil {
			return ir.Completion{}, nil, err
		}
		signals = append(signals, sig)
	}
	return comp, signals, nil
}

// Enqueue hands call to the Run loop. The returned channel receives
// exactly one Result.
func (e *Engine) Enqueue(ctx context.Context, call Call) (<-chan Result, error) {
	reply := make(chan Result, 1)
	if !e.queue.Enqueue(request{ctx: ctx, call: call, reply: reply}) {
		return nil, &RuntimeError{Code: ErrCodeStopped, Message: "engine is stopped", Action: string(call.Action)}
	}
	return reply, nil
}

// Submit enqueues call and waits for its result.
func (e *Engine) Submit(ctx context.Context, call Call) (*Receipt, error) {
	reply, err := e.Enqueue(ctx, call)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Receipt, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run serves queued calls until ctx is cancelled or Stop is called.
// Must be called from exactly one goroutine. Calls still queued when ctx
// is cancelled are answered with ErrCodeStopped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		if r, ok := e.queue.TryDequeue(); ok {
			e.serve(r)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.rejectPending()
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			if !open && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the queued calls are served.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) serve(r request) {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		r.reply <- Result{Err: err}
		return
	}
	rec, err := e.Apply(ctx, r.call)
	if err != nil {
		logCallError(e.logger, r.call, err)
	}
	r.reply <- Result{Receipt: rec, Err: err}
}

func (e *Engine) rejectPending() {
	for _, r := range e.queue.drain() {
		r.reply <- Result{Err: &RuntimeError{Code: ErrCodeStopped, Message: "engine stopped before the call ran", Action: string(r.call.Action)}}
	}
}

// logCallError logs a call that produced no journaled outcome, with enough
// context to resubmit it by hand.
func logCallError(l *slog.Logger, call Call, err error) {
	var re *RuntimeError
	if errors.As(err, &re) {
		l.Warn("call rejected by engine",
			"code", re.Code,
			"error", re.Message,
			"action", call.Action,
			"sender", call.Sender,
			"flow", call.FlowToken,
		)
		return
	}
	l.Error("call failed",
		"error", err,
		"action", call.Action,
		"sender", call.Sender,
		"flow", call.FlowToken,
	)
}
