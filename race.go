package wallet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RaceDeadline is the wall-clock budget for a racing deposit. It bounds the
// caller-visible decision only; in-flight attempts are never cancelled.
const RaceDeadline = 10 * time.Minute

// AttemptObserver is invoked exactly once per completed attempt. discarded
// is true when the race had already settled, which is how duplicate invoices
// issued by losing mints become observable to the operator.
type AttemptObserver func(mintURL string, receipt *MintReceipt, err error, discarded bool)

// RaceResult is the terminal outcome of a deposit, racing or directed.
type RaceResult struct {
	Outcome Outcome
	MintURL string
	Receipt *MintReceipt
	// Quote carries the first issued invoice when the race ends pending.
	Quote *MintQuote
	Err   *WalletError
}

// Coordinator runs the same deposit against every configured mint
// concurrently and settles on the first success. The settle decision is
// exclusive: exactly one of first-success, all-failed or deadline-pending
// becomes the caller-visible outcome.
type Coordinator struct {
	client   MintClient
	prepare  func(ctx context.Context, mintURL string) error
	clk      clock.Clock
	deadline time.Duration
	observe  AttemptObserver
	log      *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithPrepare sets a hook run at the start of every attempt, before the mint
// is contacted. A prepare failure counts as that attempt's failure.
func WithPrepare(fn func(ctx context.Context, mintURL string) error) CoordinatorOption {
	return func(c *Coordinator) { c.prepare = fn }
}

// WithRaceDeadline overrides the default deadline.
func WithRaceDeadline(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.deadline = d }
}

// WithRaceClock substitutes the wall clock, mainly for tests.
func WithRaceClock(clk clock.Clock) CoordinatorOption {
	return func(c *Coordinator) { c.clk = clk }
}

// WithRaceLogger sets the coordinator logger.
func WithRaceLogger(log *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.log = log }
}

// WithAttemptObserver registers an observer for completed attempts,
// discarded ones included.
func WithAttemptObserver(fn AttemptObserver) CoordinatorOption {
	return func(c *Coordinator) { c.observe = fn }
}

// NewCoordinator creates a coordinator over the given mint client.
func NewCoordinator(client MintClient, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		client:   client,
		clk:      clock.New(),
		deadline: RaceDeadline,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// raceState is the shared bookkeeping of one race.
type raceState struct {
	id       string
	total    int
	settled  atomic.Bool
	decision chan *RaceResult
	failures atomic.Int64
	artifact atomic.Pointer[MintQuote]

	mu     sync.Mutex
	causes map[string]string
}

func (rs *raceState) recordCause(mintURL string, err error) {
	rs.mu.Lock()
	rs.causes[mintURL] = err.Error()
	rs.mu.Unlock()
}

func (rs *raceState) causeSnapshot() map[string]interface{} {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	snapshot := make(map[string]interface{}, len(rs.causes))
	for mint, cause := range rs.causes {
		snapshot[mint] = cause
	}
	return snapshot
}

// RaceDeposit launches one attempt per mint and blocks until the race
// settles. Losing attempts keep running in the background; their outcomes are
// logged and passed to the observer, then discarded.
func (c *Coordinator) RaceDeposit(ctx context.Context, mints []string, amountSats uint64) *RaceResult {
	if len(mints) == 0 {
		return &RaceResult{
			Outcome: OutcomeError,
			Err:     NewWalletError(ErrCodeNoMintsConfigured, "no mints configured", nil),
		}
	}

	rs := &raceState{
		id:       uuid.NewString(),
		total:    len(mints),
		decision: make(chan *RaceResult, 1),
		causes:   make(map[string]string, len(mints)),
	}

	c.log.Debug("race started",
		zap.String("race", rs.id),
		zap.Int("mints", rs.total),
		zap.Uint64("amountSats", amountSats))

	for _, mintURL := range mints {
		go c.attempt(ctx, rs, mintURL, amountSats)
	}

	timer := c.clk.Timer(c.deadline)
	defer timer.Stop()

	select {
	case result := <-rs.decision:
		return result
	case <-timer.C:
		return c.settlePending(rs, "deadline elapsed")
	case <-ctx.Done():
		return c.settlePending(rs, ctx.Err().Error())
	}
}

// settlePending claims the settle flag for the timeout outcome. If an attempt
// won the claim between the timer firing and this call, its decision is
// authoritative instead.
func (c *Coordinator) settlePending(rs *raceState, reason string) *RaceResult {
	if !rs.settled.CompareAndSwap(false, true) {
		return <-rs.decision
	}

	result := &RaceResult{
		Outcome: OutcomePending,
		Quote:   rs.artifact.Load(),
		Err: NewWalletError(ErrCodePendingTimeout,
			"deposit still pending: "+reason, nil),
	}
	if result.Quote != nil {
		result.MintURL = result.Quote.MintURL
	}
	c.log.Warn("race settled pending",
		zap.String("race", rs.id),
		zap.String("reason", reason),
		zap.Bool("invoiceIssued", result.Quote != nil))
	return result
}

// DirectDeposit performs a single-mint deposit with no race and no deadline:
// the attempt's own success or failure is the operation's outcome.
func (c *Coordinator) DirectDeposit(ctx context.Context, mintURL string, amountSats uint64) *RaceResult {
	receipt, err := c.runAttempt(ctx, mintURL, amountSats, nil)
	if err != nil {
		return &RaceResult{
			Outcome: OutcomeError,
			MintURL: mintURL,
			Err:     AsWalletError(err, ErrCodeMintUnreachable),
		}
	}
	return &RaceResult{Outcome: OutcomeSuccess, MintURL: mintURL, Receipt: receipt}
}

// attempt runs one racing attempt to completion and reports its outcome to
// the race state. It never returns early once the race settles.
func (c *Coordinator) attempt(ctx context.Context, rs *raceState, mintURL string, amountSats uint64) {
	receipt, err := c.runAttempt(ctx, mintURL, amountSats, &rs.artifact)
	if err != nil {
		c.attemptFailed(rs, mintURL, err)
		return
	}

	if rs.settled.CompareAndSwap(false, true) {
		c.log.Info("race settled",
			zap.String("race", rs.id),
			zap.String("mint", mintURL),
			zap.Uint64("amountSats", receipt.AmountSats))
		if c.observe != nil {
			c.observe(mintURL, receipt, nil, false)
		}
		rs.decision <- &RaceResult{Outcome: OutcomeSuccess, MintURL: mintURL, Receipt: receipt}
		return
	}

	// A losing attempt that completed anyway: the mint issued and confirmed
	// a second deposit. Surface it loudly, then discard.
	c.log.Warn("discarded completed attempt after settle",
		zap.String("race", rs.id),
		zap.String("mint", mintURL),
		zap.Uint64("amountSats", receipt.AmountSats))
	if c.observe != nil {
		c.observe(mintURL, receipt, nil, true)
	}
}

func (c *Coordinator) attemptFailed(rs *raceState, mintURL string, err error) {
	rs.recordCause(mintURL, err)
	discarded := rs.settled.Load()
	c.log.Debug("attempt failed",
		zap.String("race", rs.id),
		zap.String("mint", mintURL),
		zap.Bool("discarded", discarded),
		zap.Error(err))
	if c.observe != nil {
		c.observe(mintURL, nil, err, discarded)
	}

	if rs.failures.Add(1) == int64(rs.total) && rs.settled.CompareAndSwap(false, true) {
		rs.decision <- &RaceResult{
			Outcome: OutcomeAllFailed,
			Err: NewWalletError(ErrCodeAllMintsFailed,
				"every mint refused the deposit", rs.causeSnapshot()),
		}
	}
}

// runAttempt performs one deposit against one mint: prepare, request a
// quote, then wait on the client's two completion channels. When artifact is
// non-nil the issued quote is offered as the race's first intermediate
// artifact.
func (c *Coordinator) runAttempt(ctx context.Context, mintURL string, amountSats uint64, artifact *atomic.Pointer[MintQuote]) (*MintReceipt, error) {
	if c.prepare != nil {
		if err := c.prepare(ctx, mintURL); err != nil {
			return nil, err
		}
	}

	quote, err := c.client.RequestQuote(ctx, mintURL, amountSats)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		artifact.CompareAndSwap(nil, quote)
	}

	done, errs := c.client.AwaitQuote(ctx, quote)
	select {
	case receipt := <-done:
		return &receipt, nil
	case err := <-errs:
		return nil, err
	}
}
