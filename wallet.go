package wallet

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Wallet is the operation facade. Every method returns a normalized result
// with a tagged outcome and never panics across the boundary. Read-only
// queries (Balance, MintBalances) never race, never mutate persisted state
// and fall back to zero values on internal failure; mutating operations
// persist state before returning.
type Wallet struct {
	store  *Store
	cache  *InfoCache
	coord  *Coordinator
	mint   MintClient
	ln     LightningClient
	sender ZapSender
	clk    clock.Clock
	log    *zap.Logger

	statePath      string
	explicitSecret string
	codec          KeyCodec
	deadline       time.Duration
	ttl            time.Duration
	observe        AttemptObserver
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithLogger sets the wallet logger, shared with the store, cache and
// coordinator.
func WithLogger(log *zap.Logger) Option {
	return func(w *Wallet) { w.log = log }
}

// WithClock substitutes the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(w *Wallet) { w.clk = clk }
}

// WithStatePath overrides the state file location.
func WithStatePath(path string) Option {
	return func(w *Wallet) { w.statePath = path }
}

// WithSecretKey supplies an explicit identity, taking priority over the
// environment and the persisted key.
func WithSecretKey(secret string) Option {
	return func(w *Wallet) { w.explicitSecret = secret }
}

// WithKeyCodec substitutes the key codec.
func WithKeyCodec(codec KeyCodec) Option {
	return func(w *Wallet) { w.codec = codec }
}

// WithLightningClient wires the outbound payment collaborator.
func WithLightningClient(ln LightningClient) Option {
	return func(w *Wallet) { w.ln = ln }
}

// WithZapSender wires the zap publishing collaborator.
func WithZapSender(sender ZapSender) Option {
	return func(w *Wallet) { w.sender = sender }
}

// WithDepositDeadline overrides the racing-deposit deadline.
func WithDepositDeadline(d time.Duration) Option {
	return func(w *Wallet) { w.deadline = d }
}

// WithInfoTTL overrides the mint-info cache TTL.
func WithInfoTTL(ttl time.Duration) Option {
	return func(w *Wallet) { w.ttl = ttl }
}

// WithObserver registers an observer for completed deposit attempts,
// discarded ones included.
func WithObserver(fn AttemptObserver) Option {
	return func(w *Wallet) { w.observe = fn }
}

// New creates a wallet over the given mint client, opening (or creating) the
// persisted state document in the process.
func New(mint MintClient, opts ...Option) (*Wallet, error) {
	w := &Wallet{
		mint:      mint,
		clk:       clock.New(),
		log:       zap.NewNop(),
		statePath: StateFileName,
		codec:     NostrKeyCodec{},
		deadline:  RaceDeadline,
		ttl:       InfoTTL,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.store = NewStore(w.statePath, w.codec, w.log)
	if _, err := w.store.Open(w.explicitSecret); err != nil {
		return nil, err
	}

	w.cache = NewInfoCache(w.store, mint.FetchInfo,
		WithCacheClock(w.clk),
		WithCacheTTL(w.ttl),
		WithCacheLogger(w.log))

	w.coord = NewCoordinator(mint,
		WithPrepare(w.prepareMint),
		WithRaceClock(w.clk),
		WithRaceDeadline(w.deadline),
		WithRaceLogger(w.log),
		WithAttemptObserver(w.observe))

	return w, nil
}

// PublicKey returns the wallet's public identity.
func (w *Wallet) PublicKey() string {
	return w.store.PublicKey()
}

// Mints returns the configured mint URLs in insertion order.
func (w *Wallet) Mints() []string {
	return w.store.Mints()
}

// prepareMint runs at the start of every deposit attempt: register the mint
// (idempotent) and make sure its info document is fresh. A mint whose info
// cannot be fetched counts as unreachable for that attempt.
func (w *Wallet) prepareMint(ctx context.Context, mintURL string) error {
	w.store.AddMint(mintURL)
	if _, err := w.cache.Get(ctx, mintURL); err != nil {
		return AsWalletError(err, ErrCodeMintUnreachable)
	}
	return nil
}

// Balance reports the total spendable balance. Internal query failures are
// swallowed and reported as zero.
func (w *Wallet) Balance(ctx context.Context) BalanceResult {
	sats, err := w.mint.Balance(ctx)
	if err != nil {
		w.log.Debug("balance query failed", zap.Error(err))
		return BalanceResult{Outcome: OutcomeSuccess, Sats: 0}
	}
	return BalanceResult{Outcome: OutcomeSuccess, Sats: sats}
}

// MintBalances reports the per-mint balance breakdown, empty on internal
// failure.
func (w *Wallet) MintBalances(ctx context.Context) MintBalancesResult {
	balances, err := w.mint.BalanceByMint(ctx)
	if err != nil || balances == nil {
		if err != nil {
			w.log.Debug("mint balance query failed", zap.Error(err))
		}
		balances = map[string]uint64{}
	}
	return MintBalancesResult{Outcome: OutcomeSuccess, Balances: balances}
}

// Deposit mints ecash worth amountSats. With a mint URL the deposit is
// directed at that single mint with no race and no deadline; without one it
// races every configured mint and commits to the first that confirms.
func (w *Wallet) Deposit(ctx context.Context, amountSats uint64, mintURL string) DepositResult {
	if amountSats == 0 {
		return DepositResult{
			Outcome: OutcomeError,
			Error:   NewWalletError(ErrCodeInvalidAmount, "deposit amount must be positive", nil),
		}
	}

	var result *RaceResult
	if mintURL != "" {
		if err := validateMintURL(mintURL); err != nil {
			return DepositResult{Outcome: OutcomeError, Error: err}
		}
		result = w.coord.DirectDeposit(ctx, mintURL, amountSats)
	} else {
		mints := w.store.Mints()
		if len(mints) == 0 {
			return DepositResult{
				Outcome: OutcomeError,
				Error:   NewWalletError(ErrCodeNoMintsConfigured, "no mints configured", nil),
			}
		}
		result = w.coord.RaceDeposit(ctx, mints, amountSats)
	}

	if result.Outcome == OutcomeSuccess {
		w.refreshBalanceHint(ctx)
	}
	w.saveState()

	out := DepositResult{Outcome: result.Outcome, MintURL: result.MintURL, Error: result.Err}
	switch {
	case result.Receipt != nil:
		out.AmountSats = result.Receipt.AmountSats
	case result.Quote != nil:
		out.Invoice = result.Quote.Invoice
		out.AmountSats = result.Quote.AmountSats
	}
	return out
}

// Pay settles a Lightning invoice from the wallet's balance.
func (w *Wallet) Pay(ctx context.Context, invoice string) PayResult {
	invoice = strings.TrimSpace(invoice)
	if !strings.HasPrefix(strings.ToLower(invoice), "ln") {
		return PayResult{
			Outcome: OutcomeError,
			Error:   NewWalletError(ErrCodeInvalidInvoice, "not a bolt11 invoice", nil),
		}
	}
	if w.ln == nil {
		return PayResult{
			Outcome: OutcomeError,
			Error:   NewWalletError(ErrCodePaymentFailed, "no lightning client configured", nil),
		}
	}

	receipt, err := w.ln.PayInvoice(ctx, invoice)
	if err != nil {
		return PayResult{Outcome: OutcomeError, Error: AsWalletError(err, ErrCodePaymentFailed)}
	}

	w.refreshBalanceHint(ctx)
	w.saveState()
	return PayResult{
		Outcome:    OutcomeSuccess,
		AmountSats: receipt.AmountSats,
		FeeSats:    receipt.FeeSats,
	}
}

// Zap resolves a recipient identifier and sends amountSats to them. An
// identifier that does not resolve fails immediately; no mints are raced.
func (w *Wallet) Zap(ctx context.Context, identifier string, amountSats uint64, comment string) ZapResult {
	if amountSats == 0 {
		return ZapResult{
			Outcome: OutcomeError,
			Error:   NewWalletError(ErrCodeInvalidAmount, "zap amount must be positive", nil),
		}
	}

	recipient, err := ResolveRecipient(ctx, identifier)
	if err != nil {
		return ZapResult{Outcome: OutcomeError, Error: AsWalletError(err, ErrCodeRecipientNotFound)}
	}
	if len(recipient.Relays) == 0 {
		recipient.Relays = w.store.Relays()
	}

	if w.sender == nil {
		return ZapResult{
			Outcome: OutcomeError,
			Error:   NewWalletError(ErrCodePaymentFailed, "no zap sender configured", nil),
		}
	}

	receipt, err := w.sender.Zap(ctx, *recipient, amountSats*1000, comment)
	if err != nil {
		return ZapResult{Outcome: OutcomeError, Error: AsWalletError(err, ErrCodePaymentFailed)}
	}

	w.refreshBalanceHint(ctx)
	w.saveState()
	return ZapResult{
		Outcome:    OutcomeSuccess,
		Recipient:  recipient.PublicKey,
		AmountSats: amountSats,
		EventID:    receipt.EventID,
	}
}

// AddMint registers a mint URL. Adding an already-present URL is a no-op
// that still reports success.
func (w *Wallet) AddMint(ctx context.Context, mintURL string) AddMintResult {
	mintURL = strings.TrimSpace(mintURL)
	if err := validateMintURL(mintURL); err != nil {
		return AddMintResult{Outcome: OutcomeError, Error: err}
	}

	if w.store.AddMint(mintURL) {
		w.saveState()
	}
	return AddMintResult{
		Outcome: OutcomeSuccess,
		MintURL: mintURL,
		Mints:   w.store.Mints(),
	}
}

func (w *Wallet) refreshBalanceHint(ctx context.Context) {
	sats, err := w.mint.Balance(ctx)
	if err != nil {
		w.log.Debug("balance refresh failed", zap.Error(err))
		return
	}
	w.store.SetBalanceHint(sats)
}

func (w *Wallet) saveState() {
	if err := w.store.Save(); err != nil {
		w.log.Warn("failed to persist wallet state", zap.Error(err))
	}
}

func validateMintURL(mintURL string) *WalletError {
	parsed, err := url.Parse(mintURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return NewWalletError(ErrCodeInvalidMintURL,
			"mint URL must be an absolute http(s) URL", nil)
	}
	return nil
}
