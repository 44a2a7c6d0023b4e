package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// mintScript controls how the fake mint behaves for one URL.
type mintScript struct {
	infoErr    error
	info       json.RawMessage
	quoteErr   error
	delay      time.Duration // wait before the completion event
	confirmErr error         // deliver a failure instead of a receipt
	hold       bool          // never complete
}

// fakeMintClient is a scriptable MintClient shared across the package tests.
type fakeMintClient struct {
	mu         sync.Mutex
	scripts    map[string]*mintScript
	infoCalls  map[string]int
	quoteCalls []string
	nextQuote  int

	balance    uint64
	balanceErr error
	byMint     map[string]uint64
	byMintErr  error
}

func newFakeMintClient() *fakeMintClient {
	return &fakeMintClient{
		scripts:   make(map[string]*mintScript),
		infoCalls: make(map[string]int),
		byMint:    make(map[string]uint64),
	}
}

func (f *fakeMintClient) scriptFor(mintURL string) *mintScript {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.scripts[mintURL]; ok {
		return s
	}
	s := &mintScript{}
	f.scripts[mintURL] = s
	return s
}

func (f *fakeMintClient) infoCount(mintURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls[mintURL]
}

func (f *fakeMintClient) FetchInfo(ctx context.Context, mintURL string) (json.RawMessage, error) {
	s := f.scriptFor(mintURL)
	f.mu.Lock()
	f.infoCalls[mintURL]++
	f.mu.Unlock()
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	if s.info != nil {
		return s.info, nil
	}
	return json.RawMessage(fmt.Sprintf(`{"name":%q}`, mintURL)), nil
}

func (f *fakeMintClient) RequestQuote(ctx context.Context, mintURL string, amountSats uint64) (*MintQuote, error) {
	s := f.scriptFor(mintURL)
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	f.mu.Lock()
	f.quoteCalls = append(f.quoteCalls, mintURL)
	f.nextQuote++
	id := fmt.Sprintf("quote-%d", f.nextQuote)
	f.mu.Unlock()
	return &MintQuote{
		MintURL:    mintURL,
		QuoteID:    id,
		Invoice:    "lnbc-test-" + mintURL,
		AmountSats: amountSats,
	}, nil
}

func (f *fakeMintClient) AwaitQuote(ctx context.Context, quote *MintQuote) (<-chan MintReceipt, <-chan error) {
	s := f.scriptFor(quote.MintURL)
	done := make(chan MintReceipt, 1)
	errs := make(chan error, 1)
	go func() {
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
		if s.hold {
			return
		}
		if s.confirmErr != nil {
			errs <- s.confirmErr
			return
		}
		done <- MintReceipt{
			MintURL:    quote.MintURL,
			QuoteID:    quote.QuoteID,
			AmountSats: quote.AmountSats,
		}
	}()
	return done, errs
}

func (f *fakeMintClient) Balance(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return 0, f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeMintClient) BalanceByMint(ctx context.Context) (map[string]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byMintErr != nil {
		return nil, f.byMintErr
	}
	out := make(map[string]uint64, len(f.byMint))
	for mint, sats := range f.byMint {
		out[mint] = sats
	}
	return out, nil
}

type fakeLightning struct {
	receipt *PayReceipt
	err     error
	paid    []string
}

func (f *fakeLightning) PayInvoice(ctx context.Context, invoice string) (*PayReceipt, error) {
	f.paid = append(f.paid, invoice)
	if f.err != nil {
		return nil, f.err
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &PayReceipt{AmountSats: 10, FeeSats: 1}, nil
}

type fakeZapSender struct {
	receipt *ZapReceipt
	err     error
	sent    []Recipient
}

func (f *fakeZapSender) Zap(ctx context.Context, recipient Recipient, amountMsat uint64, comment string) (*ZapReceipt, error) {
	f.sent = append(f.sent, recipient)
	if f.err != nil {
		return nil, f.err
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &ZapReceipt{Recipient: recipient.PublicKey, AmountSats: amountMsat / 1000, EventID: "event-1"}, nil
}

// observation is one AttemptObserver callback.
type observation struct {
	mintURL   string
	receipt   *MintReceipt
	err       error
	discarded bool
}

// observer collects attempt observations for assertions.
type observer struct {
	mu   sync.Mutex
	seen []observation
	ch   chan observation
}

func newObserver() *observer {
	return &observer{ch: make(chan observation, 16)}
}

func (o *observer) observe(mintURL string, receipt *MintReceipt, err error, discarded bool) {
	obs := observation{mintURL: mintURL, receipt: receipt, err: err, discarded: discarded}
	o.mu.Lock()
	o.seen = append(o.seen, obs)
	o.mu.Unlock()
	o.ch <- obs
}

// waitFor blocks until an observation for mintURL arrives.
func (o *observer) waitFor(t *testing.T, mintURL string) observation {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case obs := <-o.ch:
			if obs.mintURL == mintURL {
				return obs
			}
		case <-deadline:
			t.Fatalf("timed out waiting for observation of %s", mintURL)
		}
	}
}

// testStatePath returns a state file path inside a per-test temp dir.
func testStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "wallet.json")
}

// clearIdentityEnv isolates a test from the ambient WALLET_NSEC value.
func clearIdentityEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvSecretKey, "")
}
