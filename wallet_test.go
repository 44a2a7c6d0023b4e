package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/nbd-wtf/go-nostr"
)

func newTestWallet(t *testing.T, fake *fakeMintClient, opts ...Option) *Wallet {
	t.Helper()
	clearIdentityEnv(t)
	base := []Option{
		WithStatePath(testStatePath(t)),
		WithSecretKey(NostrKeyCodec{}.Generate()),
	}
	w, err := New(fake, append(base, opts...)...)
	if err != nil {
		t.Fatalf("creating wallet: %v", err)
	}
	return w
}

func TestBalance_SwallowsQueryFailure(t *testing.T) {
	fake := newFakeMintClient()
	fake.balanceErr = errors.New("wallet db locked")
	w := newTestWallet(t, fake)

	result := w.Balance(context.Background())
	if result.Outcome != OutcomeSuccess || result.Sats != 0 {
		t.Errorf("expected zero-value success, got %+v", result)
	}
}

func TestMintBalances_SwallowsQueryFailure(t *testing.T) {
	fake := newFakeMintClient()
	fake.byMintErr = errors.New("wallet db locked")
	w := newTestWallet(t, fake)

	result := w.MintBalances(context.Background())
	if result.Outcome != OutcomeSuccess {
		t.Errorf("expected success outcome, got %v", result.Outcome)
	}
	if result.Balances == nil || len(result.Balances) != 0 {
		t.Errorf("expected empty balances map, got %v", result.Balances)
	}
}

func TestDeposit_RacingSuccessUpdatesBalanceHint(t *testing.T) {
	fake := newFakeMintClient()
	fake.balance = 500
	w := newTestWallet(t, fake)

	result := w.Deposit(context.Background(), 100, "")
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.AmountSats != 100 {
		t.Errorf("expected 100 sats deposited, got %d", result.AmountSats)
	}
	if w.store.BalanceHint() != 500 {
		t.Errorf("expected balance hint refreshed to 500, got %d", w.store.BalanceHint())
	}
}

func TestDeposit_DirectedRegistersMintAndFetchesInfo(t *testing.T) {
	fake := newFakeMintClient()
	w := newTestWallet(t, fake)

	result := w.Deposit(context.Background(), 50, "https://new.mint")
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", result)
	}

	found := false
	for _, mint := range w.Mints() {
		if mint == "https://new.mint" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected new mint registered, got %v", w.Mints())
	}
	if fake.infoCount("https://new.mint") != 1 {
		t.Errorf("expected one info fetch, got %d", fake.infoCount("https://new.mint"))
	}
}

func TestDeposit_DirectedFailureIsNotAllFailed(t *testing.T) {
	fake := newFakeMintClient()
	fake.scriptFor("https://x.mint").confirmErr = errors.New("refused")
	w := newTestWallet(t, fake)

	result := w.Deposit(context.Background(), 50, "https://x.mint")
	if result.Outcome != OutcomeError {
		t.Fatalf("expected error, got %v", result.Outcome)
	}
	if result.Error == nil || result.Error.Code == ErrCodeAllMintsFailed {
		t.Errorf("directed failure must stay a single failure, got %v", result.Error)
	}
}

func TestDeposit_NoMintsConfigured(t *testing.T) {
	clearIdentityEnv(t)
	codec := NostrKeyCodec{}
	sk := codec.Generate()
	_, npub, err := codec.Decode(sk)
	if err != nil {
		t.Fatalf("decoding key: %v", err)
	}

	// A persisted document that matches the identity but has no mints.
	path := testStatePath(t)
	doc := State{SecretKey: sk, PublicKey: npub, Mints: []string{}, MintInfo: map[string]CacheEntry{}}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshaling state: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("writing state: %v", err)
	}

	w, err := New(newFakeMintClient(), WithStatePath(path), WithSecretKey(sk))
	if err != nil {
		t.Fatalf("creating wallet: %v", err)
	}

	result := w.Deposit(context.Background(), 50, "")
	if result.Outcome != OutcomeError {
		t.Fatalf("expected error, got %v", result.Outcome)
	}
	if result.Error == nil || result.Error.Code != ErrCodeNoMintsConfigured {
		t.Errorf("expected %s, got %v", ErrCodeNoMintsConfigured, result.Error)
	}
}

func TestDeposit_ZeroAmountRejected(t *testing.T) {
	w := newTestWallet(t, newFakeMintClient())
	result := w.Deposit(context.Background(), 0, "")
	if result.Outcome != OutcomeError || result.Error == nil || result.Error.Code != ErrCodeInvalidAmount {
		t.Errorf("expected invalid_amount error, got %+v", result)
	}
}

func TestPay_InvalidInvoiceRejected(t *testing.T) {
	ln := &fakeLightning{}
	w := newTestWallet(t, newFakeMintClient(), WithLightningClient(ln))

	result := w.Pay(context.Background(), "not-an-invoice")
	if result.Outcome != OutcomeError || result.Error == nil || result.Error.Code != ErrCodeInvalidInvoice {
		t.Errorf("expected invalid_invoice error, got %+v", result)
	}
	if len(ln.paid) != 0 {
		t.Error("expected no payment attempt for an invalid invoice")
	}
}

func TestPay_Success(t *testing.T) {
	fake := newFakeMintClient()
	fake.balance = 90
	ln := &fakeLightning{receipt: &PayReceipt{AmountSats: 10, FeeSats: 1}}
	w := newTestWallet(t, fake, WithLightningClient(ln))

	result := w.Pay(context.Background(), "lnbc10n1testinvoice")
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.AmountSats != 10 || result.FeeSats != 1 {
		t.Errorf("unexpected receipt fields %+v", result)
	}
	if w.store.BalanceHint() != 90 {
		t.Errorf("expected balance hint refreshed, got %d", w.store.BalanceHint())
	}
}

func TestPay_FailureIsTagged(t *testing.T) {
	ln := &fakeLightning{err: errors.New("no route")}
	w := newTestWallet(t, newFakeMintClient(), WithLightningClient(ln))

	result := w.Pay(context.Background(), "lnbc10n1testinvoice")
	if result.Outcome != OutcomeError || result.Error == nil || result.Error.Code != ErrCodePaymentFailed {
		t.Errorf("expected payment_failed error, got %+v", result)
	}
}

func TestZap_UnresolvableRecipientFailsImmediately(t *testing.T) {
	sender := &fakeZapSender{}
	w := newTestWallet(t, newFakeMintClient(), WithZapSender(sender))

	result := w.Zap(context.Background(), "definitely-not-a-recipient", 21, "")
	if result.Outcome != OutcomeError {
		t.Fatalf("expected error, got %v", result.Outcome)
	}
	if len(sender.sent) != 0 {
		t.Error("expected no zap attempt for an unresolvable recipient")
	}
}

func TestZap_SuccessByNpub(t *testing.T) {
	codec := NostrKeyCodec{}
	recipientKey := codec.Generate()
	_, npub, err := codec.Decode(recipientKey)
	if err != nil {
		t.Fatalf("decoding recipient key: %v", err)
	}
	expectedPk, err := nostr.GetPublicKey(recipientKey)
	if err != nil {
		t.Fatalf("deriving recipient pubkey: %v", err)
	}

	sender := &fakeZapSender{}
	w := newTestWallet(t, newFakeMintClient(), WithZapSender(sender))

	result := w.Zap(context.Background(), npub, 21, "gm")
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Recipient != expectedPk {
		t.Errorf("expected recipient %s, got %s", expectedPk, result.Recipient)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one zap, got %d", len(sender.sent))
	}
	// A bare npub has no relay hints; the wallet's own relays fill in.
	if len(sender.sent[0].Relays) == 0 {
		t.Error("expected wallet relays to back an npub recipient")
	}
}

func TestAddMint_Validates(t *testing.T) {
	w := newTestWallet(t, newFakeMintClient())

	result := w.AddMint(context.Background(), "not a url")
	if result.Outcome != OutcomeError || result.Error == nil || result.Error.Code != ErrCodeInvalidMintURL {
		t.Errorf("expected invalid_mint_url error, got %+v", result)
	}
}

func TestAddMint_PersistsAndIsIdempotent(t *testing.T) {
	fake := newFakeMintClient()
	path := testStatePath(t)
	clearIdentityEnv(t)
	sk := NostrKeyCodec{}.Generate()
	w, err := New(fake, WithStatePath(path), WithSecretKey(sk))
	if err != nil {
		t.Fatalf("creating wallet: %v", err)
	}

	first := w.AddMint(context.Background(), "https://a.mint")
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %+v", first)
	}
	second := w.AddMint(context.Background(), "https://a.mint")
	if second.Outcome != OutcomeSuccess {
		t.Fatalf("expected idempotent success, got %+v", second)
	}
	if len(first.Mints) != len(second.Mints) {
		t.Errorf("duplicate add changed the set: %v vs %v", first.Mints, second.Mints)
	}

	// Survives a restart.
	reopened, err := NewStore(path, NostrKeyCodec{}, nil).Open(sk)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	found := false
	for _, mint := range reopened.Mints {
		if mint == "https://a.mint" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected added mint persisted, got %v", reopened.Mints)
	}
}
