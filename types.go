package wallet

import (
	"encoding/json"
	"time"
)

// Outcome tags every result crossing the facade boundary.
type Outcome string

const (
	// OutcomeSuccess means the operation completed against exactly one mint.
	OutcomeSuccess Outcome = "success"
	// OutcomeAllFailed means every mint in a race refused the operation.
	OutcomeAllFailed Outcome = "all_mints_failed"
	// OutcomePending means the race deadline elapsed before any mint
	// confirmed; the result carries the first issued invoice, which may
	// still be paid out of band.
	OutcomePending Outcome = "pending"
	// OutcomeError means a single, identifiable failure (directed mode,
	// recipient resolution, payment submission, bad input).
	OutcomeError Outcome = "error"
)

// MintQuote is the intermediate artifact of a deposit attempt: an issued but
// not yet confirmed Lightning invoice bound to one mint.
type MintQuote struct {
	MintURL    string `json:"mintUrl"`
	QuoteID    string `json:"quoteId"`
	Invoice    string `json:"invoice"`
	AmountSats uint64 `json:"amountSats"`
}

// MintReceipt is the confirmation that a quote was paid and ecash issued.
type MintReceipt struct {
	MintURL    string `json:"mintUrl"`
	QuoteID    string `json:"quoteId"`
	AmountSats uint64 `json:"amountSats"`
}

// PayReceipt is the confirmation of an outbound Lightning payment.
type PayReceipt struct {
	Preimage   string `json:"preimage,omitempty"`
	AmountSats uint64 `json:"amountSats"`
	FeeSats    uint64 `json:"feeSats"`
}

// Recipient is a resolved zap target.
type Recipient struct {
	PublicKey string   `json:"publicKey"`
	Relays    []string `json:"relays,omitempty"`
}

// ZapReceipt is the confirmation of a sent zap.
type ZapReceipt struct {
	Recipient  string `json:"recipient"`
	AmountSats uint64 `json:"amountSats"`
	EventID    string `json:"eventId,omitempty"`
}

// CacheEntry is one cached mint-info document. An entry is valid while
// now - FetchedAt < InfoTTL; expired entries are refreshed in place, never
// purged.
type CacheEntry struct {
	Value     json.RawMessage `json:"value"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// BalanceResult is returned by Wallet.Balance.
type BalanceResult struct {
	Outcome Outcome `json:"outcome"`
	Sats    uint64  `json:"sats"`
}

// MintBalancesResult is returned by Wallet.MintBalances.
type MintBalancesResult struct {
	Outcome  Outcome           `json:"outcome"`
	Balances map[string]uint64 `json:"balances"`
}

// DepositResult is returned by Wallet.Deposit.
type DepositResult struct {
	Outcome    Outcome      `json:"outcome"`
	MintURL    string       `json:"mintUrl,omitempty"`
	Invoice    string       `json:"invoice,omitempty"`
	AmountSats uint64       `json:"amountSats,omitempty"`
	Error      *WalletError `json:"error,omitempty"`
}

// PayResult is returned by Wallet.Pay.
type PayResult struct {
	Outcome    Outcome      `json:"outcome"`
	AmountSats uint64       `json:"amountSats,omitempty"`
	FeeSats    uint64       `json:"feeSats,omitempty"`
	Error      *WalletError `json:"error,omitempty"`
}

// ZapResult is returned by Wallet.Zap.
type ZapResult struct {
	Outcome    Outcome      `json:"outcome"`
	Recipient  string       `json:"recipient,omitempty"`
	AmountSats uint64       `json:"amountSats,omitempty"`
	EventID    string       `json:"eventId,omitempty"`
	Error      *WalletError `json:"error,omitempty"`
}

// AddMintResult is returned by Wallet.AddMint.
type AddMintResult struct {
	Outcome Outcome      `json:"outcome"`
	MintURL string       `json:"mintUrl,omitempty"`
	Mints   []string     `json:"mints,omitempty"`
	Error   *WalletError `json:"error,omitempty"`
}
