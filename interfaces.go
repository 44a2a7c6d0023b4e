package wallet

import (
	"context"
	"encoding/json"
)

// MintClient is implemented by the protocol layer that talks to individual
// mints. The core treats every call as opaque: it never inspects transport
// details or the mint-info payload beyond caching it.
type MintClient interface {
	// FetchInfo retrieves the mint's self-description document. A mint that
	// does not answer should come back as a mint_unreachable WalletError.
	FetchInfo(ctx context.Context, mintURL string) (json.RawMessage, error)

	// RequestQuote asks the mint for a deposit quote. The returned quote
	// carries the Lightning invoice the depositor must pay.
	RequestQuote(ctx context.Context, mintURL string, amountSats uint64) (*MintQuote, error)

	// AwaitQuote watches a quote until it is paid and ecash is issued.
	// Completion is reported as two discrete events: exactly one value is
	// delivered on either the receipt channel or the error channel.
	AwaitQuote(ctx context.Context, quote *MintQuote) (<-chan MintReceipt, <-chan error)

	// Balance reports the total spendable balance across all mints.
	Balance(ctx context.Context) (uint64, error)

	// BalanceByMint reports the spendable balance held at each mint.
	BalanceByMint(ctx context.Context) (map[string]uint64, error)
}

// LightningClient is implemented by the layer that submits outbound
// Lightning payments funded by the wallet's ecash.
type LightningClient interface {
	PayInvoice(ctx context.Context, invoice string) (*PayReceipt, error)
}

// ZapSender is implemented by the layer that publishes zaps to a resolved
// recipient. Recipient resolution itself lives in the core (see
// ResolveRecipient) so that a not-found identifier is surfaced before any
// payment machinery is touched.
type ZapSender interface {
	Zap(ctx context.Context, recipient Recipient, amountMsat uint64, comment string) (*ZapReceipt, error)
}

// KeyCodec translates between the wallet's secret-key material and the
// public identity derived from it.
type KeyCodec interface {
	// Decode validates a secret key (bech32 or hex) and returns its
	// canonical form plus the derived public identity.
	Decode(secret string) (canonical, public string, err error)

	// Generate produces a fresh secret key.
	Generate() string
}
