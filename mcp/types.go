package mcp

// DepositArgs are the arguments of the deposit tool. A mint URL directs the
// deposit at that single mint; without one the wallet races every configured
// mint.
type DepositArgs struct {
	Amount  uint64 `json:"amount"`
	MintURL string `json:"mint_url,omitempty"`
}

// PayArgs are the arguments of the pay tool.
type PayArgs struct {
	Invoice string `json:"invoice"`
}

// ZapArgs are the arguments of the zap tool. Recipient accepts a NIP-05
// name@domain, an npub, an nprofile or a hex pubkey.
type ZapArgs struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Comment   string `json:"comment,omitempty"`
}

// AddMintArgs are the arguments of the add_mint tool.
type AddMintArgs struct {
	MintURL string `json:"mint_url"`
}
