// Package wallet implements the core of a personal ecash wallet that spreads
// deposits across multiple Cashu-style mints and commits to whichever mint
// confirms first.
//
// The package is organized around four pieces:
//
//   - Store: a single JSON state document (identity, relays, mints, cached
//     mint info) persisted at a fixed path and rewritten in full after every
//     mutating operation.
//   - InfoCache: a TTL-bounded per-mint metadata cache that refreshes through
//     the configured MintClient and writes back through the Store.
//   - Coordinator: fires one deposit attempt per configured mint, settles on
//     the first success, reports all-failed only once every mint has refused,
//     and converts a blown deadline into a distinct pending outcome that still
//     carries the first issued invoice.
//   - Wallet: the operation facade (Balance, MintBalances, Deposit, Pay, Zap,
//     AddMint) consumed by front ends such as the MCP server in the mcp
//     subpackage. Facade methods never panic across the boundary; failures
//     come back as tagged outcomes.
//
// Protocol-specific concerns (the mint transport, Lightning payments, zap
// publishing) are consumed through narrow interfaces so the core stays
// testable and transport-agnostic.
package wallet
