// Package mcp exposes the wallet's operations as MCP (Model Context
// Protocol) tools, built on the official Go SDK
// (github.com/modelcontextprotocol/go-sdk/mcp).
//
// Six tools are registered: get_balance, get_mint_balances, deposit, pay,
// zap and add_mint. Every tool returns the wallet's normalized result shape
// as both text and structured content; operation failures come back as a
// tagged outcome inside the result, never as a protocol-level error.
//
// Usage:
//
//	w, _ := wallet.New(mintClient)
//	server := mcp.NewServer(w, "1.0.0")
//	_ = server.Run(ctx, &mcpsdk.StdioTransport{})
package mcp
