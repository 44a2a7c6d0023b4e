package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nutkit/wallet"
)

// NewServer creates an MCP server with all wallet tools registered.
func NewServer(w *wallet.Wallet, version string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "nutkit-wallet",
		Version: version,
	}, nil)
	RegisterTools(server, w)
	return server
}

// RegisterTools adds the wallet tools to an existing MCP server.
func RegisterTools(server *mcpsdk.Server, w *wallet.Wallet) {
	server.AddTool(&mcpsdk.Tool{
		Name:        "get_balance",
		Description: "Get the wallet's total balance in sats.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return resultOf(w.Balance(ctx))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "get_mint_balances",
		Description: "Get the wallet balance held at each configured mint.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return resultOf(w.MintBalances(ctx))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "deposit",
		Description: "Deposit sats into the wallet. Without mint_url, races all configured mints and commits to the first that confirms.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"amount":   map[string]interface{}{"type": "integer", "description": "Amount in sats"},
				"mint_url": map[string]interface{}{"type": "string", "description": "Optional: deposit at this mint only"},
			},
			"required": []string{"amount"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args DepositArgs
		if errResult := decodeArgs(req, &args); errResult != nil {
			return errResult, nil
		}
		return resultOf(w.Deposit(ctx, args.Amount, args.MintURL))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "pay",
		Description: "Pay a bolt11 Lightning invoice from the wallet balance.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"invoice": map[string]interface{}{"type": "string", "description": "The bolt11 invoice to pay"},
			},
			"required": []string{"invoice"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args PayArgs
		if errResult := decodeArgs(req, &args); errResult != nil {
			return errResult, nil
		}
		return resultOf(w.Pay(ctx, args.Invoice))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "zap",
		Description: "Send sats to a nostr recipient (NIP-05 address, npub, nprofile or hex pubkey).",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"recipient": map[string]interface{}{"type": "string", "description": "Recipient identifier"},
				"amount":    map[string]interface{}{"type": "integer", "description": "Amount in sats"},
				"comment":   map[string]interface{}{"type": "string", "description": "Optional comment"},
			},
			"required": []string{"recipient", "amount"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args ZapArgs
		if errResult := decodeArgs(req, &args); errResult != nil {
			return errResult, nil
		}
		return resultOf(w.Zap(ctx, args.Recipient, args.Amount, args.Comment))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        "add_mint",
		Description: "Register a mint URL with the wallet.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"mint_url": map[string]interface{}{"type": "string", "description": "The mint's base URL"},
			},
			"required": []string{"mint_url"},
		},
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		var args AddMintArgs
		if errResult := decodeArgs(req, &args); errResult != nil {
			return errResult, nil
		}
		return resultOf(w.AddMint(ctx, args.MintURL))
	})
}

// decodeArgs unmarshals tool arguments, returning a tool-level error result
// on malformed input.
func decodeArgs(req *mcpsdk.CallToolRequest, into interface{}) *mcpsdk.CallToolResult {
	if len(req.Params.Arguments) == 0 {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: "missing tool arguments"},
			},
		}
	}
	if err := json.Unmarshal(req.Params.Arguments, into); err != nil {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{
				&mcpsdk.TextContent{Text: fmt.Sprintf("failed to unmarshal arguments: %v", err)},
			},
		}
	}
	return nil
}

// resultOf serializes a wallet result into text plus structured content.
// Operation failures travel inside the result's outcome tag, so IsError
// stays false for anything the wallet handled.
func resultOf(result interface{}) (*mcpsdk.CallToolResult, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}

	var structured map[string]interface{}
	if err := json.Unmarshal(raw, &structured); err != nil {
		return nil, fmt.Errorf("failed to build structured content: %w", err)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(raw)},
		},
		StructuredContent: structured,
	}, nil
}
