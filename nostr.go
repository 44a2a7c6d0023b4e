package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip05"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// NostrKeyCodec implements KeyCodec for nostr key material. Secrets are
// accepted as nsec bech32 or 64-char hex; the canonical form is hex and the
// public identity is the npub encoding.
type NostrKeyCodec struct{}

func (NostrKeyCodec) Decode(secret string) (string, string, error) {
	sk := strings.TrimSpace(secret)
	if strings.HasPrefix(sk, "nsec1") {
		prefix, value, err := nip19.Decode(sk)
		if err != nil {
			return "", "", fmt.Errorf("invalid nsec key: %w", err)
		}
		if prefix != "nsec" {
			return "", "", fmt.Errorf("expected nsec key, got %s", prefix)
		}
		sk = value.(string)
	}

	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return "", "", fmt.Errorf("invalid secret key: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode public key: %w", err)
	}
	return sk, npub, nil
}

func (NostrKeyCodec) Generate() string {
	return nostr.GeneratePrivateKey()
}

// ResolveRecipient turns a zap target identifier (NIP-05 name@domain, npub,
// nprofile, or hex pubkey) into a Recipient. An identifier that cannot be
// resolved comes back as a recipient_not_found WalletError; a malformed one
// as invalid_recipient. Resolution never races mints and never mutates state.
func ResolveRecipient(ctx context.Context, identifier string) (*Recipient, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return nil, NewWalletError(ErrCodeInvalidRecipient, "empty recipient identifier", nil)
	}

	if strings.Contains(id, "@") {
		profile, err := nip05.QueryIdentifier(ctx, id)
		if err != nil || profile == nil || profile.PublicKey == "" {
			return nil, NewWalletError(ErrCodeRecipientNotFound,
				fmt.Sprintf("nip05 identifier %q did not resolve", id),
				map[string]interface{}{"identifier": id})
		}
		return &Recipient{PublicKey: profile.PublicKey, Relays: profile.Relays}, nil
	}

	switch {
	case strings.HasPrefix(id, "npub1"):
		prefix, value, err := nip19.Decode(id)
		if err != nil || prefix != "npub" {
			return nil, NewWalletError(ErrCodeInvalidRecipient,
				fmt.Sprintf("invalid npub %q", id), nil)
		}
		return &Recipient{PublicKey: value.(string)}, nil

	case strings.HasPrefix(id, "nprofile1"):
		prefix, value, err := nip19.Decode(id)
		if err != nil || prefix != "nprofile" {
			return nil, NewWalletError(ErrCodeInvalidRecipient,
				fmt.Sprintf("invalid nprofile %q", id), nil)
		}
		profile := value.(nostr.ProfilePointer)
		return &Recipient{PublicKey: profile.PublicKey, Relays: profile.Relays}, nil

	case nostr.IsValidPublicKey(id):
		return &Recipient{PublicKey: id}, nil
	}

	return nil, NewWalletError(ErrCodeInvalidRecipient,
		fmt.Sprintf("unrecognized recipient identifier %q", id), nil)
}
