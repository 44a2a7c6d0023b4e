package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StateFileName is the fixed relative path of the persisted wallet document.
const StateFileName = "wallet.json"

// EnvSecretKey is the environment variable consulted when no explicit secret
// key is supplied.
const EnvSecretKey = "WALLET_NSEC"

// Bootstrap configuration for a first run. Both sets are append-only
// afterwards; rotation of the identity carries them forward.
var (
	defaultRelays = []string{
		"wss://relay.damus.io",
		"wss://nos.lol",
		"wss://relay.primal.net",
	}
	defaultMints = []string{
		"https://mint.minibits.cash/Bitcoin",
	}
)

// State is the single persisted wallet document. It is owned exclusively by
// the Store; other components hold only transient references during an
// operation. The document is rewritten in full after every mutation —
// last complete write wins, single-process assumption, no file locking.
type State struct {
	SecretKey   string                `json:"secretKey"`
	PublicKey   string                `json:"publicKey"`
	BalanceHint uint64                `json:"balanceHint"`
	Relays      []string              `json:"relays"`
	Mints       []string              `json:"mints"`
	MintInfo    map[string]CacheEntry `json:"mintInfo"`
}

// Store loads, mutates and saves the wallet document.
type Store struct {
	path  string
	codec KeyCodec
	log   *zap.Logger

	mu    sync.Mutex
	state *State
}

// NewStore creates a store backed by the file at path (StateFileName when
// empty). The store is inert until Open is called.
func NewStore(path string, codec KeyCodec, log *zap.Logger) *Store {
	if path == "" {
		path = StateFileName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, codec: codec, log: log}
}

// Open loads the on-disk document (treating a corrupt or unreadable file as
// absent), resolves the wallet identity, reconciles the two and saves the
// result. The identity priority is explicit argument, then the WALLET_NSEC
// environment variable, then the persisted key, then a freshly generated one.
func (s *Store) Open(explicitSecret string) (*State, error) {
	loaded := s.load()

	secret := s.resolveSecret(explicitSecret, loaded)
	canonical, public, err := s.codec.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("resolving wallet identity: %w", err)
	}

	state := reconcile(loaded, canonical, public)

	s.mu.Lock()
	s.state = state
	err = s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return state, nil
}

// resolveSecret tries each source in priority order; the first non-empty
// result wins, otherwise a new key is generated.
func (s *Store) resolveSecret(explicit string, loaded *State) string {
	resolvers := []func() string{
		func() string { return explicit },
		func() string { return os.Getenv(EnvSecretKey) },
		func() string {
			if loaded != nil {
				return loaded.SecretKey
			}
			return ""
		},
	}
	for _, resolve := range resolvers {
		if sk := strings.TrimSpace(resolve()); sk != "" {
			return sk
		}
	}
	s.log.Info("no wallet identity found, generating a new key")
	return s.codec.Generate()
}

// reconcile merges the loaded document with the resolved identity. When the
// identity changed, the endpoint sets and the info cache are carried forward:
// rotating keys must not destroy accumulated mint configuration.
func reconcile(loaded *State, secret, public string) *State {
	fresh := &State{
		SecretKey: secret,
		PublicKey: public,
		Relays:    append([]string(nil), defaultRelays...),
		Mints:     append([]string(nil), defaultMints...),
		MintInfo:  make(map[string]CacheEntry),
	}
	if loaded == nil {
		return fresh
	}

	if loaded.SecretKey == secret {
		loaded.PublicKey = public
		if loaded.MintInfo == nil {
			loaded.MintInfo = make(map[string]CacheEntry)
		}
		return loaded
	}

	if len(loaded.Relays) > 0 {
		fresh.Relays = loaded.Relays
	}
	if len(loaded.Mints) > 0 {
		fresh.Mints = loaded.Mints
	}
	if loaded.MintInfo != nil {
		fresh.MintInfo = loaded.MintInfo
	}
	return fresh
}

// load reads the on-disk document. Any read or decode failure is absorbed:
// the store logs it and reports the document as absent.
func (s *Store) load() *State {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("unreadable state file, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return nil
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.log.Warn("corrupt state file, starting fresh",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return &state
}

// Save rewrites the full document. There is no partial write path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding wallet state: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("writing wallet state: %w", err)
	}
	s.log.Debug("state saved", zap.String("path", s.path))
	return nil
}

// PublicKey returns the wallet's public identity.
func (s *Store) PublicKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PublicKey
}

// SecretKey returns the wallet's canonical secret key.
func (s *Store) SecretKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SecretKey
}

// Mints returns a copy of the configured mint URLs in insertion order.
func (s *Store) Mints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Mints...)
}

// Relays returns a copy of the configured relay URLs in insertion order.
func (s *Store) Relays() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Relays...)
}

// AddMint appends a mint URL if not already present, preserving insertion
// order. It reports whether the set changed.
func (s *Store) AddMint(mintURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.Mints {
		if existing == mintURL {
			return false
		}
	}
	s.state.Mints = append(s.state.Mints, mintURL)
	return true
}

// AddRelay appends a relay URL if not already present.
func (s *Store) AddRelay(relayURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.Relays {
		if existing == relayURL {
			return false
		}
	}
	s.state.Relays = append(s.state.Relays, relayURL)
	return true
}

// BalanceHint returns the last persisted balance hint.
func (s *Store) BalanceHint() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.BalanceHint
}

// SetBalanceHint records the balance observed after a mutating operation.
func (s *Store) SetBalanceHint(sats uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.BalanceHint = sats
}

// MintInfoEntry returns the cached info document for a mint, if any.
func (s *Store) MintInfoEntry(mintURL string) (CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.state.MintInfo[mintURL]
	return entry, ok
}

// PutMintInfo records a freshly fetched info document for a mint.
func (s *Store) PutMintInfo(mintURL string, value json.RawMessage, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MintInfo[mintURL] = CacheEntry{Value: value, FetchedAt: fetchedAt}
}
