// Package nft keeps the simulated token registry: one token is minted per
// paid capture, and tokens can move between collectors. Nothing here talks
// to a chain; transaction hashes are opaque receipts for the admin console.
package nft

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/jonboulle/clockwork"
)

// Network names the simulated chain in stats responses.
const Network = "simulated"

const (
	txHashPrefix = "op"
	txHashLength = 49 // characters after the prefix
	txAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Token is a minted capture.
type Token struct {
	TokenID     int               `json:"tokenId"`
	TxHash      string            `json:"txHash"`
	EventID     string            `json:"eventId"`
	Name        string            `json:"name"`
	Rarity      domain.RarityTier `json:"rarity"`
	Owner       string            `json:"owner"`
	OwnerWallet string            `json:"ownerWallet,omitempty"`
	MintedAt    time.Time         `json:"mintedAt"`
}

// TransferReceipt records a completed ownership change.
type TransferReceipt struct {
	TxHash        string    `json:"txHash"`
	TokenID       int       `json:"tokenId"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	TransferredAt time.Time `json:"transferredAt"`
}

// Stats summarizes the registry. LastBlock counts every mint and transfer.
type Stats struct {
	Network   string `json:"network"`
	TotalNFTs int    `json:"totalNFTs"`
	LastBlock int    `json:"lastBlock"`
}

// Registry is the concurrency-safe token set. Token ids are sequential
// from 1.
type Registry struct {
	mu     sync.Mutex
	rng    generator.Rand
	clock  clockwork.Clock
	tokens []*Token
	txs    int
}

// NewRegistry creates an empty Registry.
func NewRegistry(rng generator.Rand, clock clockwork.Clock) *Registry {
	return &Registry{rng: rng, clock: clock}
}

// Mint issues a token for a captured event to owner.
func (r *Registry) Mint(ev domain.WeatherEvent, owner, wallet string) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &Token{
		TokenID:     len(r.tokens) + 1,
		TxHash:      r.txHash(),
		EventID:     ev.EventID,
		Name:        ev.UniqueName,
		Rarity:      ev.Rarity,
		Owner:       owner,
		OwnerWallet: wallet,
		MintedAt:    r.clock.Now().UTC(),
	}
	r.tokens = append(r.tokens, t)
	r.txs++
	return *t
}

// ByOwner returns the tokens held by a user id or wallet address, oldest
// first.
func (r *Registry) ByOwner(owner string) []Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []Token{}
	for _, t := range r.tokens {
		if t.Owner == owner || (t.OwnerWallet != "" && t.OwnerWallet == owner) {
			out = append(out, *t)
		}
	}
	return out
}

// Transfer moves a token from one owner to another. from must hold the
// token; moving it to its current owner is rejected.
func (r *Registry) Transfer(tokenID int, from, to, toWallet string) (TransferReceipt, error) {
	if to == "" {
		return TransferReceipt{}, &domain.ValidationError{Field: "to", Reason: "must not be empty"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.lookup(tokenID)
	if err != nil {
		return TransferReceipt{}, err
	}
	if t.Owner != from {
		return TransferReceipt{}, domain.ErrNotTokenOwner
	}
	if from == to {
		return TransferReceipt{}, &domain.ValidationError{Field: "to", Reason: "token already belongs to " + to}
	}

	t.Owner, t.OwnerWallet = to, toWallet
	r.txs++
	return TransferReceipt{
		TxHash:        r.txHash(),
		TokenID:       tokenID,
		From:          from,
		To:            to,
		TransferredAt: r.clock.Now().UTC(),
	}, nil
}

// Stats reports the token count and the number of recorded transactions.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Network: Network, TotalNFTs: len(r.tokens), LastBlock: r.txs}
}

func (r *Registry) lookup(tokenID int) (*Token, error) {
	if tokenID < 1 || tokenID > len(r.tokens) {
		return nil, &domain.NotFoundError{Kind: "token", ID: strconv.Itoa(tokenID)}
	}
	return r.tokens[tokenID-1], nil
}

// txHash must be called with mu held.
func (r *Registry) txHash() string {
	var b strings.Builder
	b.Grow(len(txHashPrefix) + txHashLength)
	b.WriteString(txHashPrefix)
	for range txHashLength {
		b.WriteByte(txAlphabet[r.rng.IntN(len(txAlphabet))])
	}
	return b.String()
}
