package engine

import (
	"context"
	"fmt"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/nft"
)

// CaptureReceipt is a captured event plus the token minted for a paid
// capture. Anonymous captures carry no token.
type CaptureReceipt struct {
	domain.WeatherEvent
	Token *nft.Token `json:"nft,omitempty"`
}

// TransferRequest moves a token between two users.
type TransferRequest struct {
	TokenID int    `json:"tokenId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// ChainStats is the simulated chain summary.
type ChainStats struct {
	Network      string `json:"network"`
	TotalNFTs    int    `json:"totalNFTs"`
	TotalEvents  int    `json:"totalEvents"`
	ActiveEvents int    `json:"activeEvents"`
	TotalUsers   int    `json:"totalUsers"`
	LastBlock    int    `json:"lastBlock"`
}

// mint issues the token for a paid capture. It returns nil when no registry
// is wired.
func (e *Engine) mint(ev domain.WeatherEvent, owner, wallet string) *nft.Token {
	if e.nft == nil {
		return nil
	}
	tok := e.nft.Mint(ev, owner, wallet)
	e.metrics.NFTOperations.WithLabelValues("mint", "success").Inc()
	return &tok
}

// TokensByOwner lists the tokens held by a user id or wallet address.
func (e *Engine) TokensByOwner(owner string) []nft.Token {
	if e.nft == nil {
		return []nft.Token{}
	}
	return e.nft.ByOwner(owner)
}

// TransferToken moves a token to another known user.
func (e *Engine) TransferToken(_ context.Context, req TransferRequest) (nft.TransferReceipt, error) {
	data := map[string]any{"tokenId": req.TokenID, "from": req.From, "to": req.To}

	receipt, err := e.transfer(req)
	if err != nil {
		outcome := e.recordFailure(fmt.Sprintf("Transfer of token %d rejected", req.TokenID), err, data)
		e.metrics.NFTOperations.WithLabelValues("transfer", outcome).Inc()
		return nft.TransferReceipt{}, err
	}

	data["txHash"] = receipt.TxHash
	e.record(domain.LevelInfo, fmt.Sprintf("Token %d transferred", req.TokenID), data)
	e.metrics.NFTOperations.WithLabelValues("transfer", "success").Inc()
	return receipt, nil
}

func (e *Engine) transfer(req TransferRequest) (nft.TransferReceipt, error) {
	if e.nft == nil {
		return nft.TransferReceipt{}, &domain.NotFoundError{Kind: "token", ID: fmt.Sprint(req.TokenID)}
	}
	if req.From == "" {
		return nft.TransferReceipt{}, &domain.ValidationError{Field: "from", Reason: "must not be empty"}
	}
	if req.To == "" {
		return nft.TransferReceipt{}, &domain.ValidationError{Field: "to", Reason: "must not be empty"}
	}
	recipient, err := e.users.Get(req.To)
	if err != nil {
		return nft.TransferReceipt{}, err
	}
	return e.nft.Transfer(req.TokenID, req.From, recipient.ID, recipient.WalletAddress)
}

// ChainStats summarizes tokens, events and users.
func (e *Engine) ChainStats() ChainStats {
	events := e.ledger.Stats()
	st := ChainStats{
		Network:      nft.Network,
		TotalEvents:  events.Total,
		ActiveEvents: events.Active,
		TotalUsers:   e.users.Summary().TotalUsers,
	}
	if e.nft != nil {
		tokens := e.nft.Stats()
		st.TotalNFTs, st.LastBlock = tokens.TotalNFTs, tokens.LastBlock
	}
	return st
}
