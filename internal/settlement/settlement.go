// Package settlement holds the settlement-path strategies for crediting
// token rewards: a remote mint service or a direct ledger-contract client.
// Exactly one path is selected at startup; the orchestrator never chooses
// per call.
package settlement

import (
	"context"
	"math/big"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/model"
)

// Request is one settlement instruction: credit Amount tokens to the user
// identified by UserID (or to a reserved account passed as UserID for the
// liquidity side-mint).
type Request struct {
	UserID   string            `json:"userId"`
	Amount   int64             `json:"amount"`
	Reason   string            `json:"reason"`
	ProofID  string            `json:"proofId"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Settler executes one settlement and returns the settlement reference
// (transaction hash or upstream reference). Implementations distinguish an
// unreachable upstream (model.ErrSettlementUnavailable) from an upstream
// that reported failure (model.ErrSettlementFailed).
type Settler interface {
	Name() string
	Settle(ctx context.Context, req Request) (string, error)
}

// LedgerViews exposes the read-only ledger-contract calls used by the stats
// and user endpoints. Only the direct-contract path provides them.
type LedgerViews interface {
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}

// Select picks the settlement path once, in priority order: an injected
// settler (a directly-held contract client), then the remote mint service,
// then a contract client built from chain configuration. Returns
// model.ErrSettlementUnavailable when nothing is configured.
func Select(cfg *config.Config, injected Settler) (Settler, error) {
	if injected != nil {
		return injected, nil
	}
	if cfg.SettlementServiceURL != "" {
		return NewRemoteSettler(cfg.SettlementServiceURL, cfg.SettlementServiceToken), nil
	}
	if cfg.ChainRPCURL != "" && cfg.SignerKey != "" && cfg.LedgerContract != "" {
		wallets, err := NewWalletResolver(cfg.WalletServiceURL)
		if err != nil {
			return nil, err
		}
		return NewContractSettler(cfg, wallets)
	}
	return nil, model.ErrSettlementUnavailable
}
