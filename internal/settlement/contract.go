package settlement

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Azora-OS/azora-sub011/internal/config"
	"github.com/Azora-OS/azora-sub011/internal/model"
)

const confirmationPollInterval = 2 * time.Second

// ContractSettler mints rewards by calling the token-ledger contract
// directly. Payout addresses come from the wallet resolver; a userId that is
// already a hex address is used as-is.
type ContractSettler struct {
	client        *ethclient.Client
	bound         *bind.BoundContract
	auth          *bind.TransactOpts
	wallets       *WalletResolver
	confirmations uint64
}

// NewContractSettler dials the chain RPC endpoint and binds the ledger
// contract with a keyed transactor.
func NewContractSettler(cfg *config.Config, wallets *WalletResolver) (*ContractSettler, error) {
	client, err := ethclient.Dial(cfg.ChainRPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect chain rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse signer key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	if cfg.GasLimit > 0 {
		auth.GasLimit = cfg.GasLimit
	}
	if cfg.MaxGasPriceWei > 0 {
		auth.GasPrice = big.NewInt(cfg.MaxGasPriceWei)
	}

	ledgerABI, err := abi.JSON(strings.NewReader(TokenLedgerABI))
	if err != nil {
		return nil, fmt.Errorf("parse ledger abi: %w", err)
	}
	addr := common.HexToAddress(cfg.LedgerContract)
	bound := bind.NewBoundContract(addr, ledgerABI, client, client, client)

	return &ContractSettler{
		client:        client,
		bound:         bound,
		auth:          auth,
		wallets:       wallets,
		confirmations: cfg.Confirmations,
	}, nil
}

func (s *ContractSettler) Name() string {
	return "direct-contract"
}

// Settle mints req.Amount tokens to the user's payout address and waits for
// the transaction to be mined (plus the configured confirmation depth). The
// mined transaction hash is the settlement reference.
func (s *ContractSettler) Settle(ctx context.Context, req Request) (string, error) {
	to, err := s.wallets.Resolve(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("%w: resolve payout address for %s: %v", model.ErrSettlementFailed, req.UserID, err)
	}

	tx, err := s.bound.Transact(s.auth, "mint", to, big.NewInt(req.Amount))
	if err != nil {
		return "", fmt.Errorf("%w: send mint transaction: %v", model.ErrSettlementUnavailable, err)
	}
	log.Printf("settlement: mint tx %s sent (proof=%s amount=%d)", tx.Hash().Hex(), req.ProofID, req.Amount)

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return "", fmt.Errorf("%w: wait for mint tx %s: %v", model.ErrSettlementUnavailable, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%w: mint tx %s reverted", model.ErrSettlementFailed, tx.Hash().Hex())
	}

	if err := s.waitConfirmations(ctx, receipt); err != nil {
		return "", err
	}
	return tx.Hash().Hex(), nil
}

// waitConfirmations blocks until the receipt is buried under the configured
// number of blocks.
func (s *ContractSettler) waitConfirmations(ctx context.Context, receipt *types.Receipt) error {
	if s.confirmations == 0 {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + s.confirmations
	for {
		head, err := s.client.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("%w: poll block number: %v", model.ErrSettlementUnavailable, err)
		}
		if head >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: confirmation wait: %v", model.ErrSettlementUnavailable, ctx.Err())
		case <-time.After(confirmationPollInterval):
		}
	}
}

// TotalSupply returns the token's current total supply.
func (s *ContractSettler) TotalSupply(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := s.bound.Call(&bind.CallOpts{Context: ctx}, &out, "totalSupply"); err != nil {
		return nil, fmt.Errorf("call totalSupply: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// BalanceOf returns the token balance of the account's payout address.
func (s *ContractSettler) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	addr, err := s.wallets.Resolve(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("resolve payout address for %s: %w", account, err)
	}
	var out []interface{}
	if err := s.bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", addr); err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
