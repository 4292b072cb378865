package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	walletCacheSize      = 1024
	walletRequestTimeout = 10 * time.Second
)

// WalletResolver maps user identifiers to payout addresses via the wallet
// service, with an LRU cache in front. User ids that are already hex
// addresses resolve without a lookup.
type WalletResolver struct {
	endpoint string
	client   *http.Client
	cache    *lru.Cache[string, common.Address]
}

// NewWalletResolver creates a resolver. endpoint may be empty, in which case
// only address-shaped user ids can be resolved.
func NewWalletResolver(endpoint string) (*WalletResolver, error) {
	cache, err := lru.New[string, common.Address](walletCacheSize)
	if err != nil {
		return nil, err
	}
	return &WalletResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: walletRequestTimeout},
		cache:    cache,
	}, nil
}

// Resolve returns the payout address for a user id.
func (r *WalletResolver) Resolve(ctx context.Context, userID string) (common.Address, error) {
	if common.IsHexAddress(userID) {
		return common.HexToAddress(userID), nil
	}
	if addr, ok := r.cache.Get(userID); ok {
		return addr, nil
	}
	if r.endpoint == "" {
		return common.Address{}, fmt.Errorf("no wallet service configured and %q is not an address", userID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/api/wallets/"+userID, nil)
	if err != nil {
		return common.Address{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return common.Address{}, fmt.Errorf("wallet service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return common.Address{}, fmt.Errorf("wallet service returned status %d for %s", resp.StatusCode, userID)
	}

	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return common.Address{}, fmt.Errorf("malformed wallet service response: %w", err)
	}
	if !common.IsHexAddress(body.Address) {
		return common.Address{}, fmt.Errorf("wallet service returned invalid address %q for %s", body.Address, userID)
	}

	addr := common.HexToAddress(body.Address)
	r.cache.Add(userID, addr)
	return addr, nil
}
