package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletResolverPassesThroughAddresses(t *testing.T) {
	resolver, err := NewWalletResolver("")
	require.NoError(t, err)

	addr, err := resolver.Resolve(context.Background(), "0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72"), addr)
}

func TestWalletResolverLooksUpAndCaches(t *testing.T) {
	lookups := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		assert.Equal(t, "/api/wallets/alice", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"address": "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
		})
	}))
	defer srv.Close()

	resolver, err := NewWalletResolver(srv.URL)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		addr, err := resolver.Resolve(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72"), addr)
	}
	assert.Equal(t, 1, lookups, "repeat resolutions should hit the cache")
}

func TestWalletResolverRejectsBadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"invalid address", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"address": "not-an-address"})
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("oops"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			resolver, err := NewWalletResolver(srv.URL)
			require.NoError(t, err)

			_, err = resolver.Resolve(context.Background(), "bob")
			assert.Error(t, err)
		})
	}
}

func TestWalletResolverWithoutService(t *testing.T) {
	resolver, err := NewWalletResolver("")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "alice")
	assert.Error(t, err)
}
