package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akbaridria/obrix/internal/domain"
)

const poolID = "0x21c67e77068de97969ba93d4aab21826d33ca12bb9f565d8496e8fda8a82ca27"

func newServer(t *testing.T, handler func(t *testing.T, req graphqlRequest, r *http.Request) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req graphqlRequest
		require.NoError(t, json.Unmarshal(body, &req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, handler(t, req, r))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPoolSwaps_DecodesWindow(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)
	srv := newServer(t, func(t *testing.T, req graphqlRequest, r *http.Request) string {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, poolID, req.Variables["poolId"])
		assert.Equal(t, float64(since.Unix()), req.Variables["timestampGte"])
		assert.Equal(t, float64(1000), req.Variables["first"])
		return `{"data":{
			"swaps":[
				{"id":"s1","timestamp":"1700000010","sqrtPriceX96":"1771595571142957102961017161607260","tick":"-195000",
				 "amount0":"-1.5","amount1":"3000","amountUSD":"3000","origin":"0xabc",
				 "transaction":{"id":"0xtx1","blockNumber":"19000000"}},
				{"id":"s2","timestamp":"1700000070","sqrtPriceX96":"1771595571142957102961017161607261",
				 "transaction":{"id":"0xtx2","blockNumber":""}}
			],
			"pool":{"id":"` + poolID + `","tick":"-195000",
				"token0":{"id":"0xe","symbol":"WETH","decimals":"18"},
				"token1":{"id":"0xu","symbol":"USDC","decimals":""}}
		}}`
	})

	c := NewClient(srv.URL, " secret ", time.Second)
	window, err := c.FetchPoolSwaps(context.Background(), poolID, since, 1000)
	require.NoError(t, err)

	assert.Equal(t, poolID, window.PoolID)
	assert.Equal(t, "WETH", window.Pool.Token0.Symbol)
	require.NotNil(t, window.Pool.Token0.Decimals)
	assert.Equal(t, 18, *window.Pool.Token0.Decimals)
	assert.Nil(t, window.Pool.Token1.Decimals)

	require.Len(t, window.Swaps, 2)
	first := window.Swaps[0]
	assert.Equal(t, int64(1700000010), first.Timestamp)
	assert.Equal(t, "1771595571142957102961017161607260", first.SqrtPriceX96.String())
	assert.Equal(t, "0xtx1", first.TxHash)
	assert.Equal(t, int64(19000000), first.BlockNumber)
	assert.Equal(t, int64(0), window.Swaps[1].BlockNumber)
}

func TestFetchPoolSwaps_UnknownPool(t *testing.T) {
	srv := newServer(t, func(*testing.T, graphqlRequest, *http.Request) string {
		return `{"data":{"swaps":[],"pool":null}}`
	})

	_, err := NewClient(srv.URL, "", 0).FetchPoolSwaps(context.Background(), poolID, time.Now(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFetchPoolSwaps_MalformedPrice(t *testing.T) {
	srv := newServer(t, func(*testing.T, graphqlRequest, *http.Request) string {
		return `{"data":{
			"swaps":[{"id":"s1","timestamp":"1","sqrtPriceX96":"12e5","transaction":{"id":"0x"}}],
			"pool":{"id":"p","token0":{"symbol":"A"},"token1":{"symbol":"B"}}
		}}`
	})

	_, err := NewClient(srv.URL, "", 0).FetchPoolSwaps(context.Background(), poolID, time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqrtPriceX96")
}

func TestFetchPoolSwaps_GraphQLError(t *testing.T) {
	srv := newServer(t, func(*testing.T, graphqlRequest, *http.Request) string {
		return `{"errors":[{"message":"indexer unavailable"}]}`
	})

	_, err := NewClient(srv.URL, "", 0).FetchPoolSwaps(context.Background(), poolID, time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer unavailable")
}

func TestFetchPoolSwaps_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).FetchPoolSwaps(context.Background(), poolID, time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestFetchLatestBlock(t *testing.T) {
	srv := newServer(t, func(*testing.T, graphqlRequest, *http.Request) string {
		return `{"data":{"_meta":{"block":{"number":21000000}}}}`
	})

	n, err := NewClient(srv.URL, "", 0).FetchLatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(21000000), n)
}
