// Package subgraph fetches pool swaps from a Uniswap-style GraphQL indexer.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

// Client is a GraphQL client for a subgraph indexing pool swaps.
type Client struct {
	graphqlURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new subgraph client. A non-positive timeout falls back
// to 30 seconds.
func NewClient(graphqlURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		graphqlURL: graphqlURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// graphqlRequest is the standard GraphQL request envelope.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const swapsQuery = `
	query GetSwaps($poolId: ID!, $timestampGte: Int!, $first: Int!) {
		swaps(
			where: { pool: $poolId, timestamp_gte: $timestampGte }
			orderBy: timestamp
			orderDirection: asc
			first: $first
		) {
			id
			timestamp
			sqrtPriceX96
			tick
			amount0
			amount1
			amountUSD
			origin
			transaction {
				id
				blockNumber
			}
		}
		pool(id: $poolId) {
			id
			tick
			token0 { id symbol decimals }
			token1 { id symbol decimals }
		}
	}
`

type tokenDTO struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals string `json:"decimals"`
}

type swapDTO struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Tick         string `json:"tick"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	AmountUSD    string `json:"amountUSD"`
	Origin       string `json:"origin"`
	Transaction  struct {
		ID          string `json:"id"`
		BlockNumber string `json:"blockNumber"`
	} `json:"transaction"`
}

type poolDTO struct {
	ID     string   `json:"id"`
	Tick   string   `json:"tick"`
	Token0 tokenDTO `json:"token0"`
	Token1 tokenDTO `json:"token1"`
}

// FetchPoolSwaps returns up to first swaps of poolID at or after since, in
// ascending timestamp order, together with the pool's token metadata. It
// returns domain.ErrNotFound when the indexer does not know the pool.
func (c *Client) FetchPoolSwaps(ctx context.Context, poolID string, since time.Time, first int) (domain.SwapWindow, error) {
	variables := map[string]any{
		"poolId":       poolID,
		"timestampGte": since.Unix(),
		"first":        first,
	}

	respData, err := c.doQuery(ctx, swapsQuery, variables)
	if err != nil {
		return domain.SwapWindow{}, fmt.Errorf("subgraph: fetch pool swaps: %w", err)
	}

	var result struct {
		Swaps []swapDTO `json:"swaps"`
		Pool  *poolDTO  `json:"pool"`
	}
	if err := json.Unmarshal(respData, &result); err != nil {
		return domain.SwapWindow{}, fmt.Errorf("subgraph: decode pool swaps: %w", err)
	}
	if result.Pool == nil {
		return domain.SwapWindow{}, fmt.Errorf("subgraph: pool %s: %w", poolID, domain.ErrNotFound)
	}

	pool, err := decodePool(*result.Pool)
	if err != nil {
		return domain.SwapWindow{}, fmt.Errorf("subgraph: pool %s: %w", poolID, err)
	}

	swaps := make([]domain.SwapRecord, 0, len(result.Swaps))
	for _, s := range result.Swaps {
		rec, err := decodeSwap(s)
		if err != nil {
			return domain.SwapWindow{}, fmt.Errorf("subgraph: pool %s: %w", poolID, err)
		}
		swaps = append(swaps, rec)
	}

	return domain.SwapWindow{PoolID: poolID, Pool: pool, Swaps: swaps}, nil
}

// FetchLatestBlock returns the latest block number indexed by the subgraph.
// This is useful for monitoring indexing lag.
func (c *Client) FetchLatestBlock(ctx context.Context) (int64, error) {
	query := `
		query LatestBlock {
			_meta {
				block {
					number
				}
			}
		}
	`

	respData, err := c.doQuery(ctx, query, nil)
	if err != nil {
		return 0, fmt.Errorf("subgraph: fetch latest block: %w", err)
	}

	var result struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}

	if err := json.Unmarshal(respData, &result); err != nil {
		return 0, fmt.Errorf("subgraph: decode latest block: %w", err)
	}

	return result.Meta.Block.Number, nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

func decodeSwap(s swapDTO) (domain.SwapRecord, error) {
	ts, err := strconv.ParseInt(s.Timestamp, 10, 64)
	if err != nil {
		return domain.SwapRecord{}, fmt.Errorf("swap %s: timestamp %q: %w", s.ID, s.Timestamp, err)
	}
	sqrtPrice, ok := new(big.Int).SetString(s.SqrtPriceX96, 10)
	if !ok {
		return domain.SwapRecord{}, fmt.Errorf("swap %s: sqrtPriceX96 %q is not an integer", s.ID, s.SqrtPriceX96)
	}

	var block int64
	if s.Transaction.BlockNumber != "" {
		block, err = strconv.ParseInt(s.Transaction.BlockNumber, 10, 64)
		if err != nil {
			return domain.SwapRecord{}, fmt.Errorf("swap %s: block number %q: %w", s.ID, s.Transaction.BlockNumber, err)
		}
	}

	return domain.SwapRecord{
		ID:           s.ID,
		Timestamp:    ts,
		SqrtPriceX96: sqrtPrice,
		Tick:         s.Tick,
		Amount0:      s.Amount0,
		Amount1:      s.Amount1,
		AmountUSD:    s.AmountUSD,
		Origin:       s.Origin,
		TxHash:       s.Transaction.ID,
		BlockNumber:  block,
	}, nil
}

func decodePool(p poolDTO) (domain.PoolInfo, error) {
	t0, err := decodeToken(p.Token0)
	if err != nil {
		return domain.PoolInfo{}, err
	}
	t1, err := decodeToken(p.Token1)
	if err != nil {
		return domain.PoolInfo{}, err
	}
	return domain.PoolInfo{ID: p.ID, Tick: p.Tick, Token0: t0, Token1: t1}, nil
}

// decodeToken leaves Decimals nil when the indexer reports none, so the
// engine can substitute its defaults.
func decodeToken(t tokenDTO) (domain.Token, error) {
	tok := domain.Token{ID: t.ID, Symbol: t.Symbol}
	if strings.TrimSpace(t.Decimals) == "" {
		return tok, nil
	}
	d, err := strconv.Atoi(strings.TrimSpace(t.Decimals))
	if err != nil {
		return domain.Token{}, fmt.Errorf("token %s: decimals %q: %w", t.Symbol, t.Decimals, err)
	}
	tok.Decimals = &d
	return tok, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doQuery executes a GraphQL query against the subgraph endpoint and returns
// the raw "data" field from the response.
func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query:     query,
		Variables: variables,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}
