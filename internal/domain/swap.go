package domain

import "math/big"

// Token is one side of a liquidity pool. Decimals is nil when the indexer did
// not report it.
type Token struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Decimals *int   `json:"decimals,omitempty"`
}

// PoolInfo describes the two tokens of a pool.
type PoolInfo struct {
	ID     string `json:"id"`
	Tick   string `json:"tick,omitempty"`
	Token0 Token  `json:"token0"`
	Token1 Token  `json:"token1"`
}

// SwapRecord is one AMM swap as reported by the indexer. Only Timestamp and
// SqrtPriceX96 feed the metrics; the remaining fields are carried for
// archiving and downstream consumers.
type SwapRecord struct {
	ID           string   `json:"id"`
	Timestamp    int64    `json:"timestamp"`
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Tick         string   `json:"tick,omitempty"`
	Amount0      string   `json:"amount0,omitempty"`
	Amount1      string   `json:"amount1,omitempty"`
	AmountUSD    string   `json:"amountUSD,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	TxHash       string   `json:"txHash,omitempty"`
	BlockNumber  int64    `json:"blockNumber,omitempty"`
}

// SwapWindow is an ordered (ascending timestamp) run of swaps for one pool.
type SwapWindow struct {
	PoolID string
	Pool   PoolInfo
	Swaps  []SwapRecord
}
