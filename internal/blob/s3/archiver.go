package s3blob

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/akbaridria/obrix/internal/domain"
)

// csvHeader lists the columns of an archived swap window.
var csvHeader = []string{
	"id", "timestamp", "block_number", "tx_hash", "sqrt_price_x96",
	"tick", "amount0", "amount1", "amount_usd", "origin",
}

// WindowArchiver uploads the raw swaps behind each metrics computation as a
// CSV object, so any persisted metrics row can be recomputed later.
type WindowArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewWindowArchiver creates a WindowArchiver writing under prefix.
func NewWindowArchiver(writer domain.BlobWriter, prefix string) *WindowArchiver {
	return &WindowArchiver{
		writer: writer,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Archive encodes window as CSV and uploads it with the pool id, swap
// count and time range as object metadata. It returns the object key.
// Empty windows are skipped and return "".
func (a *WindowArchiver) Archive(ctx context.Context, src domain.Source, window domain.SwapWindow, at time.Time) (string, error) {
	if len(window.Swaps) == 0 {
		return "", nil
	}

	buf, err := encodeWindowCSV(window.Swaps)
	if err != nil {
		return "", fmt.Errorf("s3blob: encode window %s: %w", window.PoolID, err)
	}

	key := WindowPath(a.prefix, src, window.PoolID, at)
	err = a.writer.Put(ctx, key, bytes.NewReader(buf), domain.PutOptions{
		ContentType: "text/csv",
		Size:        int64(len(buf)),
		Metadata: map[string]string{
			"pool-id":    strings.ToLower(window.PoolID),
			"swap-count": strconv.Itoa(len(window.Swaps)),
			"first-ts":   strconv.FormatInt(window.Swaps[0].Timestamp, 10),
			"last-ts":    strconv.FormatInt(window.Swaps[len(window.Swaps)-1].Timestamp, 10),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive window %s: %w", window.PoolID, err)
	}
	return key, nil
}

// PoolPrefix is the key prefix under which all windows of one pool live.
//
//	windows/uniswap/ethereum/v4/0xabc.../
func PoolPrefix(prefix string, src domain.Source, poolID string) string {
	return path.Join(prefix, src.Protocol, src.Chain, src.Version, strings.ToLower(poolID)) + "/"
}

// WindowPath builds the object key of one archived window, partitioned by
// UTC day.
//
//	windows/uniswap/ethereum/v4/0xabc.../2026-01-02/1767323045.csv
func WindowPath(prefix string, src domain.Source, poolID string, at time.Time) string {
	at = at.UTC()
	return PoolPrefix(prefix, src, poolID) + at.Format("2006-01-02") + "/" + strconv.FormatInt(at.Unix(), 10) + ".csv"
}

// encodeWindowCSV renders swaps in order, one row per swap.
func encodeWindowCSV(swaps []domain.SwapRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i, s := range swaps {
		sqrtPrice := ""
		if s.SqrtPriceX96 != nil {
			sqrtPrice = s.SqrtPriceX96.String()
		}
		row := []string{
			s.ID,
			strconv.FormatInt(s.Timestamp, 10),
			strconv.FormatInt(s.BlockNumber, 10),
			s.TxHash,
			sqrtPrice,
			s.Tick,
			s.Amount0,
			s.Amount1,
			s.AmountUSD,
			s.Origin,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv encode swap %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
