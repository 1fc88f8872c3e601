package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NormalizePoolID validates a pool identifier and returns it in the lowercase
// 0x form the subgraph indexes by. Uniswap v4 pools are keyed by a 32-byte
// pool id, earlier versions by a 20-byte contract address; both are accepted.
func NormalizePoolID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if common.IsHexAddress(id) {
		return strings.ToLower(common.HexToAddress(id).Hex()), nil
	}
	b, err := hexutil.Decode(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidPoolID, id, err)
	}
	if len(b) != common.HashLength {
		return "", fmt.Errorf("%w %q: expected %d or %d bytes, got %d",
			ErrInvalidPoolID, id, common.AddressLength, common.HashLength, len(b))
	}
	return common.BytesToHash(b).Hex(), nil
}
