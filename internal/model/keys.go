package model

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressKey is the lowercase hex form of an address.
func AddressKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ConcatKey hex encodes the concatenation of byte strings.
func ConcatKey(parts ...[]byte) string {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return hexutil.Encode(buf)
}

func PoolTokenKey(pool, token common.Address) string {
	return ConcatKey(pool.Bytes(), token.Bytes())
}

func PoolShareKey(pool, user common.Address) string {
	return AddressKey(pool) + "-" + AddressKey(user)
}

func RateProviderKey(pool, token, provider common.Address) string {
	return ConcatKey(pool.Bytes(), token.Bytes(), provider.Bytes())
}

func BufferShareKey(wrapped, user common.Address) string {
	return ConcatKey(wrapped.Bytes(), user.Bytes())
}

func HookConfigKey(hook, pool common.Address) string {
	return ConcatKey(hook.Bytes(), pool.Bytes())
}

// EventKey identifies a per-log record: tx hash followed by the log index as
// a little-endian int32.
func EventKey(txHash common.Hash, logIndex uint64) string {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], uint32(int32(logIndex)))
	return ConcatKey(txHash.Bytes(), idx[:])
}

func SnapshotKey(pool common.Address, dayTimestamp int64) string {
	return AddressKey(pool) + "-" + strconv.FormatInt(dayTimestamp, 10)
}

// PoolAddressFromID extracts the pool address from a v2 pool id (first 20 bytes).
func PoolAddressFromID(poolID common.Hash) common.Address {
	return common.BytesToAddress(poolID[:common.AddressLength])
}
