package model

import "fmt"

// LogRecord is an archived chain log with the block and transaction context
// the handlers need. Hashes and addresses are 0x-prefixed hex.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxFrom      string   `json:"tx_from"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// LogKey identifies a log within its chain.
func LogKey(block uint64, txHash string, logIndex uint64) string {
	return fmt.Sprintf("%d:%s:%d", block, txHash, logIndex)
}

func (lr LogRecord) Key() string {
	return LogKey(lr.BlockNumber, lr.TxHash, lr.LogIndex)
}

// Topic0 returns the event signature topic, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// After reports whether lr comes strictly later in chain order than other.
func (lr LogRecord) After(other LogRecord) bool {
	if lr.BlockNumber != other.BlockNumber {
		return lr.BlockNumber > other.BlockNumber
	}
	return lr.LogIndex > other.LogIndex
}
