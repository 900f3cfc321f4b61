package model

// Decode stages reported with a DecodeError.
const (
	StageJSON   = "json"
	StageTopics = "topics"
	StageDecode = "decode"
)

// DecodeError is one archived line that could not become an event. Records
// that failed before parsing carry only Stage and Error.
type DecodeError struct {
	Stage       string `json:"stage"`
	ChainID     uint64 `json:"chain_id,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	LogIndex    uint64 `json:"log_index,omitempty"`
	Address     string `json:"address,omitempty"`
	Topic0      string `json:"topic0,omitempty"`
	Error       string `json:"error"`
}

// NewDecodeError describes a record that failed at stage.
func NewDecodeError(record LogRecord, stage string, err error) DecodeError {
	return DecodeError{
		Stage:       stage,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
}
