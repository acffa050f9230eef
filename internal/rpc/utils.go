package rpc

const (
	DEFAULT_BLOCKS_PER_REQUEST = 50
	DEFAULT_LOOKBACK_BLOCKS    = 500
	DEFAULT_RECEIPTS_PER_BATCH = 100
)
