package dto

import (
	"github.com/ethereum/go-ethereum/common"
)

// TransactionResponse carries the identifier of a submitted transaction.
type TransactionResponse struct {
	TxHash common.Hash `json:"txHash"`
}

// DisperseCollectResponse is the common success shape for the batch
// endpoints: the submitted transaction plus the resolved per-address amounts,
// keyed by checksummed recipient address.
type DisperseCollectResponse struct {
	Tx        TransactionResponse `json:"tx"`
	Transfers map[string]string   `json:"transfers"`
}

// ErrorResponse is the common failure shape.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
