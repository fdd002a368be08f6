package dto

import (
	"github.com/ethereum/go-ethereum/common"
)

// DisperseEthRequest spreads the caller's native balance across recipients.
type DisperseEthRequest struct {
	Caller     common.Address                      `json:"caller" binding:"required"`
	Recipients map[common.Address]FractionOrAmount `json:"recipients" binding:"required"`
}

// DisperseErc20Request spreads tokens the spender approved to the contract
// across recipients. Caller signs; spender supplies the funds.
type DisperseErc20Request struct {
	Caller     common.Address                      `json:"caller" binding:"required"`
	Spender    common.Address                      `json:"spender" binding:"required"`
	Token      common.Address                      `json:"token" binding:"required"`
	Recipients map[common.Address]FractionOrAmount `json:"recipients" binding:"required"`
}

// CollectErc20Request pulls tokens from each approved spender into a single
// recipient. Each spender's spec is evaluated against that spender's own
// balance.
type CollectErc20Request struct {
	Caller    common.Address                      `json:"caller" binding:"required"`
	Recipient common.Address                      `json:"recipient" binding:"required"`
	Token     common.Address                      `json:"token" binding:"required"`
	Spenders  map[common.Address]FractionOrAmount `json:"spenders" binding:"required"`
}

// TransferRequest sends a fixed amount to one recipient, native when token is
// absent, ERC20 otherwise. Only absolute amounts are accepted here.
type TransferRequest struct {
	Caller    common.Address  `json:"caller" binding:"required"`
	Recipient common.Address  `json:"recipient" binding:"required"`
	Token     *common.Address `json:"token,omitempty"`
	Amount    *BigInt         `json:"amount" binding:"required"`
}

// ApproveRequest grants spender a fixed allowance on token.
type ApproveRequest struct {
	Caller  common.Address `json:"caller" binding:"required"`
	Spender common.Address `json:"spender" binding:"required"`
	Token   common.Address `json:"token" binding:"required"`
	Amount  *BigInt        `json:"amount" binding:"required"`
}
