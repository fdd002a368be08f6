// Package contracts holds the static ABI metadata for the on-chain
// collaborators: the deployed DisperseCollect contract and the ERC20
// interface it moves tokens through.
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const disperseCollectABI = `[
	{
		"inputs": [
			{"name": "recipients", "type": "address[]"},
			{"name": "values", "type": "uint256[]"}
		],
		"name": "disperseEth",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "recipients", "type": "address[]"},
			{"name": "values", "type": "uint256[]"}
		],
		"name": "disperseERC20",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "owners", "type": "address[]"},
			{"name": "values", "type": "uint256[]"}
		],
		"name": "collectERC20",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const erc20ABI = `[
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	// DisperseCollect is the parsed ABI of the deployed disperse/collect contract.
	DisperseCollect = mustParse("DisperseCollect", disperseCollectABI)
	// ERC20 is the parsed ABI of the token interface.
	ERC20 = mustParse("ERC20", erc20ABI)
)

func mustParse(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid %s ABI: %v", name, err))
	}
	return parsed
}
