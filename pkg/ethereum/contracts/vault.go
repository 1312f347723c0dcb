// Package contracts holds the ABI metadata for the contracts read by the ETL.
package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Method names read from the contracts.
const (
	MethodTotalAssets = "totalAssets"
	MethodTotalSupply = "totalSupply"
	MethodAsset       = "asset"
	MethodDecimals    = "decimals"
	MethodBalanceOf   = "balanceOf"
)

// ERC4626MetaData contains the view subset of the ERC-4626 tokenized vault interface.
var ERC4626MetaData = &bind.MetaData{
	ABI: `[
		{"inputs":[],"name":"totalAssets","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"totalSupply","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"asset","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
	]`,
}

// ERC20MetaData contains the ERC-20 methods used on the underlying asset.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
		{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
		{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
	]`,
}

// ERC4626 returns the parsed vault ABI.
func ERC4626() (*abi.ABI, error) {
	return ERC4626MetaData.GetAbi()
}

// ERC20 returns the parsed ERC-20 ABI.
func ERC20() (*abi.ABI, error) {
	return ERC20MetaData.GetAbi()
}
