package router

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"
)

const (
	SwapGasLimit      = 300_000
	LiquidityGasLimit = 400_000
)

var (
	funcSwapExactETHForTokens = w3.MustNewFunc(
		"swapExactETHForTokens(uint256,address[],address,uint256)", "uint256[]",
	)
	funcAddLiquidity = w3.MustNewFunc(
		"addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)",
		"uint256,uint256,uint256",
	)
)

type SwapArgs struct {
	AmountOutMin *big.Int
	Path         []common.Address
	To           common.Address
	Deadline     *big.Int
}

type LiquidityArgs struct {
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             common.Address
	Deadline       *big.Int
}

func EncodeSwapExactETHForTokens(args SwapArgs) ([]byte, error) {
	return funcSwapExactETHForTokens.EncodeArgs(args.AmountOutMin, args.Path, args.To, args.Deadline)
}

func EncodeAddLiquidity(args LiquidityArgs) ([]byte, error) {
	return funcAddLiquidity.EncodeArgs(
		args.TokenA,
		args.TokenB,
		args.AmountADesired,
		args.AmountBDesired,
		args.AmountAMin,
		args.AmountBMin,
		args.To,
		args.Deadline,
	)
}
