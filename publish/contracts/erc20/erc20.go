package erc20

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

const ApproveGasLimit = 100_000

var (
	funcBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")
	funcAllowance = w3.MustNewFunc("allowance(address,address)", "uint256")
	funcApprove   = w3.MustNewFunc("approve(address,uint256)", "bool")
)

func EncodeApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return funcApprove.EncodeArgs(spender, amount)
}

// Token is a read-only view over an externally owned ERC20 contract.
type Token struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *Token {
	return &Token{Address: addr, caller: caller}
}

func (t *Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := t.caller.Call(ctx, t.Address, funcBalanceOf, []any{owner}, &balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (t *Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := t.caller.Call(ctx, t.Address, funcAllowance, []any{owner, spender}, &allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}
