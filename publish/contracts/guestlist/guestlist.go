package guestlist

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

const (
	name         = "VipCappedGuestListWrapperUpgradeable"
	ImplGasLimit = 3_000_000
	CallGasLimit = 200_000
)

var (
	funcInitialize        = w3.MustNewFunc("initialize(address)", "")
	funcSetGuests         = w3.MustNewFunc("setGuests(address[],bool[])", "")
	funcSetUserDepositCap = w3.MustNewFunc("setUserDepositCap(uint256)", "")

	funcWrapper        = w3.MustNewFunc("wrapper()", "address")
	funcGuests         = w3.MustNewFunc("guests(address)", "bool")
	funcUserDepositCap = w3.MustNewFunc("userDepositCap()", "uint256")
)

type InitArgs struct {
	Wrapper common.Address
}

func Name() string { return name }

func EncodeInit(args InitArgs) ([]byte, error) {
	return funcInitialize.EncodeArgs(args.Wrapper)
}

func EncodeSetGuests(guests []common.Address, invited []bool) ([]byte, error) {
	return funcSetGuests.EncodeArgs(guests, invited)
}

func EncodeSetUserDepositCap(limit *big.Int) ([]byte, error) {
	return funcSetUserDepositCap.EncodeArgs(limit)
}

type GuestList struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *GuestList {
	return &GuestList{Address: addr, caller: caller}
}

func (g *GuestList) Wrapper(ctx context.Context) (common.Address, error) {
	var out common.Address
	err := g.caller.Call(ctx, g.Address, funcWrapper, nil, &out)
	return out, err
}

func (g *GuestList) IsGuest(ctx context.Context, account common.Address) (bool, error) {
	var out bool
	err := g.caller.Call(ctx, g.Address, funcGuests, []any{account}, &out)
	return out, err
}

func (g *GuestList) UserDepositCap(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	if err := g.caller.Call(ctx, g.Address, funcUserDepositCap, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
