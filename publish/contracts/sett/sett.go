package sett

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

const (
	name         = "SettV4"
	ImplGasLimit = 6_000_000
	CallGasLimit = 200_000
)

var (
	funcInitialize = w3.MustNewFunc(
		"initialize(address,address,address,address,address,bool,string,string)", "",
	)
	funcUnpause      = w3.MustNewFunc("unpause()", "")
	funcSetGuestList = w3.MustNewFunc("setGuestList(address)", "")

	funcToken      = w3.MustNewFunc("token()", "address")
	funcController = w3.MustNewFunc("controller()", "address")
	funcGovernance = w3.MustNewFunc("governance()", "address")
	funcPaused     = w3.MustNewFunc("paused()", "bool")
	funcGuestList  = w3.MustNewFunc("guestList()", "address")
)

type InitArgs struct {
	Token             common.Address
	Controller        common.Address
	Governance        common.Address
	Keeper            common.Address
	Guardian          common.Address
	OverrideTokenName bool
	NamePrefix        string
	SymbolPrefix      string
}

func Name() string { return name }

func EncodeInit(args InitArgs) ([]byte, error) {
	return funcInitialize.EncodeArgs(
		args.Token,
		args.Controller,
		args.Governance,
		args.Keeper,
		args.Guardian,
		args.OverrideTokenName,
		args.NamePrefix,
		args.SymbolPrefix,
	)
}

func EncodeUnpause() ([]byte, error) {
	return funcUnpause.EncodeArgs()
}

func EncodeSetGuestList(guestList common.Address) ([]byte, error) {
	return funcSetGuestList.EncodeArgs(guestList)
}

// Sett is a read handle on a deployed vault.
type Sett struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *Sett {
	return &Sett{Address: addr, caller: caller}
}

func (s *Sett) Token(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcToken)
}

func (s *Sett) Controller(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcController)
}

func (s *Sett) Governance(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcGovernance)
}

func (s *Sett) GuestList(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcGuestList)
}

func (s *Sett) Paused(ctx context.Context) (bool, error) {
	var out bool
	err := s.caller.Call(ctx, s.Address, funcPaused, nil, &out)
	return out, err
}

func (s *Sett) address(ctx context.Context, f *w3.Func) (common.Address, error) {
	var out common.Address
	err := s.caller.Call(ctx, s.Address, f, nil, &out)
	return out, err
}
