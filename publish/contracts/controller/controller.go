package controller

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

const (
	name         = "Controller"
	ImplGasLimit = 4_000_000
	CallGasLimit = 300_000
)

var (
	funcInitialize = w3.MustNewFunc(
		"initialize(address,address,address,address)", "",
	)
	funcSetVault        = w3.MustNewFunc("setVault(address,address)", "")
	funcApproveStrategy = w3.MustNewFunc("approveStrategy(address,address)", "")
	funcSetStrategy     = w3.MustNewFunc("setStrategy(address,address)", "")

	funcGovernance         = w3.MustNewFunc("governance()", "address")
	funcStrategist         = w3.MustNewFunc("strategist()", "address")
	funcVaults             = w3.MustNewFunc("vaults(address)", "address")
	funcStrategies         = w3.MustNewFunc("strategies(address)", "address")
	funcApprovedStrategies = w3.MustNewFunc("approvedStrategies(address,address)", "bool")
)

type InitArgs struct {
	Governance common.Address
	Strategist common.Address
	Keeper     common.Address
	Rewards    common.Address
}

func Name() string { return name }

func EncodeInit(args InitArgs) ([]byte, error) {
	return funcInitialize.EncodeArgs(args.Governance, args.Strategist, args.Keeper, args.Rewards)
}

func EncodeSetVault(token, vault common.Address) ([]byte, error) {
	return funcSetVault.EncodeArgs(token, vault)
}

func EncodeApproveStrategy(token, strategy common.Address) ([]byte, error) {
	return funcApproveStrategy.EncodeArgs(token, strategy)
}

func EncodeSetStrategy(token, strategy common.Address) ([]byte, error) {
	return funcSetStrategy.EncodeArgs(token, strategy)
}

// Controller is a read handle on a deployed controller.
type Controller struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *Controller {
	return &Controller{Address: addr, caller: caller}
}

func (c *Controller) Governance(ctx context.Context) (common.Address, error) {
	var out common.Address
	err := c.caller.Call(ctx, c.Address, funcGovernance, nil, &out)
	return out, err
}

func (c *Controller) Strategist(ctx context.Context) (common.Address, error) {
	var out common.Address
	err := c.caller.Call(ctx, c.Address, funcStrategist, nil, &out)
	return out, err
}

func (c *Controller) Vault(ctx context.Context, token common.Address) (common.Address, error) {
	var out common.Address
	err := c.caller.Call(ctx, c.Address, funcVaults, []any{token}, &out)
	return out, err
}

func (c *Controller) Strategy(ctx context.Context, token common.Address) (common.Address, error) {
	var out common.Address
	err := c.caller.Call(ctx, c.Address, funcStrategies, []any{token}, &out)
	return out, err
}

func (c *Controller) IsApproved(ctx context.Context, token, strategy common.Address) (bool, error) {
	var out bool
	err := c.caller.Call(ctx, c.Address, funcApprovedStrategies, []any{token, strategy}, &out)
	return out, err
}
