package erc1967factory

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

var funcAdminOf = w3.MustNewFunc("adminOf(address)", "address")

// Factory is a handle on an already deployed ERC1967Factory.
type Factory struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *Factory {
	return &Factory{Address: addr, caller: caller}
}

func (f *Factory) AdminOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	var admin common.Address
	if err := f.caller.Call(ctx, f.Address, funcAdminOf, []any{proxy}, &admin); err != nil {
		return common.Address{}, fmt.Errorf("adminOf %s: %w", proxy.Hex(), err)
	}
	return admin, nil
}
