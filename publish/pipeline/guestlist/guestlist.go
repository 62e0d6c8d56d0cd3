// Package guestlist attaches a capped guest list to a freshly deployed sett.
// It plugs into the pipeline as a hook and is off unless configured.
package guestlist

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/guestlist"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/sett"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/pipeline"
)

type Hook struct {
	// Artifact is the compiled guest list contract name.
	Artifact   string
	DepositCap *big.Int
}

var _ pipeline.Hook = (*Hook)(nil)

func New(artifact string, depositCap *big.Int) *Hook {
	return &Hook{Artifact: artifact, DepositCap: depositCap}
}

func (h *Hook) Name() string { return "guest-list" }

// Apply deploys the guest list for the vault, admits the deployer, caps
// per-user deposits and installs the list on the vault under governance.
func (h *Hook) Apply(ctx context.Context, env *pipeline.Env, st *pipeline.State) error {
	lgr := env.Logger.New("stage", h.Name())
	d := env.Deployer

	initData, err := guestlist.EncodeInit(guestlist.InitArgs{Wrapper: st.Vault})
	if err != nil {
		return fmt.Errorf("encode guest list init: %w", err)
	}
	addr, err := pipeline.DeployInitialized(ctx, env, st, h.Artifact, guestlist.ImplGasLimit, initData)
	if err != nil {
		return err
	}
	st.GuestList = addr
	lgr.Info("Guest list deployed", "address", addr)

	setGuests, err := guestlist.EncodeSetGuests([]common.Address{st.Deployer.Address()}, []bool{true})
	if err != nil {
		return fmt.Errorf("encode setGuests: %w", err)
	}
	if _, err := d.Transact(ctx, st.Deployer, addr, nil, setGuests, guestlist.CallGasLimit); err != nil {
		return fmt.Errorf("set guests: %w", err)
	}

	setCap, err := guestlist.EncodeSetUserDepositCap(h.DepositCap)
	if err != nil {
		return fmt.Errorf("encode setUserDepositCap: %w", err)
	}
	if _, err := d.Transact(ctx, st.Deployer, addr, nil, setCap, guestlist.CallGasLimit); err != nil {
		return fmt.Errorf("set user deposit cap: %w", err)
	}

	setList, err := sett.EncodeSetGuestList(addr)
	if err != nil {
		return fmt.Errorf("encode setGuestList: %w", err)
	}
	if _, err := d.Transact(ctx, st.Governance, st.Vault, nil, setList, sett.CallGasLimit); err != nil {
		return fmt.Errorf("install guest list: %w", err)
	}
	lgr.Info("Guest list installed", "cap", h.DepositCap)
	return nil
}
