package pipeline

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/controller"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/erc20"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/guestlist"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/sett"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/strategy"
)

// Handle names used by Bundle.Handles and FromHandles.
const (
	HandleDeployer    = "deployer"
	HandleGovernance  = "governance"
	HandleController  = "controller"
	HandleVault       = "vault"
	HandleSett        = "sett"
	HandleStrategy    = "strategy"
	HandleGuestList   = "guestList"
	HandleWant        = "want"
	HandleRewardToken = "rewardToken"
	HandleWETH        = "weth"
	HandleRouter      = "router"
)

// ImplementationPrefix marks the handles of implementations sitting behind
// proxies, keyed by artifact name, e.g. "implementation:SettV4".
const ImplementationPrefix = "implementation:"

// Bundle holds the handles to everything a deployment produced.
type Bundle struct {
	Deployer   common.Address
	Governance common.Address

	Controller *controller.Controller
	Vault      *sett.Sett
	Strategy   *strategy.Strategy
	GuestList  *guestlist.GuestList

	Want        *erc20.Token
	RewardToken *erc20.Token
	WETH        *erc20.Token
	Router      common.Address

	// Implementations maps artifact names to the logic contracts behind the
	// proxies. Empty for plain deployments.
	Implementations map[string]common.Address

	InitialWantBalance *big.Int
}

func NewBundle(caller publish.Caller, st *State, want common.Address) *Bundle {
	b := &Bundle{
		Deployer:    st.Deployer.Address(),
		Governance:  st.Governance.Address(),
		Controller:  controller.At(st.Controller, caller),
		Vault:       sett.At(st.Vault, caller),
		Strategy:    strategy.At(st.Strategy, caller),
		Want:        erc20.At(want, caller),
		RewardToken: erc20.At(st.RewardToken, caller),
		WETH:        erc20.At(st.WETH, caller),
		Router:      st.Router,

		Implementations: make(map[string]common.Address, len(st.Implementations)),
	}
	for name, addr := range st.Implementations {
		b.Implementations[name] = addr
	}
	if st.GuestList != (common.Address{}) {
		b.GuestList = guestlist.At(st.GuestList, caller)
	}
	return b
}

// Sett is the historical name of the vault.
func (b *Bundle) Sett() *sett.Sett {
	return b.Vault
}

// Handles flattens the bundle into a name to address mapping. The vault is
// listed under both "vault" and "sett". Implementations are listed under
// ImplementationPrefix followed by their artifact name.
func (b *Bundle) Handles() map[string]common.Address {
	out := map[string]common.Address{
		HandleDeployer:    b.Deployer,
		HandleGovernance:  b.Governance,
		HandleController:  b.Controller.Address,
		HandleVault:       b.Vault.Address,
		HandleSett:        b.Vault.Address,
		HandleStrategy:    b.Strategy.Address,
		HandleWant:        b.Want.Address,
		HandleRewardToken: b.RewardToken.Address,
		HandleWETH:        b.WETH.Address,
		HandleRouter:      b.Router,
	}
	if b.GuestList != nil {
		out[HandleGuestList] = b.GuestList.Address
	}
	for name, addr := range b.Implementations {
		out[ImplementationPrefix+name] = addr
	}
	return out
}

// FromHandles rebuilds a bundle from a mapping produced by Handles.
func FromHandles(handles map[string]common.Address, caller publish.Caller) (*Bundle, error) {
	for _, key := range []string{HandleDeployer, HandleController, HandleVault, HandleStrategy, HandleWant, HandleRewardToken} {
		if handles[key] == (common.Address{}) {
			return nil, fmt.Errorf("handle %q missing", key)
		}
	}
	b := &Bundle{
		Deployer:    handles[HandleDeployer],
		Governance:  handles[HandleGovernance],
		Controller:  controller.At(handles[HandleController], caller),
		Vault:       sett.At(handles[HandleVault], caller),
		Strategy:    strategy.At(handles[HandleStrategy], caller),
		Want:        erc20.At(handles[HandleWant], caller),
		RewardToken: erc20.At(handles[HandleRewardToken], caller),
		WETH:        erc20.At(handles[HandleWETH], caller),
		Router:      handles[HandleRouter],

		Implementations: map[string]common.Address{},
	}
	if addr, ok := handles[HandleGuestList]; ok && addr != (common.Address{}) {
		b.GuestList = guestlist.At(addr, caller)
	}
	for key, addr := range handles {
		if name, ok := strings.CutPrefix(key, ImplementationPrefix); ok && name != "" {
			b.Implementations[name] = addr
		}
	}
	return b, nil
}

// CheckWantBalance enforces that the deployer ended up holding want.
func CheckWantBalance(ctx context.Context, b *Bundle) (*big.Int, error) {
	balance, err := b.Want.BalanceOf(ctx, b.Deployer)
	if err != nil {
		return nil, err
	}
	if balance.Sign() <= 0 {
		return nil, fmt.Errorf("want balance of %s is %s: %w", b.Deployer.Hex(), balance, publish.ErrPostCondition)
	}
	return balance, nil
}

// Verify re-reads the wiring from chain: the vault points at the controller,
// the controller routes want to the vault and to the approved strategy, the
// vault is unpaused and the deployer holds want.
func Verify(ctx context.Context, b *Bundle) error {
	want := b.Want.Address

	vaultController, err := b.Vault.Controller(ctx)
	if err != nil {
		return err
	}
	if vaultController != b.Controller.Address {
		return mismatch("sett controller", vaultController, b.Controller.Address)
	}

	vault, err := b.Controller.Vault(ctx, want)
	if err != nil {
		return err
	}
	if vault != b.Vault.Address {
		return mismatch("controller vault", vault, b.Vault.Address)
	}

	strat, err := b.Controller.Strategy(ctx, want)
	if err != nil {
		return err
	}
	if strat != b.Strategy.Address {
		return mismatch("controller strategy", strat, b.Strategy.Address)
	}

	approved, err := b.Controller.IsApproved(ctx, want, b.Strategy.Address)
	if err != nil {
		return err
	}
	if !approved {
		return fmt.Errorf("strategy %s not approved for %s: %w", b.Strategy.Address.Hex(), want.Hex(), publish.ErrPostCondition)
	}

	paused, err := b.Vault.Paused(ctx)
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("sett %s is paused: %w", b.Vault.Address.Hex(), publish.ErrPostCondition)
	}

	if b.GuestList != nil {
		guestList, err := b.Vault.GuestList(ctx)
		if err != nil {
			return err
		}
		if guestList != b.GuestList.Address {
			return mismatch("sett guest list", guestList, b.GuestList.Address)
		}
	}

	_, err = CheckWantBalance(ctx, b)
	return err
}

func mismatch(what string, got, want common.Address) error {
	return fmt.Errorf("%s is %s, expected %s: %w", what, got.Hex(), want.Hex(), publish.ErrPostCondition)
}
