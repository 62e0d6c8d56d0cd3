package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/controller"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/erc1967factory"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/sett"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/strategy"
)

func DeployController(ctx context.Context, env *Env, st *State) error {
	lgr := env.Logger.New("stage", "controller")
	r := env.Resolved

	initData, err := controller.EncodeInit(controller.InitArgs{
		Governance: r.Governance,
		Strategist: r.Strategist,
		Keeper:     r.Keeper,
		Rewards:    r.Rewards,
	})
	if err != nil {
		return fmt.Errorf("encode controller init: %w", err)
	}

	addr, err := DeployInitialized(ctx, env, st, env.Config.Artifacts.Controller, controller.ImplGasLimit, initData)
	if err != nil {
		return err
	}
	st.Controller = addr
	lgr.Info("Controller deployed", "address", addr)
	return nil
}

func DeployVault(ctx context.Context, env *Env, st *State) error {
	lgr := env.Logger.New("stage", "vault")
	r := env.Resolved
	cfg := env.Config.Vault

	initData, err := sett.EncodeInit(sett.InitArgs{
		Token:             r.Want,
		Controller:        st.Controller,
		Governance:        r.Governance,
		Keeper:            r.Keeper,
		Guardian:          r.Guardian,
		OverrideTokenName: cfg.OverrideTokenName,
		NamePrefix:        cfg.NamePrefix,
		SymbolPrefix:      cfg.SymbolPrefix,
	})
	if err != nil {
		return fmt.Errorf("encode sett init: %w", err)
	}

	addr, err := DeployInitialized(ctx, env, st, env.Config.Artifacts.Vault, sett.ImplGasLimit, initData)
	if err != nil {
		return err
	}
	st.Vault = addr
	lgr.Info("Sett deployed", "address", addr)

	unpause, err := sett.EncodeUnpause()
	if err != nil {
		return fmt.Errorf("encode unpause: %w", err)
	}
	if _, err := env.Deployer.Transact(ctx, st.Governance, addr, nil, unpause, sett.CallGasLimit); err != nil {
		return fmt.Errorf("unpause sett: %w", err)
	}
	lgr.Info("Sett unpaused", "governance", st.Governance.Address())

	setVault, err := controller.EncodeSetVault(r.Want, addr)
	if err != nil {
		return fmt.Errorf("encode setVault: %w", err)
	}
	if _, err := env.Deployer.Transact(ctx, st.Deployer, st.Controller, nil, setVault, controller.CallGasLimit); err != nil {
		return fmt.Errorf("register sett on controller: %w", err)
	}
	lgr.Info("Sett registered on controller", "want", r.Want)
	return nil
}

func DeployStrategy(ctx context.Context, env *Env, st *State) error {
	lgr := env.Logger.New("stage", "strategy")
	r := env.Resolved

	initData, err := strategy.EncodeInit(strategy.InitArgs{
		Governance: r.Governance,
		Strategist: r.Strategist,
		Controller: st.Controller,
		Keeper:     r.Keeper,
		Guardian:   r.Guardian,
		WantConfig: r.ProtectedTokens,
		FeeConfig:  r.Fees,
	})
	if err != nil {
		return fmt.Errorf("encode strategy init: %w", err)
	}

	addr, err := DeployInitialized(ctx, env, st, env.Config.Artifacts.Strategy, strategy.ImplGasLimit, initData)
	if err != nil {
		return err
	}
	st.Strategy = addr
	lgr.Info("Strategy deployed", "address", addr)
	return nil
}

// DeployInitialized deploys the named artifact and runs its initializer. With
// a proxy factory configured the initializer runs atomically inside the proxy
// deployment and the proxy address is returned.
func DeployInitialized(ctx context.Context, env *Env, st *State, name string, gasLimit uint64, initData []byte) (common.Address, error) {
	bytecode, err := env.Artifacts.Bytecode(name)
	if err != nil {
		return common.Address{}, err
	}

	implAddr, err := deployPlain(ctx, env.Deployer, name, bytecode, gasLimit)
	if err != nil {
		return common.Address{}, err
	}

	factory := env.Resolved.ProxyFactory
	if factory == (common.Address{}) {
		if _, err := env.Deployer.Transact(ctx, st.Deployer, implAddr, nil, initData, publish.CallGasLimit); err != nil {
			return common.Address{}, fmt.Errorf("initialize %s: %w", name, err)
		}
		return implAddr, nil
	}

	if err := ensureFactory(ctx, env.Deployer, factory); err != nil {
		return common.Address{}, err
	}
	st.Implementations[name] = implAddr

	txHash, err := env.Deployer.DeployProxy(ctx, factory, implAddr, env.Resolved.Governance, initData, publish.ProxyGasLimit)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s proxy: %w", name, err)
	}
	receipt, err := env.Deployer.WaitForReceipt(ctx, txHash)
	if err != nil {
		return common.Address{}, fmt.Errorf("wait %s proxy: %w", name, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("%s proxy deployment %s: %w", name, receipt.TxHash.Hex(), publish.ErrReverted)
	}
	proxy, err := publish.ProxyAddressFromReceipt(receipt)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s proxy: %w", name, err)
	}

	admin, err := erc1967factory.At(factory, env.Deployer).AdminOf(ctx, proxy)
	if err != nil {
		return common.Address{}, err
	}
	if admin != env.Resolved.Governance {
		return common.Address{}, fmt.Errorf("%s proxy admin is %s, expected governance %s", name, admin.Hex(), env.Resolved.Governance.Hex())
	}
	env.Logger.Debug("Proxy deployed", "name", name, "proxy", proxy, "implementation", implAddr, "admin", admin)
	return proxy, nil
}

func deployPlain(ctx context.Context, d *publish.Deployer, name string, bytecode []byte, gasLimit uint64) (common.Address, error) {
	result, err := d.DeployImplementation(ctx, bytecode, gasLimit)
	if err != nil {
		return common.Address{}, fmt.Errorf("deploy %s implementation: %w", name, err)
	}
	receipt, err := d.WaitForReceipt(ctx, result.TxHash)
	if err != nil {
		return common.Address{}, fmt.Errorf("wait %s implementation: %w", name, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("%s implementation deployment %s: %w", name, receipt.TxHash.Hex(), publish.ErrReverted)
	}
	return result.ContractAddress, nil
}

func ensureFactory(ctx context.Context, d *publish.Deployer, factory common.Address) error {
	code, err := d.CodeAt(ctx, factory)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("factory address %s has no code", factory.Hex())
	}
	return nil
}
