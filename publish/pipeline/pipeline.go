// Package pipeline deploys a controller, a sett and its strategy, wires them
// together and exercises the result once by minting the want token through
// the strategy's router.
//
// Every stage is a blocking sequence of transactions. The first failing call
// aborts the run; contracts deployed up to that point are left on chain.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/config"
)

// BytecodeSource resolves a compiled contract by name.
type BytecodeSource interface {
	Bytecode(name string) ([]byte, error)
}

// Hook is an optional stage run after the vault is deployed and before the
// strategy is attached.
type Hook interface {
	Name() string
	Apply(ctx context.Context, env *Env, st *State) error
}

type Env struct {
	Deployer  *publish.Deployer
	Artifacts BytecodeSource
	Logger    log.Logger
	Config    *config.Config
	Resolved  *config.Resolved
	Hooks     []Hook

	// Now defaults to time.Now and feeds router deadlines.
	Now func() time.Time
}

// State accumulates what the stages have produced so far.
type State struct {
	Deployer   publish.Account
	Governance publish.Account

	Controller common.Address
	Vault      common.Address
	Strategy   common.Address
	GuestList  common.Address

	// Implementations is only populated when deploying behind proxies.
	Implementations map[string]common.Address

	WETH        common.Address
	RewardToken common.Address
	Router      common.Address
}

type stage struct {
	name string
	fn   func(context.Context, *Env, *State) error
}

func (env *Env) now() time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}

// Run executes the whole procedure and returns the handles of everything it
// deployed. No bundle is returned on failure.
func Run(ctx context.Context, env *Env) (*Bundle, error) {
	lgr := env.Logger.New("deployer", env.Deployer.Address())
	lgr.Info("Starting sett deployment", "want", env.Resolved.Want, "governance", env.Resolved.Governance)

	st, err := ResolveRoles(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve roles: %w", err)
	}

	stages := []stage{
		{"controller", DeployController},
		{"vault", DeployVault},
	}
	for _, h := range env.Hooks {
		stages = append(stages, stage{h.Name(), h.Apply})
	}
	stages = append(stages,
		stage{"strategy", DeployStrategy},
		stage{"wire-strategy", WireStrategy},
		stage{"exercise", Exercise},
	)

	for _, s := range stages {
		if err := s.fn(ctx, env, st); err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.name, err)
		}
	}

	bundle := NewBundle(env.Deployer, st, env.Resolved.Want)
	balance, err := CheckWantBalance(ctx, bundle)
	if err != nil {
		return nil, err
	}
	bundle.InitialWantBalance = balance
	lgr.Info("Initial want balance", "balance", balance)
	return bundle, nil
}
