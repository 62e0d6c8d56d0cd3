package pipeline

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ResolveRoles picks the sending account for governance actions: the deployer
// when both are the same address, a local key when one is configured, and an
// impersonated account on a development node otherwise.
func ResolveRoles(ctx context.Context, env *Env) (*State, error) {
	lgr := env.Logger.New("stage", "roles")
	r := env.Resolved

	st := &State{
		Deployer:        env.Deployer.Account(),
		Implementations: map[string]common.Address{},
	}

	switch {
	case r.Governance == st.Deployer.Address():
		st.Governance = st.Deployer
		lgr.Info("Governance is the deployer")
	case r.GovernanceKey != nil:
		st.Governance = env.Deployer.KeyAccount(r.GovernanceKey)
		lgr.Info("Governance signs with configured key", "governance", r.Governance)
	default:
		gov, err := env.Deployer.Impersonate(ctx, r.Governance, env.Config.ImpersonateMethod)
		if err != nil {
			return nil, fmt.Errorf("failed to impersonate governance: %w", err)
		}
		st.Governance = gov
		lgr.Info("Impersonating governance", "governance", r.Governance, "method", env.Config.ImpersonateMethod)
	}

	lgr.Info("Resolved roles",
		"deployer", st.Deployer.Address(),
		"strategist", r.Strategist,
		"keeper", r.Keeper,
		"guardian", r.Guardian,
		"rewards", r.Rewards,
	)
	return st, nil
}
