package pipeline

import (
	"context"
	"fmt"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/controller"
)

// WireStrategy approves the strategy for want under governance and then
// points the controller at it from the deployer. On a live network the second
// call only succeeds when the deployer is the controller's strategist.
func WireStrategy(ctx context.Context, env *Env, st *State) error {
	lgr := env.Logger.New("stage", "wire-strategy")
	want := env.Resolved.Want

	approve, err := controller.EncodeApproveStrategy(want, st.Strategy)
	if err != nil {
		return fmt.Errorf("encode approveStrategy: %w", err)
	}
	if _, err := env.Deployer.Transact(ctx, st.Governance, st.Controller, nil, approve, controller.CallGasLimit); err != nil {
		return fmt.Errorf("approve strategy: %w", err)
	}
	lgr.Info("Strategy approved", "strategy", st.Strategy, "governance", st.Governance.Address())

	set, err := controller.EncodeSetStrategy(want, st.Strategy)
	if err != nil {
		return fmt.Errorf("encode setStrategy: %w", err)
	}
	if _, err := env.Deployer.Transact(ctx, st.Deployer, st.Controller, nil, set, controller.CallGasLimit); err != nil {
		return fmt.Errorf("set strategy: %w", err)
	}
	lgr.Info("Strategy set on controller", "want", want)
	return nil
}
