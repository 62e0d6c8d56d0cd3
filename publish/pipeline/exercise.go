package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/erc20"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/router"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/strategy"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/weth"
)

const bpsDenominator = 10_000

// Exercise wraps the deposit amount, buys the reward token with the same
// amount of native currency and supplies both full balances as liquidity,
// leaving the deployer with want.
func Exercise(ctx context.Context, env *Env, st *State) error {
	lgr := env.Logger.New("stage", "exercise")
	d := env.Deployer
	deployer := st.Deployer.Address()
	amount := env.Resolved.DepositAmount

	strat := strategy.At(st.Strategy, d)
	var err error
	if st.WETH, err = strat.WETH(ctx); err != nil {
		return err
	}
	if st.RewardToken, err = strat.Reward(ctx); err != nil {
		return err
	}
	if st.Router, err = strat.Router(ctx); err != nil {
		return err
	}
	if st.RewardToken != env.Resolved.RewardToken {
		return fmt.Errorf("strategy reward %s does not match configured reward token %s", st.RewardToken.Hex(), env.Resolved.RewardToken.Hex())
	}
	lgr.Info("Resolved exercise tokens", "weth", st.WETH, "reward", st.RewardToken, "router", st.Router)

	deposit, err := weth.EncodeDeposit()
	if err != nil {
		return fmt.Errorf("encode deposit: %w", err)
	}
	if _, err := d.Transact(ctx, st.Deployer, st.WETH, amount, deposit, weth.DepositGasLimit); err != nil {
		return fmt.Errorf("wrap native: %w", err)
	}
	lgr.Info("Wrapped native currency", "amount", amount)

	deadline := big.NewInt(env.now().Add(env.Config.Exercise.Deadline).Unix())

	swap, err := router.EncodeSwapExactETHForTokens(router.SwapArgs{
		AmountOutMin: new(big.Int),
		Path:         []common.Address{st.WETH, st.RewardToken},
		To:           deployer,
		Deadline:     deadline,
	})
	if err != nil {
		return fmt.Errorf("encode swap: %w", err)
	}
	if _, err := d.Transact(ctx, st.Deployer, st.Router, amount, swap, router.SwapGasLimit); err != nil {
		return fmt.Errorf("swap for reward token: %w", err)
	}

	wethToken := erc20.At(st.WETH, d)
	rewardToken := erc20.At(st.RewardToken, d)
	wethBalance, err := wethToken.BalanceOf(ctx, deployer)
	if err != nil {
		return err
	}
	rewardBalance, err := rewardToken.BalanceOf(ctx, deployer)
	if err != nil {
		return err
	}
	lgr.Info("Swapped for reward token", "weth", wethBalance, "reward", rewardBalance)

	// Approvals cover exactly what addLiquidity may pull.
	for _, approval := range []struct {
		token  common.Address
		amount *big.Int
	}{
		{st.WETH, wethBalance},
		{st.RewardToken, rewardBalance},
	} {
		data, err := erc20.EncodeApprove(st.Router, approval.amount)
		if err != nil {
			return fmt.Errorf("encode approve: %w", err)
		}
		if _, err := d.Transact(ctx, st.Deployer, approval.token, nil, data, erc20.ApproveGasLimit); err != nil {
			return fmt.Errorf("approve router for %s: %w", approval.token.Hex(), err)
		}
	}

	bps := env.Config.Exercise.MinAmountBps
	wethMin, err := MinAmount(wethBalance, bps)
	if err != nil {
		return err
	}
	rewardMin, err := MinAmount(rewardBalance, bps)
	if err != nil {
		return err
	}

	liquidity, err := router.EncodeAddLiquidity(router.LiquidityArgs{
		TokenA:         st.WETH,
		TokenB:         st.RewardToken,
		AmountADesired: wethBalance,
		AmountBDesired: rewardBalance,
		AmountAMin:     wethMin,
		AmountBMin:     rewardMin,
		To:             deployer,
		Deadline:       deadline,
	})
	if err != nil {
		return fmt.Errorf("encode addLiquidity: %w", err)
	}
	if _, err := d.Transact(ctx, st.Deployer, st.Router, nil, liquidity, router.LiquidityGasLimit); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	lgr.Info("Added liquidity", "wethMin", wethMin, "rewardMin", rewardMin, "deadline", deadline)
	return nil
}

// MinAmount returns amount*bps/10000 rounded down.
func MinAmount(amount *big.Int, bps uint64) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, errors.New("negative amount")
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, fmt.Errorf("amount %s exceeds 256 bits", amount)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(v, uint256.NewInt(bps), uint256.NewInt(bpsDenominator))
	if overflow {
		return nil, fmt.Errorf("min amount of %s at %d bps overflows", amount, bps)
	}
	return out.ToBig(), nil
}
