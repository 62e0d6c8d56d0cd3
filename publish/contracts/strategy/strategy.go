package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
)

const (
	name         = "StrategySushiWethSushi"
	ImplGasLimit = 8_000_000
)

var (
	funcInitialize = w3.MustNewFunc(
		"initialize(address,address,address,address,address,address[3],uint256[3])", "",
	)

	funcWant       = w3.MustNewFunc("want()", "address")
	funcReward     = w3.MustNewFunc("reward()", "address")
	funcWETH       = w3.MustNewFunc("WETH_TOKEN()", "address")
	funcRouter     = w3.MustNewFunc("SUSHISWAP_ROUTER()", "address")
	funcController = w3.MustNewFunc("controller()", "address")

	funcPerformanceFeeGovernance = w3.MustNewFunc("performanceFeeGovernance()", "uint256")
	funcPerformanceFeeStrategist = w3.MustNewFunc("performanceFeeStrategist()", "uint256")
	funcWithdrawalFee            = w3.MustNewFunc("withdrawalFee()", "uint256")
)

// InitArgs mirrors the strategy initializer. WantConfig is
// [want, lpComponent, reward]; FeeConfig is
// [performanceFeeGovernance, performanceFeeStrategist, withdrawalFee] in bps.
type InitArgs struct {
	Governance common.Address
	Strategist common.Address
	Controller common.Address
	Keeper     common.Address
	Guardian   common.Address
	WantConfig [3]common.Address
	FeeConfig  [3]*big.Int
}

func Name() string { return name }

func EncodeInit(args InitArgs) ([]byte, error) {
	return funcInitialize.EncodeArgs(
		args.Governance,
		args.Strategist,
		args.Controller,
		args.Keeper,
		args.Guardian,
		args.WantConfig,
		args.FeeConfig,
	)
}

type Fees struct {
	PerformanceGovernance *big.Int
	PerformanceStrategist *big.Int
	Withdrawal            *big.Int
}

// Strategy is a read handle on a deployed strategy.
type Strategy struct {
	Address common.Address
	caller  publish.Caller
}

func At(addr common.Address, caller publish.Caller) *Strategy {
	return &Strategy{Address: addr, caller: caller}
}

func (s *Strategy) Want(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcWant)
}

func (s *Strategy) Reward(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcReward)
}

func (s *Strategy) WETH(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcWETH)
}

func (s *Strategy) Router(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcRouter)
}

func (s *Strategy) Controller(ctx context.Context) (common.Address, error) {
	return s.address(ctx, funcController)
}

func (s *Strategy) Fees(ctx context.Context) (Fees, error) {
	var fees Fees
	for _, f := range []struct {
		fn  *w3.Func
		out **big.Int
	}{
		{funcPerformanceFeeGovernance, &fees.PerformanceGovernance},
		{funcPerformanceFeeStrategist, &fees.PerformanceStrategist},
		{funcWithdrawalFee, &fees.Withdrawal},
	} {
		if err := s.caller.Call(ctx, s.Address, f.fn, nil, f.out); err != nil {
			return Fees{}, err
		}
	}
	return fees, nil
}

func (s *Strategy) address(ctx context.Context, f *w3.Func) (common.Address, error) {
	var out common.Address
	err := s.caller.Call(ctx, s.Address, f, nil, &out)
	return out, err
}
