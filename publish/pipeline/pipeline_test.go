package pipeline_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/config"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/erc20"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/pipeline"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/pipeline/guestlist"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/testutil"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type harness struct {
	chain *testutil.Chain
	env   *pipeline.Env
}

func newHarness(t *testing.T, mutate func(*config.Config), opts ...testutil.Option) *harness {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, testutil.WriteArtifacts(dir))

	cfg := config.Default()
	cfg.RPCURL = "inproc"
	cfg.ChainID = testutil.ChainID
	cfg.PrivateKey = testutil.DeployerKeyHex
	cfg.Artifacts.Dir = dir
	cfg.Roles.Governance = testutil.MultisigAddress.Hex()
	cfg.Want = testutil.WantAddress.Hex()
	cfg.RewardToken = testutil.SushiAddress.Hex()
	cfg.ProtectedTokens = []string{
		testutil.WantAddress.Hex(),
		testutil.XSushiAddress.Hex(),
		testutil.SushiAddress.Hex(),
	}
	cfg.Fees = []int64{1000, 1000, 50}
	if mutate != nil {
		mutate(cfg)
	}
	resolved, err := cfg.Resolve()
	require.NoError(t, err)

	clock := func() time.Time { return fixedNow }
	chain := testutil.NewChain(append([]testutil.Option{testutil.WithClock(clock)}, opts...)...)
	chain.Fund(resolved.Deployer, ether(200))

	d := publish.NewDeployerWithClient(chain.Dial(), cfg.ChainID, resolved.DeployerKey, big.NewInt(cfg.GasFeeCap), big.NewInt(cfg.GasTipCap))
	d.SetReceiptPollInterval(5 * time.Millisecond)
	t.Cleanup(func() { _ = d.Close() })

	return &harness{
		chain: chain,
		env: &pipeline.Env{
			Deployer:  d,
			Artifacts: publish.OpenArtifacts(dir),
			Logger:    log.NewLogger(log.DiscardHandler()),
			Config:    cfg,
			Resolved:  resolved,
			Now:       clock,
		},
	}
}

func TestRun(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	bundle, err := pipeline.Run(ctx, h.env)
	require.NoError(t, err)

	deployer := h.env.Resolved.Deployer
	require.Equal(t, deployer, bundle.Deployer)
	require.Equal(t, testutil.MultisigAddress, bundle.Governance)
	require.Equal(t, testutil.KindController, h.chain.Kind(bundle.Controller.Address))
	require.Equal(t, testutil.KindSett, h.chain.Kind(bundle.Vault.Address))
	require.Equal(t, testutil.KindStrategy, h.chain.Kind(bundle.Strategy.Address))
	require.Same(t, bundle.Vault, bundle.Sett())
	require.Nil(t, bundle.GuestList)
	require.Equal(t, testutil.WantAddress, bundle.Want.Address)
	require.Equal(t, testutil.SushiAddress, bundle.RewardToken.Address)
	require.Equal(t, testutil.WETHAddress, bundle.WETH.Address)
	require.Equal(t, testutil.RouterAddress, bundle.Router)

	require.NoError(t, pipeline.Verify(ctx, bundle))

	t.Run("roles", func(t *testing.T) {
		gov, err := bundle.Controller.Governance(ctx)
		require.NoError(t, err)
		require.Equal(t, testutil.MultisigAddress, gov)

		strategist, err := bundle.Controller.Strategist(ctx)
		require.NoError(t, err)
		require.Equal(t, deployer, strategist)

		gov, err = bundle.Vault.Governance(ctx)
		require.NoError(t, err)
		require.Equal(t, testutil.MultisigAddress, gov)

		token, err := bundle.Vault.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, testutil.WantAddress, token)

		want, err := bundle.Strategy.Want(ctx)
		require.NoError(t, err)
		require.Equal(t, testutil.WantAddress, want)

		ctrl, err := bundle.Strategy.Controller(ctx)
		require.NoError(t, err)
		require.Equal(t, bundle.Controller.Address, ctrl)

		fees, err := bundle.Strategy.Fees(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1000), fees.PerformanceGovernance.Int64())
		require.Equal(t, int64(1000), fees.PerformanceStrategist.Int64())
		require.Equal(t, int64(50), fees.Withdrawal.Int64())
	})

	t.Run("exercise", func(t *testing.T) {
		deadline := big.NewInt(fixedNow.Add(20 * time.Minute).Unix())

		deposits := h.chain.Deposits()
		require.Len(t, deposits, 1)
		require.Equal(t, deployer, deposits[0].From)
		require.Equal(t, ether(50), deposits[0].Amount)

		swaps := h.chain.Swaps()
		require.Len(t, swaps, 1)
		require.Equal(t, []common.Address{testutil.WETHAddress, testutil.SushiAddress}, swaps[0].Path)
		require.Equal(t, ether(50), swaps[0].Value)
		require.Zero(t, swaps[0].AmountOutMin.Sign())
		require.Equal(t, deployer, swaps[0].To)
		require.Equal(t, deadline, swaps[0].Deadline)

		liquidity := h.chain.Liquidity()
		require.Len(t, liquidity, 1)
		l := liquidity[0]
		require.Equal(t, testutil.WETHAddress, l.TokenA)
		require.Equal(t, testutil.SushiAddress, l.TokenB)
		require.Equal(t, ether(50), l.AmountADesired)
		require.Equal(t, ether(5000), l.AmountBDesired)
		require.Equal(t, "250000000000000000", l.AmountAMin.String())
		require.Equal(t, "25000000000000000000", l.AmountBMin.String())
		require.Equal(t, deployer, l.To)
		require.Equal(t, deadline, l.Deadline)

		require.Equal(t, ether(50), bundle.InitialWantBalance)
		require.Equal(t, ether(100), h.chain.Balance(deployer))

		// approvals were exact and fully consumed
		for _, token := range []*erc20.Token{bundle.WETH, bundle.RewardToken} {
			allowance, err := token.Allowance(ctx, deployer, testutil.RouterAddress)
			require.NoError(t, err)
			require.Zero(t, allowance.Sign())
		}
	})

	t.Run("handles", func(t *testing.T) {
		handles := bundle.Handles()
		for _, key := range []string{
			pipeline.HandleDeployer, pipeline.HandleGovernance, pipeline.HandleController,
			pipeline.HandleVault, pipeline.HandleSett, pipeline.HandleStrategy,
			pipeline.HandleWant, pipeline.HandleRewardToken, pipeline.HandleWETH, pipeline.HandleRouter,
		} {
			require.NotEqual(t, common.Address{}, handles[key], key)
		}
		require.Equal(t, handles[pipeline.HandleVault], handles[pipeline.HandleSett])
		require.NotContains(t, handles, pipeline.HandleGuestList)
		require.Empty(t, bundle.Implementations)

		again, err := pipeline.FromHandles(handles, h.env.Deployer)
		require.NoError(t, err)
		require.Equal(t, handles, again.Handles())
		require.NoError(t, pipeline.Verify(ctx, again))

		delete(handles, pipeline.HandleStrategy)
		_, err = pipeline.FromHandles(handles, h.env.Deployer)
		require.ErrorContains(t, err, pipeline.HandleStrategy)
	})
}

func TestRunGovernanceModes(t *testing.T) {
	governanceKey, err := crypto.HexToECDSA(testutil.GovernanceKeyHex)
	require.NoError(t, err)
	governanceAddr := crypto.PubkeyToAddress(governanceKey.PublicKey)
	_, deployerAddr, err := config.ParsePrivateKey(testutil.DeployerKeyHex)
	require.NoError(t, err)

	tests := []struct {
		name       string
		mutate     func(*config.Config)
		governance common.Address
	}{
		{
			name: "local key",
			mutate: func(c *config.Config) {
				c.Roles.Governance = governanceAddr.Hex()
				c.Roles.GovernanceKey = testutil.GovernanceKeyHex
			},
			governance: governanceAddr,
		},
		{
			name: "deployer",
			mutate: func(c *config.Config) {
				c.Roles.Governance = deployerAddr.Hex()
			},
			governance: deployerAddr,
		},
		{
			name: "hardhat impersonation",
			mutate: func(c *config.Config) {
				c.ImpersonateMethod = "hardhat_impersonateAccount"
			},
			governance: testutil.MultisigAddress,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mutate)
			ctx := context.Background()

			bundle, err := pipeline.Run(ctx, h.env)
			require.NoError(t, err)
			require.NoError(t, pipeline.Verify(ctx, bundle))

			require.Equal(t, tt.governance, bundle.Governance)
			gov, err := bundle.Vault.Governance(ctx)
			require.NoError(t, err)
			require.Equal(t, tt.governance, gov)
		})
	}
}

func TestRunBehindProxies(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.ProxyFactory = testutil.FactoryAddress.Hex()
	})
	ctx := context.Background()

	bundle, err := pipeline.Run(ctx, h.env)
	require.NoError(t, err)
	require.NoError(t, pipeline.Verify(ctx, bundle))

	for _, proxy := range []common.Address{bundle.Controller.Address, bundle.Vault.Address, bundle.Strategy.Address} {
		require.Equal(t, testutil.MultisigAddress, h.chain.ProxyAdmin(proxy))
	}
	require.Equal(t, testutil.KindSett, h.chain.Kind(bundle.Vault.Address))

	artifacts := h.env.Config.Artifacts
	impls := map[string]common.Address{
		artifacts.Controller: bundle.Controller.Address,
		artifacts.Vault:      bundle.Vault.Address,
		artifacts.Strategy:   bundle.Strategy.Address,
	}
	require.Len(t, bundle.Implementations, len(impls))
	handles := bundle.Handles()
	for name, proxy := range impls {
		impl := bundle.Implementations[name]
		require.NotEqual(t, common.Address{}, impl, name)
		require.NotEqual(t, proxy, impl, name)
		require.Equal(t, impl, handles[pipeline.ImplementationPrefix+name])
	}

	again, err := pipeline.FromHandles(handles, h.env.Deployer)
	require.NoError(t, err)
	require.Equal(t, bundle.Implementations, again.Implementations)
	require.Equal(t, handles, again.Handles())
}

func TestRunProxyFactoryWithoutCode(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.ProxyFactory = common.Address{0xfa}.Hex()
	})

	_, err := pipeline.Run(context.Background(), h.env)
	require.ErrorContains(t, err, "stage controller")
	require.ErrorContains(t, err, "has no code")
}

func TestRunWithGuestList(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.GuestList.Enabled = true
	})
	h.env.Hooks = []pipeline.Hook{guestlist.New(h.env.Config.Artifacts.GuestList, h.env.Resolved.DepositCap)}
	ctx := context.Background()

	bundle, err := pipeline.Run(ctx, h.env)
	require.NoError(t, err)
	require.NotNil(t, bundle.GuestList)
	require.Equal(t, testutil.KindGuestList, h.chain.Kind(bundle.GuestList.Address))
	require.Equal(t, bundle.GuestList.Address, bundle.Handles()[pipeline.HandleGuestList])
	require.NoError(t, pipeline.Verify(ctx, bundle))

	wrapper, err := bundle.GuestList.Wrapper(ctx)
	require.NoError(t, err)
	require.Equal(t, bundle.Vault.Address, wrapper)

	invited, err := bundle.GuestList.IsGuest(ctx, bundle.Deployer)
	require.NoError(t, err)
	require.True(t, invited)

	depositCap, err := bundle.GuestList.UserDepositCap(ctx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100_000_000), depositCap)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		opts   []testutil.Option
		is     error
		msg    string
	}{
		{
			name:   "missing artifact",
			mutate: func(c *config.Config) { c.Artifacts.Controller = "ControllerV2" },
			is:     publish.ErrArtifactNotFound,
			msg:    "stage controller",
		},
		{
			name: "deployer is not strategist",
			mutate: func(c *config.Config) {
				c.Roles.Strategist = common.Address{0x57}.Hex()
			},
			is:  publish.ErrReverted,
			msg: "stage vault",
		},
		{
			name:   "reward token mismatch",
			mutate: func(c *config.Config) { c.RewardToken = testutil.XSushiAddress.Hex() },
			msg:    "stage exercise",
		},
		{
			name: "router deadline passed",
			opts: []testutil.Option{testutil.WithClock(func() time.Time { return fixedNow.Add(time.Hour) })},
			is:   publish.ErrReverted,
			msg:  "stage exercise",
		},
		{
			name:   "insufficient native balance",
			mutate: func(c *config.Config) { c.Exercise.DepositAmount = "150 ether" },
			is:     publish.ErrReverted,
			msg:    "stage exercise",
		},
		{
			name: "no want minted",
			opts: []testutil.Option{testutil.WithoutLiquidityMint()},
			is:   publish.ErrPostCondition,
			msg:  "want balance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.mutate, tt.opts...)

			bundle, err := pipeline.Run(context.Background(), h.env)
			require.Nil(t, bundle)
			require.ErrorContains(t, err, tt.msg)
			if tt.is != nil {
				require.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestVerifyDetectsMiswiring(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	bundle, err := pipeline.Run(ctx, h.env)
	require.NoError(t, err)

	handles := bundle.Handles()
	handles[pipeline.HandleStrategy] = handles[pipeline.HandleController]
	other, err := pipeline.FromHandles(handles, h.env.Deployer)
	require.NoError(t, err)
	require.ErrorIs(t, pipeline.Verify(ctx, other), publish.ErrPostCondition)

	handles = bundle.Handles()
	handles[pipeline.HandleDeployer] = common.Address{0xde}
	other, err = pipeline.FromHandles(handles, h.env.Deployer)
	require.NoError(t, err)
	require.ErrorIs(t, pipeline.Verify(ctx, other), publish.ErrPostCondition)
}

func TestMinAmount(t *testing.T) {
	tests := []struct {
		amount *big.Int
		bps    uint64
		want   *big.Int
	}{
		{ether(50), 50, big.NewInt(25e16)},
		{big.NewInt(199), 50, big.NewInt(0)},
		{big.NewInt(200), 50, big.NewInt(1)},
		{big.NewInt(12345), 10_000, big.NewInt(12345)},
		{big.NewInt(0), 50, big.NewInt(0)},
	}
	for _, tt := range tests {
		got, err := pipeline.MinAmount(tt.amount, tt.bps)
		require.NoError(t, err)
		require.Zero(t, tt.want.Cmp(got), "%s at %d bps", tt.amount, tt.bps)
	}

	_, err := pipeline.MinAmount(big.NewInt(-1), 50)
	require.Error(t, err)
	_, err = pipeline.MinAmount(new(big.Int).Lsh(big.NewInt(1), 256), 50)
	require.Error(t, err)
}
