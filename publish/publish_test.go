package publish_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/stretchr/testify/require"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/testutil"
)

var funcBalanceOf = w3.MustNewFunc("balanceOf(address)", "uint256")

func newDeployer(t *testing.T, chain *testutil.Chain) *publish.Deployer {
	t.Helper()

	key, err := crypto.HexToECDSA(testutil.DeployerKeyHex)
	require.NoError(t, err)

	d := publish.NewDeployerWithClient(chain.Dial(), testutil.ChainID, key, big.NewInt(2e9), big.NewInt(1e9))
	d.SetReceiptPollInterval(10 * time.Millisecond)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDeployImplementation(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)
	ctx := context.Background()

	first, err := d.DeployImplementation(ctx, testutil.Bytecode(testutil.KindController), 1_000_000)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(d.Address(), 0), first.ContractAddress)

	receipt, err := d.WaitForReceipt(ctx, first.TxHash)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Equal(t, testutil.KindController, chain.Kind(first.ContractAddress))

	second, err := d.DeployImplementation(ctx, testutil.Bytecode(testutil.KindSett), 1_000_000)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(d.Address(), 1), second.ContractAddress)

	code, err := d.CodeAt(ctx, second.ContractAddress)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

func TestTransactReverted(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)

	// transfer from an empty account
	data, err := w3.MustNewFunc("transfer(address,uint256)", "bool").EncodeArgs(common.Address{1}, big.NewInt(1))
	require.NoError(t, err)

	receipt, err := d.Transact(context.Background(), d.Account(), testutil.SushiAddress, nil, data, 100_000)
	require.ErrorIs(t, err, publish.ErrReverted)
	require.NotNil(t, receipt)
	require.Equal(t, types.ReceiptStatusFailed, receipt.Status)
}

func TestTransactValueAndCall(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)
	ctx := context.Background()
	chain.Fund(d.Address(), big.NewInt(1e18))

	deposit, err := w3.MustNewFunc("deposit()", "").EncodeArgs()
	require.NoError(t, err)
	_, err = d.Transact(ctx, d.Account(), testutil.WETHAddress, big.NewInt(5e17), deposit, 100_000)
	require.NoError(t, err)

	balance, err := d.BalanceAt(ctx, d.Address())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5e17), balance)

	var wrapped *big.Int
	require.NoError(t, d.Call(ctx, testutil.WETHAddress, funcBalanceOf, []any{d.Address()}, &wrapped))
	require.Equal(t, big.NewInt(5e17), wrapped)
}

func TestKeyAccountSendReturnsHash(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)
	ctx := context.Background()
	chain.Fund(d.Address(), big.NewInt(1e18))

	deposit, err := w3.MustNewFunc("deposit()", "").EncodeArgs()
	require.NoError(t, err)
	to := testutil.WETHAddress

	seen := map[common.Hash]bool{}
	for range 2 {
		hash, err := d.Account().Send(ctx, publish.Tx{To: &to, Value: big.NewInt(1), Data: deposit, Gas: 100_000})
		require.NoError(t, err)
		require.NotEqual(t, common.Hash{}, hash)
		require.False(t, seen[hash])
		seen[hash] = true

		receipt, err := d.WaitForReceipt(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, hash, receipt.TxHash)
		require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	}
	require.Equal(t, big.NewInt(2), chain.TokenBalance(testutil.WETHAddress, d.Address()))

	// a deployment signed by the same key lands at the next nonce
	deployed, err := d.DeployImplementation(ctx, testutil.Bytecode(testutil.KindController), 1_000_000)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(d.Address(), 2), deployed.ContractAddress)
}

func TestKeyAccount(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)

	key, err := crypto.HexToECDSA(testutil.GovernanceKeyHex)
	require.NoError(t, err)
	gov := d.KeyAccount(key)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), gov.Address())
	require.NotEqual(t, d.Address(), gov.Address())

	chain.Fund(gov.Address(), big.NewInt(1e18))
	deposit, err := w3.MustNewFunc("deposit()", "").EncodeArgs()
	require.NoError(t, err)
	for range 2 {
		_, err = d.Transact(context.Background(), gov, testutil.WETHAddress, big.NewInt(1), deposit, 100_000)
		require.NoError(t, err)
	}
	require.Equal(t, big.NewInt(2), chain.TokenBalance(testutil.WETHAddress, gov.Address()))
}

func TestImpersonate(t *testing.T) {
	chain := testutil.NewChain()
	d := newDeployer(t, chain)
	ctx := context.Background()
	chain.Fund(testutil.MultisigAddress, big.NewInt(1e18))

	deposit, err := w3.MustNewFunc("deposit()", "").EncodeArgs()
	require.NoError(t, err)

	t.Run("unlocked", func(t *testing.T) {
		multisig, err := d.Impersonate(ctx, testutil.MultisigAddress, "")
		require.NoError(t, err)
		require.Equal(t, testutil.MultisigAddress, multisig.Address())

		_, err = d.Transact(ctx, multisig, testutil.WETHAddress, big.NewInt(7), deposit, 100_000)
		require.NoError(t, err)
		require.Equal(t, big.NewInt(7), chain.TokenBalance(testutil.WETHAddress, testutil.MultisigAddress))
	})

	t.Run("hardhat method", func(t *testing.T) {
		_, err := d.Impersonate(ctx, common.Address{0xaa}, "hardhat_impersonateAccount")
		require.NoError(t, err)
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := d.Impersonate(ctx, testutil.MultisigAddress, "evm_unlock")
		require.Error(t, err)
	})
}

func TestProxyAddressFromReceipt(t *testing.T) {
	proxy := common.Address{0x01}
	impl := common.Address{0x02}
	admin := common.Address{0x03}

	t.Run("found", func(t *testing.T) {
		receipt := &types.Receipt{Logs: []*types.Log{
			{Topics: []common.Hash{{0xff}}},
			{Topics: []common.Hash{
				crypto.Keccak256Hash([]byte("Deployed(address,address,address)")),
				common.BytesToHash(proxy.Bytes()),
				common.BytesToHash(impl.Bytes()),
				common.BytesToHash(admin.Bytes()),
			}},
		}}
		got, err := publish.ProxyAddressFromReceipt(receipt)
		require.NoError(t, err)
		require.Equal(t, proxy, got)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := publish.ProxyAddressFromReceipt(&types.Receipt{})
		require.Error(t, err)
	})
}

func TestWaitForReceiptCancelled(t *testing.T) {
	d := newDeployer(t, testutil.NewChain())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.WaitForReceipt(ctx, common.Hash{0x42})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
