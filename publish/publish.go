package publish

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
)

const (
	ProxyGasLimit uint64 = 1_500_000
	CallGasLimit  uint64 = 1_000_000
)

var (
	ErrReverted      = errors.New("execution reverted")
	ErrPostCondition = errors.New("post-condition violated")
)

var (
	funcDeployAndCall = w3.MustNewFunc(
		"deployAndCall(address,address,bytes)", "address",
	)
	eventDeployed = w3.MustNewEvent(
		"Deployed(address indexed,address indexed,address indexed)",
	)
)

type (
	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
	}

	// Caller performs read-only contract calls.
	Caller interface {
		Call(ctx context.Context, contract common.Address, f *w3.Func, args []any, returns ...any) error
	}

	Deployer struct {
		client    *w3.Client
		rpc       *rpc.Client
		signer    types.Signer
		self      *keyAccount
		gasFeeCap *big.Int
		gasTipCap *big.Int
		poll      time.Duration
	}
)

func NewDeployer(rpcURL string, chainID int64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int) (*Deployer, error) {
	rpcClient, err := rpc.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return NewDeployerWithClient(rpcClient, chainID, privateKey, gasFeeCap, gasTipCap), nil
}

// NewDeployerWithClient builds a Deployer on top of an already connected RPC
// client. The Deployer takes ownership of the client.
func NewDeployerWithClient(rpcClient *rpc.Client, chainID int64, privateKey *ecdsa.PrivateKey, gasFeeCap, gasTipCap *big.Int) *Deployer {
	d := &Deployer{
		client:    w3.NewClient(rpcClient),
		rpc:       rpcClient,
		signer:    types.NewLondonSigner(big.NewInt(chainID)),
		gasFeeCap: gasFeeCap,
		gasTipCap: gasTipCap,
		poll:      2 * time.Second,
	}
	d.self = d.newKeyAccount(privateKey)
	return d
}

// SetReceiptPollInterval changes how often WaitForReceipt polls the node.
func (d *Deployer) SetReceiptPollInterval(interval time.Duration) {
	d.poll = interval
}

func (d *Deployer) Address() common.Address {
	return d.self.address
}

// Account returns the deployer key as a sending account.
func (d *Deployer) Account() Account {
	return d.self
}

func (d *Deployer) Close() error {
	return d.client.Close()
}

func (d *Deployer) getNonce(ctx context.Context, addr common.Address) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(addr, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (d *Deployer) DeployImplementation(ctx context.Context, bytecode []byte, gasLimit uint64) (DeployResult, error) {
	nonce, err := d.getNonce(ctx, d.self.address)
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(d.self.address, nonce)

	txHash, err := d.self.sendWithNonce(ctx, nonce, Tx{Data: bytecode, Gas: gasLimit})
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

func (d *Deployer) DeployProxy(ctx context.Context, factory, implementation, admin common.Address, initData []byte, gasLimit uint64) (common.Hash, error) {
	calldata, err := funcDeployAndCall.EncodeArgs(implementation, admin, initData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode deployAndCall: %w", err)
	}
	return d.self.Send(ctx, Tx{To: &factory, Gas: gasLimit, Data: calldata})
}

// Transact sends a call from the given account and waits for it to be mined.
// A mined but failed transaction is reported as ErrReverted.
func (d *Deployer) Transact(ctx context.Context, from Account, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Receipt, error) {
	txHash, err := from.Send(ctx, Tx{To: &to, Value: value, Data: data, Gas: gasLimit})
	if err != nil {
		return nil, err
	}
	receipt, err := d.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("wait %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s from %s to %s: %w", txHash.Hex(), from.Address().Hex(), to.Hex(), ErrReverted)
	}
	return receipt, nil
}

func (d *Deployer) Call(ctx context.Context, contract common.Address, f *w3.Func, args []any, returns ...any) error {
	if err := d.client.CallCtx(ctx, eth.CallFunc(contract, f, args...).Returns(returns...)); err != nil {
		return fmt.Errorf("call %s on %s: %w", f.Signature, contract.Hex(), err)
	}
	return nil
}

func (d *Deployer) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := d.client.CallCtx(ctx, eth.Balance(addr, nil).Returns(&balance)); err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (d *Deployer) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := d.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	return code, nil
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func ProxyAddressFromReceipt(receipt *types.Receipt) (common.Address, error) {
	for _, log := range receipt.Logs {
		var (
			proxy          common.Address
			implementation common.Address
			admin          common.Address
		)
		if err := eventDeployed.DecodeArgs(log, &proxy, &implementation, &admin); err == nil {
			return proxy, nil
		}
	}
	return common.Address{}, errors.New("Deployed event not found in receipt logs")
}
