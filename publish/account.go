package publish

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3/module/eth"
)

// DefaultImpersonateMethod is the anvil RPC that unlocks an arbitrary sender.
// Hardhat exposes the same call as hardhat_impersonateAccount.
const DefaultImpersonateMethod = "anvil_impersonateAccount"

// Tx is an unsigned transaction request. A nil To creates a contract.
type Tx struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
	Gas   uint64
}

// Account is an identity able to submit transactions.
type Account interface {
	Address() common.Address
	Send(ctx context.Context, tx Tx) (common.Hash, error)
}

type keyAccount struct {
	d       *Deployer
	key     *ecdsa.PrivateKey
	address common.Address
}

func (d *Deployer) newKeyAccount(key *ecdsa.PrivateKey) *keyAccount {
	return &keyAccount{
		d:       d,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// KeyAccount returns an account that signs locally with key and submits
// through the deployer's connection.
func (d *Deployer) KeyAccount(key *ecdsa.PrivateKey) Account {
	return d.newKeyAccount(key)
}

func (a *keyAccount) Address() common.Address {
	return a.address
}

func (a *keyAccount) Send(ctx context.Context, tx Tx) (common.Hash, error) {
	nonce, err := a.d.getNonce(ctx, a.address)
	if err != nil {
		return common.Hash{}, err
	}
	return a.sendWithNonce(ctx, nonce, tx)
}

func (a *keyAccount) sendWithNonce(ctx context.Context, nonce uint64, tx Tx) (common.Hash, error) {
	//  EIP-1559 only
	signedTx, err := types.SignNewTx(a.key, a.d.signer, &types.DynamicFeeTx{
		Nonce:     nonce,
		To:        tx.To,
		Value:     tx.Value,
		GasFeeCap: a.d.gasFeeCap,
		GasTipCap: a.d.gasTipCap,
		Gas:       tx.Gas,
		Data:      tx.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var hash common.Hash
	if err := a.d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&hash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return hash, nil
}

type impersonatedAccount struct {
	d       *Deployer
	address common.Address
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   hexutil.Uint64  `json:"gas"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// Impersonate unlocks addr on a development node and returns an account that
// submits unsigned transactions on its behalf.
func (d *Deployer) Impersonate(ctx context.Context, addr common.Address, method string) (Account, error) {
	if method == "" {
		method = DefaultImpersonateMethod
	}
	if err := d.rpc.CallContext(ctx, nil, method, addr); err != nil {
		return nil, fmt.Errorf("impersonate %s: %w", addr.Hex(), err)
	}
	return &impersonatedAccount{d: d, address: addr}, nil
}

func (a *impersonatedAccount) Address() common.Address {
	return a.address
}

func (a *impersonatedAccount) Send(ctx context.Context, tx Tx) (common.Hash, error) {
	args := sendTxArgs{
		From: a.address,
		To:   tx.To,
		Gas:  hexutil.Uint64(tx.Gas),
		Data: tx.Data,
	}
	if tx.Value != nil {
		args.Value = (*hexutil.Big)(tx.Value)
	}
	var hash common.Hash
	if err := a.d.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("send tx as %s: %w", a.address.Hex(), err)
	}
	return hash, nil
}
