package testutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type ethAPI struct {
	c *Chain
}

type txArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Gas   *hexutil.Uint64 `json:"gas"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a txArgs) data() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

func (a txArgs) value() *big.Int {
	if a.Value == nil {
		return new(big.Int)
	}
	return a.Value.ToInt()
}

func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(api.c.chainID)
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	return hexutil.Uint64(api.c.block)
}

func (api *ethAPI) GetTransactionCount(addr common.Address, block *json.RawMessage) hexutil.Uint64 {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	return hexutil.Uint64(api.c.nonces[addr])
}

func (api *ethAPI) GetBalance(addr common.Address, block *json.RawMessage) *hexutil.Big {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	return (*hexutil.Big)(new(big.Int).Set(api.c.balanceOf(addr)))
}

func (api *ethAPI) GetCode(addr common.Address, block *json.RawMessage) hexutil.Bytes {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	ct, ok := api.c.contracts[addr]
	if !ok {
		return hexutil.Bytes{}
	}
	return Bytecode(ct.kind())
}

func (api *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("decode tx: %w", err)
	}
	from, err := types.Sender(api.c.signer, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("recover sender: %w", err)
	}

	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	if want := api.c.nonces[from]; tx.Nonce() != want {
		return common.Hash{}, fmt.Errorf("invalid nonce for %s: got %d, want %d", from.Hex(), tx.Nonce(), want)
	}
	api.c.execute(tx.Hash(), from, tx.To(), tx.Value(), tx.Data(), tx.Gas())
	return tx.Hash(), nil
}

func (api *ethAPI) SendTransaction(args txArgs) (common.Hash, error) {
	if args.From == nil {
		return common.Hash{}, errors.New("missing from")
	}
	from := *args.From

	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	if !api.c.impersonated[from] {
		return common.Hash{}, fmt.Errorf("unknown account %s", from.Hex())
	}
	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	}
	nonce := api.c.nonces[from]
	hash := crypto.Keccak256Hash(from.Bytes(), new(big.Int).SetUint64(nonce).Bytes(), args.data())
	api.c.execute(hash, from, args.To, args.value(), args.data(), gas)
	return hash, nil
}

func (api *ethAPI) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	return api.c.receipts[hash], nil
}

func (api *ethAPI) Call(args txArgs, block *json.RawMessage, overrides *json.RawMessage) (hexutil.Bytes, error) {
	if args.To == nil {
		return nil, errors.New("missing to")
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}

	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	return api.c.call(&message{
		from:   from,
		to:     *args.To,
		value:  new(big.Int),
		data:   args.data(),
		static: true,
	})
}

type devAPI struct {
	c *Chain
}

func (api *devAPI) ImpersonateAccount(addr common.Address) error {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	api.c.impersonated[addr] = true
	return nil
}

func (api *devAPI) StopImpersonatingAccount(addr common.Address) error {
	api.c.mu.Lock()
	defer api.c.mu.Unlock()
	delete(api.c.impersonated, addr)
	return nil
}
