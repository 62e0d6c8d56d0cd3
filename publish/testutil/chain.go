// Package testutil provides an in-process development chain for exercising
// the deployment pipeline without a node. It speaks the subset of the
// Ethereum JSON-RPC API the deployer uses and simulates the contracts the
// pipeline talks to at the ABI level.
package testutil

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

const ChainID = 1337

// Well known keys of a local anvil node.
const (
	DeployerKeyHex   = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	GovernanceKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

// Preinstalled contracts.
var (
	WETHAddress    = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	SushiAddress   = common.HexToAddress("0xd4d42F0b6DEF4CE0383636770eF773390d85c61A")
	XSushiAddress  = common.HexToAddress("0x8798249c2E607446EfB7Ad49eC89dD1865Ff4272")
	WantAddress    = common.HexToAddress("0x3221022e37029923aCe4235D812273C5A42C322d")
	RouterAddress  = common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506")
	FactoryAddress = common.HexToAddress("0x0000000000006396FF2a80c067f99B3d2Ab4Df24")

	// MultisigAddress has no key; it can only act through impersonation.
	MultisigAddress = common.HexToAddress("0xB65cef03b9B89f99517643226d76e286ee999e77")
)

var (
	errReverted = errors.New("execution reverted")
	errStatic   = errors.New("state change in static call")
)

func revert(reason string) error {
	return fmt.Errorf("%w: %s", errReverted, reason)
}

type contract interface {
	kind() string
	exec(c *Chain, m *message) ([]byte, error)
}

type message struct {
	from   common.Address
	to     common.Address
	value  *big.Int
	data   []byte
	static bool
	logs   []*types.Log
}

func (m *message) mutating() error {
	if m.static {
		return errStatic
	}
	return nil
}

type Option func(*Chain)

// WithSwapRate sets how many reward tokens the router pays per wei.
func WithSwapRate(rate int64) Option {
	return func(c *Chain) { c.swapRate = big.NewInt(rate) }
}

// WithoutLiquidityMint makes addLiquidity succeed without minting want.
func WithoutLiquidityMint() Option {
	return func(c *Chain) { c.mintLiquidity = false }
}

func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// Chain is a single-writer simulated chain. Every accepted transaction is
// mined immediately into its own block.
type Chain struct {
	mu sync.Mutex

	chainID *big.Int
	signer  types.Signer
	now     func() time.Time

	block        uint64
	nonces       map[common.Address]uint64
	balances     map[common.Address]*big.Int
	contracts    map[common.Address]contract
	receipts     map[common.Hash]*types.Receipt
	impersonated map[common.Address]bool

	swapRate      *big.Int
	mintLiquidity bool

	deposits  []DepositRecord
	swaps     []SwapRecord
	liquidity []LiquidityRecord
}

func NewChain(opts ...Option) *Chain {
	c := &Chain{
		chainID:       big.NewInt(ChainID),
		now:           time.Now,
		nonces:        map[common.Address]uint64{},
		balances:      map[common.Address]*big.Int{},
		contracts:     map[common.Address]contract{},
		receipts:      map[common.Hash]*types.Receipt{},
		impersonated:  map[common.Address]bool{},
		swapRate:      big.NewInt(100),
		mintLiquidity: true,
	}
	c.signer = types.LatestSignerForChainID(c.chainID)
	for _, opt := range opts {
		opt(c)
	}

	c.contracts[WETHAddress] = &wethSim{tokenSim: newToken("WETH")}
	c.contracts[SushiAddress] = newToken("SUSHI")
	c.contracts[XSushiAddress] = newToken("xSUSHI")
	c.contracts[WantAddress] = newToken("SLP")
	c.contracts[RouterAddress] = &routerSim{}
	c.contracts[FactoryAddress] = &factorySim{admins: map[common.Address]common.Address{}}
	return c
}

// Dial returns an in-process RPC client connected to the chain.
func (c *Chain) Dial() *rpc.Client {
	srv := rpc.NewServer()
	api := &ethAPI{c: c}
	if err := srv.RegisterName("eth", api); err != nil {
		panic(err)
	}
	dev := &devAPI{c: c}
	for _, ns := range []string{"anvil", "hardhat"} {
		if err := srv.RegisterName(ns, dev); err != nil {
			panic(err)
		}
	}
	return rpc.DialInProc(srv)
}

// Fund credits addr with wei of native currency.
func (c *Chain) Fund(addr common.Address, wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credit(addr, wei)
}

func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balanceOf(addr))
}

// Kind reports the simulated contract type deployed at addr, or "" when
// there is none.
func (c *Chain) Kind(addr common.Address) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct, ok := c.contracts[addr]; ok {
		return ct.kind()
	}
	return ""
}

// TokenBalance reads an ERC20 balance directly from simulated storage.
func (c *Chain) TokenBalance(token, owner common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.token(token)
	if err != nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.balance(owner))
}

// ProxyAdmin returns the admin recorded by the factory for proxy.
func (c *Chain) ProxyAdmin(proxy common.Address) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contracts[FactoryAddress].(*factorySim).admins[proxy]
}

func (c *Chain) Deposits() []DepositRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DepositRecord(nil), c.deposits...)
}

func (c *Chain) Swaps() []SwapRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SwapRecord(nil), c.swaps...)
}

func (c *Chain) Liquidity() []LiquidityRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LiquidityRecord(nil), c.liquidity...)
}

func (c *Chain) balanceOf(addr common.Address) *big.Int {
	if b, ok := c.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (c *Chain) credit(addr common.Address, wei *big.Int) {
	c.balances[addr] = new(big.Int).Add(c.balanceOf(addr), wei)
}

func (c *Chain) debit(addr common.Address, wei *big.Int) error {
	bal := c.balanceOf(addr)
	if bal.Cmp(wei) < 0 {
		return revert("insufficient balance")
	}
	c.balances[addr] = new(big.Int).Sub(bal, wei)
	return nil
}

func (c *Chain) token(addr common.Address) (*tokenSim, error) {
	switch t := c.contracts[addr].(type) {
	case *tokenSim:
		return t, nil
	case *wethSim:
		return t.tokenSim, nil
	default:
		return nil, revert(fmt.Sprintf("%s is not a token", addr.Hex()))
	}
}

// execute runs one transaction and returns its receipt. Must hold c.mu.
func (c *Chain) execute(txHash common.Hash, from common.Address, to *common.Address, value *big.Int, data []byte, gas uint64) *types.Receipt {
	c.block++
	nonce := c.nonces[from]
	c.nonces[from] = nonce + 1

	receipt := &types.Receipt{
		Type:              types.DynamicFeeTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: gas,
		GasUsed:           gas,
		TxHash:            txHash,
		BlockNumber:       new(big.Int).SetUint64(c.block),
		BlockHash:         crypto.Keccak256Hash(new(big.Int).SetUint64(c.block).Bytes()),
		Logs:              []*types.Log{},
	}
	if value == nil {
		value = new(big.Int)
	}

	if to == nil {
		addr := crypto.CreateAddress(from, nonce)
		ct, err := contractFromBytecode(data)
		if err != nil {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			c.contracts[addr] = ct
			receipt.ContractAddress = addr
		}
		c.receipts[txHash] = receipt
		return receipt
	}

	m := &message{from: from, to: *to, value: value, data: data}
	if _, err := c.call(m); err != nil {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		for i, log := range m.logs {
			log.TxHash = txHash
			log.BlockNumber = c.block
			log.BlockHash = receipt.BlockHash
			log.Index = uint(i)
		}
		if len(m.logs) > 0 {
			receipt.Logs = m.logs
		}
	}
	c.receipts[txHash] = receipt
	return receipt
}

// call dispatches a message, moving value first and refunding it if the
// callee reverts. Must hold c.mu.
func (c *Chain) call(m *message) ([]byte, error) {
	if m.value.Sign() > 0 {
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if err := c.debit(m.from, m.value); err != nil {
			return nil, err
		}
		c.credit(m.to, m.value)
	}
	ct, ok := c.contracts[m.to]
	if !ok {
		if len(m.data) == 0 {
			return nil, nil
		}
		return nil, revert("call to non-contract")
	}
	out, err := ct.exec(c, m)
	if err != nil && m.value.Sign() > 0 {
		c.balances[m.to] = new(big.Int).Sub(c.balanceOf(m.to), m.value)
		c.credit(m.from, m.value)
	}
	return out, err
}

const bytecodePrefix = "sim:"

// Bytecode returns the creation code the chain recognises as kind.
func Bytecode(kind string) []byte {
	return []byte(bytecodePrefix + kind)
}

func contractFromBytecode(code []byte) (contract, error) {
	s := string(code)
	if !strings.HasPrefix(s, bytecodePrefix) {
		return nil, revert("unknown bytecode")
	}
	switch kind := strings.TrimPrefix(s, bytecodePrefix); kind {
	case KindController:
		return newController(), nil
	case KindSett:
		return newSett(), nil
	case KindStrategy:
		return newStrategy(), nil
	case KindGuestList:
		return newGuestList(), nil
	default:
		return nil, revert("unknown contract kind " + kind)
	}
}
