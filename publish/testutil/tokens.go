package testutil

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

var (
	fnBalanceOf    = w3.MustNewFunc("balanceOf(address)", "uint256")
	fnAllowance    = w3.MustNewFunc("allowance(address,address)", "uint256")
	fnApprove      = w3.MustNewFunc("approve(address,uint256)", "bool")
	fnTransfer     = w3.MustNewFunc("transfer(address,uint256)", "bool")
	fnSymbol       = w3.MustNewFunc("symbol()", "string")
	fnDeposit      = w3.MustNewFunc("deposit()", "")
	fnTotalSupply  = w3.MustNewFunc("totalSupply()", "uint256")
	evTransfer     = w3.MustNewEvent("Transfer(address indexed from, address indexed to, uint256 value)")
	evApproval     = w3.MustNewEvent("Approval(address indexed owner, address indexed spender, uint256 value)")
	fnSwapExactETH = w3.MustNewFunc(
		"swapExactETHForTokens(uint256,address[],address,uint256)", "uint256[]",
	)
	fnAddLiquidity = w3.MustNewFunc(
		"addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)",
		"uint256,uint256,uint256",
	)
)

// DepositRecord is one wrap of native currency.
type DepositRecord struct {
	From   common.Address
	Amount *big.Int
}

// SwapRecord is one swapExactETHForTokens call.
type SwapRecord struct {
	From         common.Address
	Value        *big.Int
	AmountOutMin *big.Int
	Path         []common.Address
	To           common.Address
	Deadline     *big.Int
	AmountOut    *big.Int
}

// LiquidityRecord is one addLiquidity call.
type LiquidityRecord struct {
	From           common.Address
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             common.Address
	Deadline       *big.Int
	Liquidity      *big.Int
}

// encodeReturns packs return values the way a contract would return them.
func encodeReturns(f *w3.Func, vals ...any) ([]byte, error) {
	return f.Returns.Pack(vals...)
}

func selector(data []byte) [4]byte {
	var sel [4]byte
	copy(sel[:], data)
	return sel
}

type tokenSim struct {
	symbol     string
	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
}

func newToken(symbol string) *tokenSim {
	return &tokenSim{
		symbol:     symbol,
		supply:     new(big.Int),
		balances:   map[common.Address]*big.Int{},
		allowances: map[[2]common.Address]*big.Int{},
	}
}

func (t *tokenSim) kind() string { return "ERC20" }

func (t *tokenSim) balance(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return b
	}
	return new(big.Int)
}

func (t *tokenSim) allowance(owner, spender common.Address) *big.Int {
	if a, ok := t.allowances[[2]common.Address{owner, spender}]; ok {
		return a
	}
	return new(big.Int)
}

func (t *tokenSim) mint(to common.Address, amount *big.Int) {
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	t.supply = new(big.Int).Add(t.supply, amount)
}

func (t *tokenSim) move(from, to common.Address, amount *big.Int) error {
	if t.balance(from).Cmp(amount) < 0 {
		return revert("transfer amount exceeds balance")
	}
	t.balances[from] = new(big.Int).Sub(t.balance(from), amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	return nil
}

// canPull reports whether spender may move amount out of owner.
func (t *tokenSim) canPull(owner, spender common.Address, amount *big.Int) error {
	if t.allowance(owner, spender).Cmp(amount) < 0 {
		return revert("transfer amount exceeds allowance")
	}
	if t.balance(owner).Cmp(amount) < 0 {
		return revert("transfer amount exceeds balance")
	}
	return nil
}

func (t *tokenSim) pull(owner, spender, to common.Address, amount *big.Int) error {
	if err := t.canPull(owner, spender, amount); err != nil {
		return err
	}
	key := [2]common.Address{owner, spender}
	t.allowances[key] = new(big.Int).Sub(t.allowance(owner, spender), amount)
	return t.move(owner, to, amount)
}

func (t *tokenSim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnBalanceOf.Selector:
		var owner common.Address
		if err := fnBalanceOf.DecodeArgs(m.data, &owner); err != nil {
			return nil, err
		}
		return encodeReturns(fnBalanceOf, t.balance(owner))
	case fnAllowance.Selector:
		var owner, spender common.Address
		if err := fnAllowance.DecodeArgs(m.data, &owner, &spender); err != nil {
			return nil, err
		}
		return encodeReturns(fnAllowance, t.allowance(owner, spender))
	case fnSymbol.Selector:
		return encodeReturns(fnSymbol, t.symbol)
	case fnTotalSupply.Selector:
		return encodeReturns(fnTotalSupply, t.supply)
	case fnApprove.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			spender common.Address
			amount  *big.Int
		)
		if err := fnApprove.DecodeArgs(m.data, &spender, &amount); err != nil {
			return nil, err
		}
		t.allowances[[2]common.Address{m.from, spender}] = amount
		m.logs = append(m.logs, tokenLog(m.to, evApproval.Topic0, m.from, spender, amount))
		return encodeReturns(fnApprove, true)
	case fnTransfer.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			to     common.Address
			amount *big.Int
		)
		if err := fnTransfer.DecodeArgs(m.data, &to, &amount); err != nil {
			return nil, err
		}
		if err := t.move(m.from, to, amount); err != nil {
			return nil, err
		}
		m.logs = append(m.logs, tokenLog(m.to, evTransfer.Topic0, m.from, to, amount))
		return encodeReturns(fnTransfer, true)
	}
	return nil, revert("unknown selector")
}

func tokenLog(token common.Address, topic0 common.Hash, a, b common.Address, amount *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{topic0, common.BytesToHash(a.Bytes()), common.BytesToHash(b.Bytes())},
		Data:    common.BigToHash(amount).Bytes(),
	}
}

type wethSim struct {
	*tokenSim
}

func (w *wethSim) kind() string { return "WETH9" }

func (w *wethSim) exec(c *Chain, m *message) ([]byte, error) {
	if selector(m.data) != fnDeposit.Selector {
		return w.tokenSim.exec(c, m)
	}
	if err := m.mutating(); err != nil {
		return nil, err
	}
	w.mint(m.from, m.value)
	c.deposits = append(c.deposits, DepositRecord{From: m.from, Amount: new(big.Int).Set(m.value)})
	return nil, nil
}

// routerSim prices the reward token at a fixed rate and mints one unit of
// liquidity per unit of the smaller side.
type routerSim struct{}

func (r *routerSim) kind() string { return "UniswapV2Router02" }

func (r *routerSim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnSwapExactETH.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			amountOutMin, deadline *big.Int
			path                   []common.Address
			to                     common.Address
		)
		if err := fnSwapExactETH.DecodeArgs(m.data, &amountOutMin, &path, &to, &deadline); err != nil {
			return nil, err
		}
		if err := checkDeadline(c, deadline); err != nil {
			return nil, err
		}
		if len(path) != 2 || path[0] != WETHAddress {
			return nil, revert("UniswapV2Router: INVALID_PATH")
		}
		out, err := c.token(path[1])
		if err != nil {
			return nil, err
		}
		amountOut := new(big.Int).Mul(m.value, c.swapRate)
		if amountOut.Cmp(amountOutMin) < 0 {
			return nil, revert("UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
		}
		out.mint(to, amountOut)
		c.swaps = append(c.swaps, SwapRecord{
			From:         m.from,
			Value:        new(big.Int).Set(m.value),
			AmountOutMin: amountOutMin,
			Path:         path,
			To:           to,
			Deadline:     deadline,
			AmountOut:    amountOut,
		})
		return encodeReturns(fnSwapExactETH, []*big.Int{new(big.Int).Set(m.value), amountOut})

	case fnAddLiquidity.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			tokenA, tokenB, to                       common.Address
			desiredA, desiredB, minA, minB, deadline *big.Int
		)
		if err := fnAddLiquidity.DecodeArgs(m.data, &tokenA, &tokenB, &desiredA, &desiredB, &minA, &minB, &to, &deadline); err != nil {
			return nil, err
		}
		if err := checkDeadline(c, deadline); err != nil {
			return nil, err
		}
		if desiredA.Cmp(minA) < 0 {
			return nil, revert("UniswapV2Router: INSUFFICIENT_A_AMOUNT")
		}
		if desiredB.Cmp(minB) < 0 {
			return nil, revert("UniswapV2Router: INSUFFICIENT_B_AMOUNT")
		}
		a, err := c.token(tokenA)
		if err != nil {
			return nil, err
		}
		b, err := c.token(tokenB)
		if err != nil {
			return nil, err
		}
		if err := a.canPull(m.from, m.to, desiredA); err != nil {
			return nil, err
		}
		if err := b.canPull(m.from, m.to, desiredB); err != nil {
			return nil, err
		}
		pair, err := c.token(WantAddress)
		if err != nil {
			return nil, err
		}
		_ = a.pull(m.from, m.to, WantAddress, desiredA)
		_ = b.pull(m.from, m.to, WantAddress, desiredB)

		liquidity := new(big.Int)
		if c.mintLiquidity {
			liquidity.Set(desiredA)
			if desiredB.Cmp(liquidity) < 0 {
				liquidity.Set(desiredB)
			}
			pair.mint(to, liquidity)
		}
		c.liquidity = append(c.liquidity, LiquidityRecord{
			From:           m.from,
			TokenA:         tokenA,
			TokenB:         tokenB,
			AmountADesired: desiredA,
			AmountBDesired: desiredB,
			AmountAMin:     minA,
			AmountBMin:     minB,
			To:             to,
			Deadline:       deadline,
			Liquidity:      liquidity,
		})
		return encodeReturns(fnAddLiquidity, desiredA, desiredB, liquidity)
	}
	return nil, revert("unknown selector")
}

func checkDeadline(c *Chain, deadline *big.Int) error {
	if deadline.Cmp(big.NewInt(c.now().Unix())) < 0 {
		return revert("UniswapV2Router: EXPIRED")
	}
	return nil
}
