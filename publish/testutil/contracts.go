package testutil

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
)

// Contract kinds recognised in creation code, named after their artifacts.
const (
	KindController = "Controller"
	KindSett       = "SettV4"
	KindStrategy   = "StrategySushiWethSushi"
	KindGuestList  = "VipCappedGuestListWrapperUpgradeable"
)

var (
	fnCtrlInitialize   = w3.MustNewFunc("initialize(address,address,address,address)", "")
	fnSetVault         = w3.MustNewFunc("setVault(address,address)", "")
	fnApproveStrategy  = w3.MustNewFunc("approveStrategy(address,address)", "")
	fnSetStrategy      = w3.MustNewFunc("setStrategy(address,address)", "")
	fnGovernance       = w3.MustNewFunc("governance()", "address")
	fnStrategist       = w3.MustNewFunc("strategist()", "address")
	fnVaults           = w3.MustNewFunc("vaults(address)", "address")
	fnStrategies       = w3.MustNewFunc("strategies(address)", "address")
	fnApprovedStrategy = w3.MustNewFunc("approvedStrategies(address,address)", "bool")

	fnSettInitialize = w3.MustNewFunc("initialize(address,address,address,address,address,bool,string,string)", "")
	fnUnpause        = w3.MustNewFunc("unpause()", "")
	fnSetGuestList   = w3.MustNewFunc("setGuestList(address)", "")
	fnToken          = w3.MustNewFunc("token()", "address")
	fnController     = w3.MustNewFunc("controller()", "address")
	fnPaused         = w3.MustNewFunc("paused()", "bool")
	fnGuestList      = w3.MustNewFunc("guestList()", "address")

	fnStratInitialize = w3.MustNewFunc("initialize(address,address,address,address,address,address[3],uint256[3])", "")
	fnWant            = w3.MustNewFunc("want()", "address")
	fnReward          = w3.MustNewFunc("reward()", "address")
	fnWETHToken       = w3.MustNewFunc("WETH_TOKEN()", "address")
	fnRouter          = w3.MustNewFunc("SUSHISWAP_ROUTER()", "address")
	fnPerfFeeGov      = w3.MustNewFunc("performanceFeeGovernance()", "uint256")
	fnPerfFeeStrat    = w3.MustNewFunc("performanceFeeStrategist()", "uint256")
	fnWithdrawalFee   = w3.MustNewFunc("withdrawalFee()", "uint256")

	fnGuestInitialize = w3.MustNewFunc("initialize(address)", "")
	fnSetGuests       = w3.MustNewFunc("setGuests(address[],bool[])", "")
	fnSetDepositCap   = w3.MustNewFunc("setUserDepositCap(uint256)", "")
	fnWrapper         = w3.MustNewFunc("wrapper()", "address")
	fnGuests          = w3.MustNewFunc("guests(address)", "bool")
	fnUserDepositCap  = w3.MustNewFunc("userDepositCap()", "uint256")

	fnDeployAndCall = w3.MustNewFunc("deployAndCall(address,address,bytes)", "address")
	fnAdminOf       = w3.MustNewFunc("adminOf(address)", "address")
	evDeployed      = w3.MustNewEvent("Deployed(address indexed,address indexed,address indexed)")
)

var errAlreadyInitialized = revert("Initializable: contract is already initialized")

type controllerSim struct {
	initialized bool
	governance  common.Address
	strategist  common.Address
	keeper      common.Address
	rewards     common.Address
	vaults      map[common.Address]common.Address
	strategies  map[common.Address]common.Address
	approved    map[[2]common.Address]bool
}

func newController() *controllerSim {
	return &controllerSim{
		vaults:     map[common.Address]common.Address{},
		strategies: map[common.Address]common.Address{},
		approved:   map[[2]common.Address]bool{},
	}
}

func (s *controllerSim) kind() string { return KindController }

func (s *controllerSim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnCtrlInitialize.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if s.initialized {
			return nil, errAlreadyInitialized
		}
		if err := fnCtrlInitialize.DecodeArgs(m.data, &s.governance, &s.strategist, &s.keeper, &s.rewards); err != nil {
			return nil, err
		}
		s.initialized = true
		return nil, nil
	case fnSetVault.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var token, vault common.Address
		if err := fnSetVault.DecodeArgs(m.data, &token, &vault); err != nil {
			return nil, err
		}
		if m.from != s.strategist && m.from != s.governance {
			return nil, revert("!strategist")
		}
		if s.vaults[token] != (common.Address{}) {
			return nil, revert("vault")
		}
		s.vaults[token] = vault
		return nil, nil
	case fnApproveStrategy.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var token, strategy common.Address
		if err := fnApproveStrategy.DecodeArgs(m.data, &token, &strategy); err != nil {
			return nil, err
		}
		if m.from != s.governance {
			return nil, revert("!governance")
		}
		s.approved[[2]common.Address{token, strategy}] = true
		return nil, nil
	case fnSetStrategy.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var token, strategy common.Address
		if err := fnSetStrategy.DecodeArgs(m.data, &token, &strategy); err != nil {
			return nil, err
		}
		if m.from != s.strategist && m.from != s.governance {
			return nil, revert("!strategist")
		}
		if !s.approved[[2]common.Address{token, strategy}] {
			return nil, revert("!approved")
		}
		s.strategies[token] = strategy
		return nil, nil
	case fnGovernance.Selector:
		return encodeReturns(fnGovernance, s.governance)
	case fnStrategist.Selector:
		return encodeReturns(fnStrategist, s.strategist)
	case fnVaults.Selector:
		var token common.Address
		if err := fnVaults.DecodeArgs(m.data, &token); err != nil {
			return nil, err
		}
		return encodeReturns(fnVaults, s.vaults[token])
	case fnStrategies.Selector:
		var token common.Address
		if err := fnStrategies.DecodeArgs(m.data, &token); err != nil {
			return nil, err
		}
		return encodeReturns(fnStrategies, s.strategies[token])
	case fnApprovedStrategy.Selector:
		var token, strategy common.Address
		if err := fnApprovedStrategy.DecodeArgs(m.data, &token, &strategy); err != nil {
			return nil, err
		}
		return encodeReturns(fnApprovedStrategy, s.approved[[2]common.Address{token, strategy}])
	}
	return nil, revert("unknown selector")
}

type settSim struct {
	initialized  bool
	token        common.Address
	controller   common.Address
	governance   common.Address
	keeper       common.Address
	guardian     common.Address
	overrideName bool
	namePrefix   string
	symbolPrefix string
	paused       bool
	guestList    common.Address
}

func newSett() *settSim { return &settSim{} }

func (s *settSim) kind() string { return KindSett }

func (s *settSim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnSettInitialize.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if s.initialized {
			return nil, errAlreadyInitialized
		}
		if err := fnSettInitialize.DecodeArgs(m.data,
			&s.token, &s.controller, &s.governance, &s.keeper, &s.guardian,
			&s.overrideName, &s.namePrefix, &s.symbolPrefix,
		); err != nil {
			return nil, err
		}
		s.initialized = true
		s.paused = true
		return nil, nil
	case fnUnpause.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if m.from != s.governance {
			return nil, revert("onlyGovernance")
		}
		s.paused = false
		return nil, nil
	case fnSetGuestList.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if m.from != s.governance {
			return nil, revert("onlyGovernance")
		}
		return nil, fnSetGuestList.DecodeArgs(m.data, &s.guestList)
	case fnToken.Selector:
		return encodeReturns(fnToken, s.token)
	case fnController.Selector:
		return encodeReturns(fnController, s.controller)
	case fnGovernance.Selector:
		return encodeReturns(fnGovernance, s.governance)
	case fnPaused.Selector:
		return encodeReturns(fnPaused, s.paused)
	case fnGuestList.Selector:
		return encodeReturns(fnGuestList, s.guestList)
	}
	return nil, revert("unknown selector")
}

type strategySim struct {
	initialized bool
	governance  common.Address
	strategist  common.Address
	controller  common.Address
	keeper      common.Address
	guardian    common.Address
	wantConfig  [3]common.Address
	feeConfig   [3]*big.Int
}

func newStrategy() *strategySim { return &strategySim{} }

func (s *strategySim) kind() string { return KindStrategy }

func (s *strategySim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnStratInitialize.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if s.initialized {
			return nil, errAlreadyInitialized
		}
		if err := fnStratInitialize.DecodeArgs(m.data,
			&s.governance, &s.strategist, &s.controller, &s.keeper, &s.guardian,
			&s.wantConfig, &s.feeConfig,
		); err != nil {
			return nil, err
		}
		s.initialized = true
		return nil, nil
	case fnWant.Selector:
		return encodeReturns(fnWant, s.wantConfig[0])
	case fnReward.Selector:
		return encodeReturns(fnReward, s.wantConfig[2])
	case fnWETHToken.Selector:
		return encodeReturns(fnWETHToken, WETHAddress)
	case fnRouter.Selector:
		return encodeReturns(fnRouter, RouterAddress)
	case fnController.Selector:
		return encodeReturns(fnController, s.controller)
	case fnGovernance.Selector:
		return encodeReturns(fnGovernance, s.governance)
	case fnPerfFeeGov.Selector:
		return encodeReturns(fnPerfFeeGov, s.fee(0))
	case fnPerfFeeStrat.Selector:
		return encodeReturns(fnPerfFeeStrat, s.fee(1))
	case fnWithdrawalFee.Selector:
		return encodeReturns(fnWithdrawalFee, s.fee(2))
	}
	return nil, revert("unknown selector")
}

func (s *strategySim) fee(i int) *big.Int {
	if s.feeConfig[i] == nil {
		return new(big.Int)
	}
	return s.feeConfig[i]
}

type guestListSim struct {
	initialized bool
	wrapper     common.Address
	guests      map[common.Address]bool
	depositCap  *big.Int
}

func newGuestList() *guestListSim {
	return &guestListSim{guests: map[common.Address]bool{}, depositCap: new(big.Int)}
}

func (s *guestListSim) kind() string { return KindGuestList }

func (s *guestListSim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnGuestInitialize.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		if s.initialized {
			return nil, errAlreadyInitialized
		}
		if err := fnGuestInitialize.DecodeArgs(m.data, &s.wrapper); err != nil {
			return nil, err
		}
		s.initialized = true
		return nil, nil
	case fnSetGuests.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			guests  []common.Address
			invited []bool
		)
		if err := fnSetGuests.DecodeArgs(m.data, &guests, &invited); err != nil {
			return nil, err
		}
		if len(guests) != len(invited) {
			return nil, revert("length mismatch")
		}
		for i, g := range guests {
			s.guests[g] = invited[i]
		}
		return nil, nil
	case fnSetDepositCap.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var limit *big.Int
		if err := fnSetDepositCap.DecodeArgs(m.data, &limit); err != nil {
			return nil, err
		}
		s.depositCap = limit
		return nil, nil
	case fnWrapper.Selector:
		return encodeReturns(fnWrapper, s.wrapper)
	case fnGuests.Selector:
		var account common.Address
		if err := fnGuests.DecodeArgs(m.data, &account); err != nil {
			return nil, err
		}
		return encodeReturns(fnGuests, s.guests[account])
	case fnUserDepositCap.Selector:
		return encodeReturns(fnUserDepositCap, s.depositCap)
	}
	return nil, revert("unknown selector")
}

// factorySim deploys a fresh instance of the implementation's kind and runs
// the initializer against it, standing in for an ERC1967 proxy.
type factorySim struct {
	nonce  uint64
	admins map[common.Address]common.Address
}

func (f *factorySim) kind() string { return "ERC1967Factory" }

func (f *factorySim) exec(c *Chain, m *message) ([]byte, error) {
	switch selector(m.data) {
	case fnDeployAndCall.Selector:
		if err := m.mutating(); err != nil {
			return nil, err
		}
		var (
			impl, admin common.Address
			data        []byte
		)
		if err := fnDeployAndCall.DecodeArgs(m.data, &impl, &admin, &data); err != nil {
			return nil, err
		}
		implementation, ok := c.contracts[impl]
		if !ok {
			return nil, revert("implementation has no code")
		}
		instance, err := contractFromBytecode(Bytecode(implementation.kind()))
		if err != nil {
			return nil, err
		}

		proxy := crypto.CreateAddress(m.to, f.nonce)
		c.contracts[proxy] = instance
		if len(data) > 0 {
			sub := &message{from: m.to, to: proxy, value: new(big.Int), data: data}
			if _, err := c.call(sub); err != nil {
				delete(c.contracts, proxy)
				return nil, err
			}
			m.logs = append(m.logs, sub.logs...)
		}
		f.nonce++
		f.admins[proxy] = admin
		m.logs = append(m.logs, &types.Log{
			Address: m.to,
			Topics: []common.Hash{
				evDeployed.Topic0,
				common.BytesToHash(proxy.Bytes()),
				common.BytesToHash(impl.Bytes()),
				common.BytesToHash(admin.Bytes()),
			},
			Data: []byte{},
		})
		return encodeReturns(fnDeployAndCall, proxy)
	case fnAdminOf.Selector:
		var proxy common.Address
		if err := fnAdminOf.DecodeArgs(m.data, &proxy); err != nil {
			return nil, err
		}
		return encodeReturns(fnAdminOf, f.admins[proxy])
	}
	return nil, revert("unknown selector")
}
