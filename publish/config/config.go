// Package config loads the deployment configuration: RPC endpoint, role
// identities, token addresses, fee schedule and the parameters of the
// liquidity exercise run after wiring.
package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/controller"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/guestlist"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/sett"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/contracts/strategy"
)

const (
	DefaultTimeout      = 10 * time.Minute
	DefaultDeadline     = 20 * time.Minute
	DefaultMinAmountBps = 50
	DefaultGasFeeCap    = 2_000_000_000
	DefaultGasTipCap    = 1_000_000_000
)

type Config struct {
	RPCURL            string        `yaml:"rpc_url"`
	ChainID           int64         `yaml:"chain_id"`
	PrivateKey        string        `yaml:"private_key"`
	GasFeeCap         int64         `yaml:"gas_fee_cap"`
	GasTipCap         int64         `yaml:"gas_tip_cap"`
	Timeout           time.Duration `yaml:"timeout"`
	ImpersonateMethod string        `yaml:"impersonate_method"`
	ProxyFactory      string        `yaml:"proxy_factory"`

	Artifacts Artifacts `yaml:"artifacts"`
	Roles     Roles     `yaml:"roles"`

	Want            string   `yaml:"want"`
	RewardToken     string   `yaml:"reward_token"`
	ProtectedTokens []string `yaml:"protected_tokens"`
	Fees            []int64  `yaml:"fees"`

	Vault     Vault     `yaml:"vault"`
	Exercise  Exercise  `yaml:"exercise"`
	GuestList GuestList `yaml:"guest_list"`
}

type Artifacts struct {
	Dir        string `yaml:"dir"`
	Controller string `yaml:"controller"`
	Vault      string `yaml:"vault"`
	Strategy   string `yaml:"strategy"`
	GuestList  string `yaml:"guest_list"`
}

// Roles holds the operational identities. Empty strategist, keeper and
// guardian fall back to the deployer; an empty rewards address falls back to
// governance.
type Roles struct {
	Governance    string `yaml:"governance"`
	GovernanceKey string `yaml:"governance_key"`
	Strategist    string `yaml:"strategist"`
	Keeper        string `yaml:"keeper"`
	Guardian      string `yaml:"guardian"`
	Rewards       string `yaml:"rewards"`
}

type Vault struct {
	OverrideTokenName bool   `yaml:"override_token_name"`
	NamePrefix        string `yaml:"name_prefix"`
	SymbolPrefix      string `yaml:"symbol_prefix"`
}

type Exercise struct {
	DepositAmount string        `yaml:"deposit_amount"`
	MinAmountBps  uint64        `yaml:"min_amount_bps"`
	Deadline      time.Duration `yaml:"deadline"`
}

type GuestList struct {
	Enabled    bool   `yaml:"enabled"`
	DepositCap string `yaml:"deposit_cap"`
}

func Default() *Config {
	return &Config{
		GasFeeCap:         DefaultGasFeeCap,
		GasTipCap:         DefaultGasTipCap,
		Timeout:           DefaultTimeout,
		ImpersonateMethod: publish.DefaultImpersonateMethod,
		Artifacts: Artifacts{
			Dir:        "build/contracts",
			Controller: controller.Name(),
			Vault:      sett.Name(),
			Strategy:   strategy.Name(),
			GuestList:  guestlist.Name(),
		},
		Vault: Vault{
			NamePrefix:   "prefix",
			SymbolPrefix: "PREFIX",
		},
		Exercise: Exercise{
			DepositAmount: "50 ether",
			MinAmountBps:  DefaultMinAmountBps,
			Deadline:      DefaultDeadline,
		},
		GuestList: GuestList{
			DepositCap: "100000000",
		},
	}
}

// Load reads the YAML file at path on top of Default and applies environment
// overrides. An empty path yields the defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(blob, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	c.RPCURL = envOr("RPC_URL", c.RPCURL)
	c.ChainID = envInt64("CHAIN_ID", c.ChainID)
	c.PrivateKey = envOr("PRIVATE_KEY", c.PrivateKey)
	c.GasFeeCap = envInt64("GAS_FEE_CAP", c.GasFeeCap)
	c.GasTipCap = envInt64("GAS_TIP_CAP", c.GasTipCap)
	c.Roles.Governance = envOr("GOVERNANCE", c.Roles.Governance)
	c.Roles.GovernanceKey = envOr("GOVERNANCE_KEY", c.Roles.GovernanceKey)
	c.Artifacts.Dir = envOr("ARTIFACTS_DIR", c.Artifacts.Dir)
	c.ProxyFactory = envOr("PROXY_FACTORY", c.ProxyFactory)
}

// Resolved is the validated, typed form of Config.
type Resolved struct {
	DeployerKey   *ecdsa.PrivateKey
	GovernanceKey *ecdsa.PrivateKey

	Deployer   common.Address
	Governance common.Address
	Strategist common.Address
	Keeper     common.Address
	Guardian   common.Address
	Rewards    common.Address

	ProxyFactory common.Address

	Want            common.Address
	RewardToken     common.Address
	ProtectedTokens [3]common.Address
	Fees            [3]*big.Int

	DepositAmount *big.Int
	DepositCap    *big.Int
}

func (c *Config) Resolve() (*Resolved, error) {
	if c.RPCURL == "" || c.ChainID == 0 || c.PrivateKey == "" {
		return nil, errors.New("rpc-url, chain-id and private-key are required")
	}

	var (
		r   Resolved
		err error
	)
	r.DeployerKey, r.Deployer, err = ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, err
	}

	if c.Roles.Governance == "" {
		return nil, errors.New("roles.governance is required")
	}
	if r.Governance, err = parseAddress("roles.governance", c.Roles.Governance); err != nil {
		return nil, err
	}
	if c.Roles.GovernanceKey != "" {
		var govAddr common.Address
		r.GovernanceKey, govAddr, err = ParsePrivateKey(c.Roles.GovernanceKey)
		if err != nil {
			return nil, fmt.Errorf("roles.governance_key: %w", err)
		}
		if govAddr != r.Governance {
			return nil, fmt.Errorf("roles.governance_key address %s does not match governance %s", govAddr.Hex(), r.Governance.Hex())
		}
	}

	for _, role := range []struct {
		field    string
		value    string
		fallback common.Address
		out      *common.Address
	}{
		{"roles.strategist", c.Roles.Strategist, r.Deployer, &r.Strategist},
		{"roles.keeper", c.Roles.Keeper, r.Deployer, &r.Keeper},
		{"roles.guardian", c.Roles.Guardian, r.Deployer, &r.Guardian},
		{"roles.rewards", c.Roles.Rewards, r.Governance, &r.Rewards},
	} {
		*role.out = role.fallback
		if role.value == "" {
			continue
		}
		if *role.out, err = parseAddress(role.field, role.value); err != nil {
			return nil, err
		}
	}

	if c.ProxyFactory != "" {
		if r.ProxyFactory, err = parseAddress("proxy_factory", c.ProxyFactory); err != nil {
			return nil, err
		}
	}
	if r.Want, err = parseAddress("want", c.Want); err != nil {
		return nil, err
	}
	if r.RewardToken, err = parseAddress("reward_token", c.RewardToken); err != nil {
		return nil, err
	}

	if len(c.ProtectedTokens) != len(r.ProtectedTokens) {
		return nil, fmt.Errorf("protected_tokens: want %d addresses, got %d", len(r.ProtectedTokens), len(c.ProtectedTokens))
	}
	for i, v := range c.ProtectedTokens {
		if r.ProtectedTokens[i], err = parseAddress(fmt.Sprintf("protected_tokens[%d]", i), v); err != nil {
			return nil, err
		}
	}
	if len(c.Fees) != len(r.Fees) {
		return nil, fmt.Errorf("fees: want %d values, got %d", len(r.Fees), len(c.Fees))
	}
	for i, fee := range c.Fees {
		if fee < 0 || fee > 10_000 {
			return nil, fmt.Errorf("fees[%d]: %d bps out of range", i, fee)
		}
		r.Fees[i] = big.NewInt(fee)
	}

	if r.DepositAmount, err = ParseAmount(c.Exercise.DepositAmount); err != nil {
		return nil, fmt.Errorf("exercise.deposit_amount: %w", err)
	}
	if r.DepositAmount.Sign() <= 0 {
		return nil, errors.New("exercise.deposit_amount must be positive")
	}
	if c.Exercise.MinAmountBps > 10_000 {
		return nil, fmt.Errorf("exercise.min_amount_bps: %d out of range", c.Exercise.MinAmountBps)
	}
	if c.Exercise.Deadline <= 0 {
		return nil, errors.New("exercise.deadline must be positive")
	}
	if c.GuestList.Enabled {
		if r.DepositCap, err = ParseAmount(c.GuestList.DepositCap); err != nil {
			return nil, fmt.Errorf("guest_list.deposit_cap: %w", err)
		}
	}

	return &r, nil
}

func ParsePrivateKey(v string) (*ecdsa.PrivateKey, common.Address, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "0x")
	key, err := crypto.HexToECDSA(v)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func parseAddress(field, v string) (common.Address, error) {
	v = strings.TrimSpace(v)
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address: %q", field, v)
	}
	return common.HexToAddress(v), nil
}

var units = map[string]*big.Int{
	"wei":   big.NewInt(1),
	"gwei":  big.NewInt(1e9),
	"ether": big.NewInt(1e18),
}

// ParseAmount parses "<integer> [wei|gwei|ether]". A bare integer is wei.
func ParseAmount(v string) (*big.Int, error) {
	fields := strings.Fields(v)
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	n, ok := new(big.Int).SetString(fields[0], 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", v)
	}
	if len(fields) == 2 {
		unit, ok := units[strings.ToLower(fields[1])]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q", fields[1])
		}
		n.Mul(n, unit)
	}
	return n, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
