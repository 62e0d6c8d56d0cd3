package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	cli "github.com/urfave/cli/v2"

	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/config"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/pipeline"
	"github.com/shuklaayush/WETH-Sushi-SLP-Arbitrum-Strategy/publish/pipeline/guestlist"
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "path to the YAML deployment config",
		EnvVars: []string{"SETT_CONFIG"},
	}
	RPCURLFlag = &cli.StringFlag{
		Name:  "rpc-url",
		Usage: "JSON-RPC endpoint, overrides rpc_url and RPC_URL",
	}
	ChainIDFlag = &cli.Int64Flag{
		Name:  "chain-id",
		Usage: "chain id, overrides chain_id and CHAIN_ID",
	}
	PrivateKeyFlag = &cli.StringFlag{
		Name:  "private-key",
		Usage: "deployer key, overrides private_key and PRIVATE_KEY",
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "overall deadline for the run, overrides timeout",
	}
	GuestListFlag = &cli.BoolFlag{
		Name:  "guest-list",
		Usage: "deploy and install a capped guest list on the sett",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "trace, debug, info, warn, error or crit",
		Value:   "info",
		EnvVars: []string{"LOG_LEVEL"},
	}
	ReportFlag = &cli.StringFlag{
		Name:  "report",
		Usage: "write the handle report to this file instead of stdout",
	}
	ReportInFlag = &cli.StringFlag{
		Name:     "report",
		Usage:    "handle report written by deploy",
		Required: true,
	}
)

var logLevels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

func main() {
	app := cli.NewApp()
	app.Name = "sett-deploy"
	app.Usage = "Deploys and wires a Badger sett with its SushiSwap WETH/SUSHI strategy."
	app.Flags = []cli.Flag{LogLevelFlag}
	app.Commands = []*cli.Command{
		{
			Name:   "deploy",
			Usage:  "deploys controller, sett and strategy, wires them and mints want once",
			Flags:  []cli.Flag{ConfigFlag, RPCURLFlag, ChainIDFlag, PrivateKeyFlag, TimeoutFlag, GuestListFlag, ReportFlag},
			Action: deployCLI,
		},
		{
			Name:   "verify",
			Usage:  "re-reads the wiring of a previous deployment from chain",
			Flags:  []cli.Flag{ConfigFlag, RPCURLFlag, ChainIDFlag, PrivateKeyFlag, TimeoutFlag, ReportInFlag},
			Action: verifyCLI,
		},
	}
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr
	if err := app.Run(os.Args); err != nil {
		exitErr(err)
	}
}

func newLogger(cliCtx *cli.Context) (log.Logger, error) {
	lvl, ok := logLevels[strings.ToLower(cliCtx.String(LogLevelFlag.Name))]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cliCtx.String(LogLevelFlag.Name))
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)), nil
}

// loadConfig reads the config file and lets explicit flags win over both the
// file and the environment.
func loadConfig(cliCtx *cli.Context) (*config.Config, *config.Resolved, error) {
	cfg, err := config.Load(cliCtx.String(ConfigFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	if cliCtx.IsSet(RPCURLFlag.Name) {
		cfg.RPCURL = cliCtx.String(RPCURLFlag.Name)
	}
	if cliCtx.IsSet(ChainIDFlag.Name) {
		cfg.ChainID = cliCtx.Int64(ChainIDFlag.Name)
	}
	if cliCtx.IsSet(PrivateKeyFlag.Name) {
		cfg.PrivateKey = cliCtx.String(PrivateKeyFlag.Name)
	}
	if cliCtx.IsSet(TimeoutFlag.Name) {
		cfg.Timeout = cliCtx.Duration(TimeoutFlag.Name)
	}
	if cliCtx.IsSet(GuestListFlag.Name) {
		cfg.GuestList.Enabled = cliCtx.Bool(GuestListFlag.Name)
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, nil, err
	}
	return cfg, resolved, nil
}

func connect(cfg *config.Config, r *config.Resolved) (*publish.Deployer, error) {
	return publish.NewDeployer(cfg.RPCURL, cfg.ChainID, r.DeployerKey, big.NewInt(cfg.GasFeeCap), big.NewInt(cfg.GasTipCap))
}

func deployCLI(cliCtx *cli.Context) error {
	lgr, err := newLogger(cliCtx)
	if err != nil {
		return err
	}
	cfg, resolved, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	d, err := connect(cfg, resolved)
	if err != nil {
		return err
	}
	defer d.Close()

	env := &pipeline.Env{
		Deployer:  d,
		Artifacts: publish.OpenArtifacts(cfg.Artifacts.Dir),
		Logger:    lgr,
		Config:    cfg,
		Resolved:  resolved,
	}
	if cfg.GuestList.Enabled {
		env.Hooks = append(env.Hooks, guestlist.New(cfg.Artifacts.GuestList, resolved.DepositCap))
	}

	ctx, cancel := context.WithTimeout(cliCtx.Context, cfg.Timeout)
	defer cancel()

	bundle, err := pipeline.Run(ctx, env)
	if err != nil {
		return err
	}

	blob, err := json.MarshalIndent(bundle.Handles(), "", "  ")
	if err != nil {
		return err
	}
	if path := cliCtx.String(ReportFlag.Name); path != "" {
		if err := os.WriteFile(path, append(blob, '\n'), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		lgr.Info("Wrote report", "path", path)
		return nil
	}
	fmt.Fprintln(cliCtx.App.Writer, string(blob))
	return nil
}

func verifyCLI(cliCtx *cli.Context) error {
	lgr, err := newLogger(cliCtx)
	if err != nil {
		return err
	}
	cfg, resolved, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(cliCtx.String(ReportInFlag.Name))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	var handles map[string]common.Address
	if err := json.Unmarshal(blob, &handles); err != nil {
		return fmt.Errorf("parse report: %w", err)
	}

	d, err := connect(cfg, resolved)
	if err != nil {
		return err
	}
	defer d.Close()

	bundle, err := pipeline.FromHandles(handles, d)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cliCtx.Context, cfg.Timeout)
	defer cancel()
	if err := pipeline.Verify(ctx, bundle); err != nil {
		return err
	}
	lgr.Info("Deployment verified", "sett", bundle.Vault.Address, "strategy", bundle.Strategy.Address)
	return nil
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
