package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/urfave/cli.v1"

	"github.com/verichains/chain-sandbox/contractmgr"
	"github.com/verichains/chain-sandbox/netmgr"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app *cli.App
)

func init() {
	app = cli.NewApp()
	app.Name = filepath.Base(os.Args[0])
	app.Usage = "Disposable blockchain sandbox daemon"
	app.Version = fmt.Sprintf("%s - %s ", gitCommit, gitDate)
	app.Flags = []cli.Flag{
		configFileFlag,
		chainBinaryFlag,
		solcFlag,
		metricsAddrFlag,
		verbosityFlag,
	}
	app.Action = run
}

// makeAppConfig reads the provided TOML configuration file, if config file
// is not specified default config is used. Command line flags override the
// file.
func makeAppConfig(ctx *cli.Context) *appConfig {
	config := appConfig{
		Network:  netmgr.DefaultConfig,
		Contract: contractmgr.DefaultConfig,
	}
	configFile := ctx.String(configFileFlag.Name)
	if configFile != "" {
		if err := loadTOMLConfig(configFile, &config); err != nil {
			fmt.Fprintf(os.Stderr, "Could not load config file %s: %v\n", configFile, err)
			os.Exit(1)
		}
	}
	if binary := ctx.String(chainBinaryFlag.Name); binary != "" {
		config.Network.ChainBinary = binary
	}
	if solc := ctx.String(solcFlag.Name); solc != "" {
		config.Contract.SolcPath = solc
	}
	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		config.MetricsAddr = addr
	}
	return &config
}

func setupLogger(ctx *cli.Context) {
	verbosity := log.Lvl(ctx.Int(verbosityFlag.Name))
	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	log.Root().SetHandler(log.LvlFilterHandler(verbosity, handler))
}

func run(ctx *cli.Context) error {
	setupLogger(ctx)
	config := makeAppConfig(ctx)

	networkMgr, err := netmgr.NewNetworkManager(&config.Network)
	if err != nil {
		return err
	}
	contractMgr, err := contractmgr.NewContractManager(&config.Contract)
	if err != nil {
		networkMgr.Shutdown()
		return err
	}

	if config.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("Serving metrics", "addr", config.MetricsAddr)
			if err := http.ListenAndServe(config.MetricsAddr, mux); err != nil {
				log.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	log.Info("Sandbox daemon started", "upstreams", len(config.Network.Upstreams))
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	<-sigCh
	log.Info("Got interrupt, shutting down...")
	go func() {
		for i := 10; i > 0; i-- {
			<-sigCh
			if i > 1 {
				log.Warn("Already shutting down, interrupt more to panic.", "times", i-1)
			}
		}
		panic("boom")
	}()

	contractMgr.Shutdown()
	networkMgr.Shutdown()
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
