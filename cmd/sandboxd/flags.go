package main

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	chainBinaryFlag = cli.StringFlag{
		Name:  "chain-binary",
		Usage: "Path to the local chain binary used for sandbox networks",
	}
	solcFlag = cli.StringFlag{
		Name:  "solc",
		Usage: "Path to the solc binary",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Address to serve prometheus metrics on (empty disables metrics)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
)
