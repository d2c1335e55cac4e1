//
// Created on 2023/5/22 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"time"

	"github.com/ethereum/go-ethereum/params"
)

var DefaultConfig = Config{
	SolcPath:        "solc",
	MaxContractSize: params.MaxCodeSize,
	CacheSize:       256,
	VerifyDelay:     2 * time.Second,
}

type Config struct {
	SolcPath        string        // path to the solc binary
	MaxContractSize uint64        `toml:",omitempty"` // EIP-170 deployed code limit
	CacheSize       int           `toml:",omitempty"` // max cached compilation artifacts
	VerifyDelay     time.Duration `toml:",omitempty"`
	AllowUnsafeCode bool
}

func (config *Config) Sanitize() error {
	if len(config.SolcPath) == 0 {
		config.SolcPath = DefaultConfig.SolcPath
	}
	if config.MaxContractSize == 0 {
		config.MaxContractSize = DefaultConfig.MaxContractSize
	}
	if config.CacheSize == 0 {
		config.CacheSize = DefaultConfig.CacheSize
	}
	if config.VerifyDelay == 0 {
		config.VerifyDelay = DefaultConfig.VerifyDelay
	}
	return nil
}
