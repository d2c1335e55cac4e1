//
// Created on 2023/5/12 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// devMnemonic seeds the deterministic test accounts of every local chain
// process. Account 0 of this mnemonic signs sandbox deployments.
const (
	devMnemonic        = "test test test test test test test test test test test junk"
	devAccount0PrivHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

var DefaultConfig = Config{
	ChainBinary:    "anvil",
	ListenHost:     "127.0.0.1",
	NumAccounts:    10,
	AccountBalance: 10000,
	DefaultChainID: 31337,
	StartupTimeout: 30 * time.Second,
	KillGrace:      5 * time.Second,
}

// UpstreamConfig describes one named upstream network usable as a fork
// source or as a direct remote target. Entries without an RPC url are
// skipped during provider initialization.
type UpstreamConfig struct {
	Name          string
	ChainID       uint64
	RPCUrl        string `toml:",omitempty"`
	BlockExplorer string `toml:",omitempty"`
	PrivateKey    string `toml:"-"` // optional transactor key for remote targets
}

type Config struct {
	ChainBinary string // path to the local chain binary (anvil compatible)
	ListenHost  string `toml:",omitempty"`

	NumAccounts    int    `toml:",omitempty"` // deterministic accounts per local instance
	AccountBalance uint64 `toml:",omitempty"` // initial balance in ether per account
	DefaultChainID uint64 `toml:",omitempty"`

	StartupTimeout time.Duration `toml:",omitempty"` // max wait for the readiness line
	KillGrace      time.Duration `toml:",omitempty"` // grace between SIGTERM and SIGKILL

	Upstreams []UpstreamConfig
}

func (config *Config) Sanitize() error {
	if len(config.ChainBinary) == 0 {
		return errors.New("chain binary must be provided")
	}
	if len(config.ListenHost) == 0 {
		config.ListenHost = DefaultConfig.ListenHost
	}
	if config.NumAccounts == 0 {
		config.NumAccounts = DefaultConfig.NumAccounts
	}
	if config.AccountBalance == 0 {
		config.AccountBalance = DefaultConfig.AccountBalance
	}
	if config.DefaultChainID == 0 {
		config.DefaultChainID = DefaultConfig.DefaultChainID
	}
	if config.StartupTimeout == 0 {
		config.StartupTimeout = DefaultConfig.StartupTimeout
	}
	if config.KillGrace == 0 {
		config.KillGrace = DefaultConfig.KillGrace
	}
	for _, upstream := range config.Upstreams {
		if upstream.RPCUrl == "" {
			log.Warn("Upstream network has no RPC url, skipping", "network", upstream.Name)
		}
	}
	return nil
}

// upstream returns the configuration entry of the given named network.
func (config *Config) upstream(name string) *UpstreamConfig {
	for i := range config.Upstreams {
		if config.Upstreams[i].Name == name {
			return &config.Upstreams[i]
		}
	}
	return nil
}
