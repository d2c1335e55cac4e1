//
// Created on 2023/5/16 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
)

type NetworkState uint32

const (
	StateInitializing NetworkState = iota
	StateActive
	StateDestroyed
)

func (s NetworkState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// NetworkInstance is one sandbox network: either a locally spawned chain
// process (fresh or forked from an upstream) or a handle onto a configured
// remote provider. The NetworkManager owns the instance for its whole
// lifetime; consumers only borrow the chain backend to issue transactions.
type NetworkInstance struct {
	id        string
	name      string
	chainID   *big.Int
	port      int // 0 for remote instances
	forkURL   string
	forkBlock uint64
	explorer  string
	createdAt time.Time

	state  NetworkState
	proc   *chainProcess // nil for remote instances
	client *ethclient.Client
	shared bool              // client is the provider's, do not close on destroy
	key    *ecdsa.PrivateKey // deployment signer, may be nil for remote

	mtx sync.RWMutex
}

func (n *NetworkInstance) ID() string            { return n.id }
func (n *NetworkInstance) Name() string          { return n.name }
func (n *NetworkInstance) ChainID() *big.Int     { return new(big.Int).Set(n.chainID) }
func (n *NetworkInstance) Port() int             { return n.port }
func (n *NetworkInstance) ForkURL() string       { return n.forkURL }
func (n *NetworkInstance) ForkBlock() uint64     { return n.forkBlock }
func (n *NetworkInstance) BlockExplorer() string { return n.explorer }
func (n *NetworkInstance) CreatedAt() time.Time  { return n.createdAt }

func (n *NetworkInstance) State() NetworkState {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.state
}

// Backend returns the chain-interaction handle of the instance. Destroyed
// instances accept no further transactions.
func (n *NetworkInstance) Backend() (ChainBackend, error) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if n.state == StateDestroyed {
		return nil, ErrNetworkDestroyed
	}
	return n.client, nil
}

// Transactor returns signed transaction options for the instance's funded
// deployment account.
func (n *NetworkInstance) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	if n.state == StateDestroyed {
		return nil, ErrNetworkDestroyed
	}
	if n.key == nil {
		return nil, ErrProviderUnavailable
	}
	opts, err := bind.NewKeyedTransactorWithChainID(n.key, n.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// destroy flips the instance to destroyed so no new transactions are
// accepted, then tears down the process handle. Safe to call once only;
// the manager guards against double destruction.
func (n *NetworkInstance) destroy() {
	n.mtx.Lock()
	n.state = StateDestroyed
	proc := n.proc
	client := n.client
	shared := n.shared
	n.proc = nil
	n.client = nil
	n.mtx.Unlock()

	if client != nil && !shared {
		client.Close()
	}
	if proc != nil {
		proc.stop()
	}
}
