//
// Created on 2023/5/24 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/verichains/chain-sandbox/netmgr"
)

// TargetNetwork is the borrowed view of a network instance the contract
// manager deploys onto. *netmgr.NetworkInstance implements it; the contract
// manager never owns the instance's lifecycle.
type TargetNetwork interface {
	ID() string
	Name() string
	ChainID() *big.Int
	Backend() (netmgr.ChainBackend, error)
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
}
