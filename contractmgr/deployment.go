//
// Created on 2023/5/24 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type DeploymentStatus string

const (
	StatusPending   DeploymentStatus = "pending"
	StatusCompiling DeploymentStatus = "compiling"
	StatusDeploying DeploymentStatus = "deploying"
	StatusDeployed  DeploymentStatus = "deployed"
	StatusFailed    DeploymentStatus = "failed"
	StatusVerified  DeploymentStatus = "verified"
)

// validTransitions encodes the forward-only deployment state machine:
// pending -> compiling -> deploying -> {deployed|failed}, with the one-way
// optional deployed -> verified tail. Nothing else is reachable.
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	StatusPending:   {StatusCompiling, StatusDeploying, StatusFailed},
	StatusCompiling: {StatusDeploying, StatusFailed},
	StatusDeploying: {StatusDeployed, StatusFailed},
	StatusDeployed:  {StatusVerified},
}

// Deployment tracks one attempt to place a contract's bytecode on a
// network. Created at deploy-request time so that a crash mid-deploy still
// leaves an auditable record.
type Deployment struct {
	ID              string
	ContractName    string
	NetworkID       string
	NetworkName     string
	Address         *common.Address // nil until confirmed
	TxHash          common.Hash
	BlockNumber     uint64
	GasUsed         uint64
	Cost            *big.Int
	RawABI          json.RawMessage
	Bytecode        []byte
	Source          string // empty when deployed from a precompiled artifact
	ConstructorArgs []interface{}
	Status          DeploymentStatus
	Metadata        map[string]string
	CreatedAt       time.Time
}

// setStatus advances the deployment along the state machine, rejecting any
// transition the machine does not define.
func (d *Deployment) setStatus(next DeploymentStatus) error {
	for _, allowed := range validTransitions[d.Status] {
		if allowed == next {
			d.Status = next
			return nil
		}
	}
	return fmt.Errorf("invalid deployment status transition %s -> %s", d.Status, next)
}

// snapshot returns a defensive copy handed to readers; the registry keeps
// the only mutable instance.
func (d *Deployment) snapshot() *Deployment {
	cpy := *d
	if d.Address != nil {
		addr := *d.Address
		cpy.Address = &addr
	}
	if d.Cost != nil {
		cpy.Cost = new(big.Int).Set(d.Cost)
	}
	cpy.Metadata = make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		cpy.Metadata[k] = v
	}
	return &cpy
}
