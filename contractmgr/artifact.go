//
// Created on 2023/5/22 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Artifact is the immutable compiled output of one contract: once cached it
// is never mutated, only evicted wholesale.
type Artifact struct {
	ContractName     string
	CompilerVersion  string
	ABI              abi.ABI
	RawABI           json.RawMessage
	Bytecode         []byte // creation bytecode
	DeployedBytecode []byte
	SourceMap        string
	GasEstimates     json.RawMessage
	Metadata         string
	CompiledAt       time.Time
}

// CompileResult bundles an artifact with the per-compilation side channel:
// compiler warnings and security heuristics findings.
type CompileResult struct {
	Artifact *Artifact
	Warnings []string
	Findings []Finding
	CacheHit bool
}
