//
// Created on 2023/5/22 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// pragmaMarker identifies raw Solidity source in a deploy request.
const pragmaMarker = "pragma solidity"

var solcVersionRegex = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

// CompileOptions tune a single compilation. Imports supplies additional
// named source units referenced by the main source.
type CompileOptions struct {
	CompilerVersion string
	Optimize        bool
	OptimizeRuns    int
	EVMVersion      string
	Imports         map[string]string
	ForceRecompile  bool
}

// Compiler abstracts the external compiler toolchain. Input and output
// follow the solc standard-JSON contract.
type Compiler interface {
	Version() string
	Compile(ctx context.Context, sources map[string]string, opts *CompileOptions) (*CompilerOutput, error)
}

// Diagnostic is one compiler message, split by severity downstream.
type Diagnostic struct {
	Severity         string `json:"severity"`
	Type             string `json:"type"`
	Message          string `json:"message"`
	FormattedMessage string `json:"formattedMessage"`
}

type CompiledContract struct {
	ABI      json.RawMessage `json:"abi"`
	Metadata string          `json:"metadata"`
	EVM      struct {
		Bytecode struct {
			Object    string `json:"object"`
			SourceMap string `json:"sourceMap"`
		} `json:"bytecode"`
		DeployedBytecode struct {
			Object string `json:"object"`
		} `json:"deployedBytecode"`
		GasEstimates json.RawMessage `json:"gasEstimates"`
	} `json:"evm"`
}

// CompilerOutput is the parsed standard-JSON result: diagnostics plus the
// compiled contracts keyed by source unit and contract name.
type CompilerOutput struct {
	Errors    []Diagnostic                           `json:"errors"`
	Contracts map[string]map[string]CompiledContract `json:"contracts"`
}

// findContract locates the named contract in any of the output's source
// units.
func (out *CompilerOutput) findContract(name string) (*CompiledContract, bool) {
	for _, contracts := range out.Contracts {
		if contract, ok := contracts[name]; ok {
			return &contract, true
		}
	}
	return nil, false
}

type solcInput struct {
	Language string                `json:"language"`
	Sources  map[string]solcSource `json:"sources"`
	Settings solcSettings          `json:"settings"`
}

type solcSource struct {
	Content string `json:"content"`
}

type solcSettings struct {
	Optimizer       solcOptimizer                  `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type solcOptimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs,omitempty"`
}

// SolcCompiler invokes the solc binary in standard-JSON mode. The binary is
// a separate OS process; the sandbox never links compiler internals.
type SolcCompiler struct {
	path string

	versionOnce sync.Once
	version     string
}

func NewSolcCompiler(path string) *SolcCompiler {
	return &SolcCompiler{path: path}
}

// Version reports the toolchain version, probed once from `solc --version`.
func (c *SolcCompiler) Version() string {
	c.versionOnce.Do(func() {
		out, err := exec.Command(c.path, "--version").Output()
		if err != nil {
			log.Warn("Could not probe compiler version", "solc", c.path, "error", err)
			c.version = "unknown"
			return
		}
		if match := solcVersionRegex.FindSubmatch(out); match != nil {
			c.version = string(match[1])
		} else {
			c.version = "unknown"
		}
	})
	return c.version
}

func (c *SolcCompiler) Compile(ctx context.Context, sources map[string]string, opts *CompileOptions) (*CompilerOutput, error) {
	input := solcInput{
		Language: "Solidity",
		Sources:  make(map[string]solcSource, len(sources)),
		Settings: solcSettings{
			Optimizer:  solcOptimizer{Enabled: opts.Optimize, Runs: opts.OptimizeRuns},
			EVMVersion: opts.EVMVersion,
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {
					"abi",
					"metadata",
					"evm.bytecode.object",
					"evm.bytecode.sourceMap",
					"evm.deployedBytecode.object",
					"evm.gasEstimates",
				}},
			},
		},
	}
	for name, content := range sources {
		input.Sources[name] = solcSource{Content: content}
	}
	encoded, err := json.Marshal(&input)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, c.path, "--standard-json")
	cmd.Stdin = bytes.NewReader(encoded)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("solc invocation failed: %v: %s", err, stderr.String())
	}
	var output CompilerOutput
	if err := json.Unmarshal(out, &output); err != nil {
		return nil, fmt.Errorf("could not parse solc output: %w", err)
	}
	return &output, nil
}
