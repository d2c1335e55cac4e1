//
// Created on 2023/5/25 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/verichains/chain-sandbox/metrics"
	"github.com/verichains/chain-sandbox/netmgr"
)

// DeployRequest describes one deployment: either raw Solidity source
// (recognized by its pragma directive) or a precompiled artifact.
type DeployRequest struct {
	Network         TargetNetwork
	ContractName    string
	Source          string
	Artifact        *Artifact
	ConstructorArgs []interface{}
	GasLimit        uint64 // 0 estimates gas before submission
	Value           *big.Int
	CompileOptions  CompileOptions
	Metadata        map[string]string
}

type VerifyOptions struct {
	Verifier string // label stamped into the verification metadata
}

// ContractManager compiles, security-screens, deploys and tracks contracts
// on sandbox networks. Deployments are independent of each other; there is
// no global lock around the deploy pipeline.
type ContractManager struct {
	config    *Config
	compiler  Compiler
	cache     *compileCache
	registry  *deploymentRegistry
	templates map[string]string

	feed  event.Feed
	scope event.SubscriptionScope

	closed bool
	mtx    sync.Mutex
}

func NewContractManager(config *Config) (*ContractManager, error) {
	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	cache, err := newCompileCache(config.CacheSize)
	if err != nil {
		return nil, err
	}
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	log.Info("Initialized contract manager", "templates", len(templates), "cachesize", config.CacheSize)
	return &ContractManager{
		config:    config,
		compiler:  NewSolcCompiler(config.SolcPath),
		cache:     cache,
		registry:  newDeploymentRegistry(),
		templates: templates,
	}, nil
}

// Compile compiles the named contract from source, consulting the artifact
// cache first. A cache hit skips the toolchain entirely. Error-severity
// diagnostics abort with a CompilationError; security findings never do.
func (m *ContractManager) Compile(ctx context.Context, source, contractName string, opts *CompileOptions) (*CompileResult, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &CompileOptions{}
	}
	version := opts.CompilerVersion
	if version == "" {
		version = m.compiler.Version()
	}

	key := cacheKey(source, contractName, version)
	if !opts.ForceRecompile {
		if entry, ok := m.cache.get(key); ok {
			metrics.CompileCacheHits.Inc()
			log.Debug("Compilation cache hit", "contract", contractName, "key", key)
			return &CompileResult{Artifact: entry.artifact, Warnings: entry.warnings, Findings: entry.findings, CacheHit: true}, nil
		}
	}

	sources := map[string]string{contractName + ".sol": source}
	for name, content := range opts.Imports {
		sources[name] = content
	}
	output, err := m.compiler.Compile(ctx, sources, opts)
	if err != nil {
		return nil, err
	}
	metrics.ContractsCompiled.Inc()

	var compileErrors, warnings []string
	for _, diag := range output.Errors {
		message := diag.FormattedMessage
		if message == "" {
			message = diag.Message
		}
		if diag.Severity == "error" {
			compileErrors = append(compileErrors, message)
		} else {
			warnings = append(warnings, message)
		}
	}
	if len(compileErrors) > 0 {
		return nil, &CompilationError{ContractName: contractName, Errors: compileErrors, Warnings: warnings}
	}

	compiled, ok := output.findContract(contractName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, contractName)
	}
	parsedABI, err := abi.JSON(strings.NewReader(string(compiled.ABI)))
	if err != nil {
		return nil, fmt.Errorf("could not parse ABI of %s: %w", contractName, err)
	}
	artifact := &Artifact{
		ContractName:     contractName,
		CompilerVersion:  version,
		ABI:              parsedABI,
		RawABI:           compiled.ABI,
		Bytecode:         common.FromHex(compiled.EVM.Bytecode.Object),
		DeployedBytecode: common.FromHex(compiled.EVM.DeployedBytecode.Object),
		SourceMap:        compiled.EVM.Bytecode.SourceMap,
		GasEstimates:     compiled.EVM.GasEstimates,
		Metadata:         compiled.Metadata,
		CompiledAt:       time.Now(),
	}

	findings := scanSource(source, m.config.AllowUnsafeCode)
	m.logFindings(contractName, findings)

	m.cache.add(key, &cacheEntry{artifact: artifact, warnings: warnings, findings: findings})
	log.Info("Contract compiled", "contract", contractName, "compiler", version,
		"codesize", len(artifact.DeployedBytecode), "warnings", len(warnings), "findings", len(findings))
	return &CompileResult{Artifact: artifact, Warnings: warnings, Findings: findings}, nil
}

func (m *ContractManager) logFindings(contractName string, findings []Finding) {
	for _, finding := range findings {
		metrics.SecurityFindings.WithLabelValues(string(finding.Severity)).Inc()
		switch finding.Severity {
		case SeverityError:
			log.Error("Security finding", "contract", contractName, "rule", finding.RuleID, "message", finding.Message)
		case SeverityWarning:
			log.Warn("Security finding", "contract", contractName, "rule", finding.RuleID, "message", finding.Message)
		default:
			log.Info("Security finding", "contract", contractName, "rule", finding.RuleID, "message", finding.Message)
		}
	}
}

// Deploy runs the full pipeline: compile (or take the precompiled
// artifact), enforce the code size limit, estimate gas, submit, await
// confirmation. The deployment record is created before any network call
// and every failure is captured into it before being rethrown.
func (m *ContractManager) Deploy(ctx context.Context, req *DeployRequest) (*Deployment, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if req.Network == nil {
		return nil, netmgr.ErrNetworkNotFound
	}
	fromSource := req.Source != ""
	if fromSource && !strings.Contains(req.Source, pragmaMarker) {
		return nil, fmt.Errorf("%w: source has no solidity pragma", ErrInvalidContractFormat)
	}
	if !fromSource && req.Artifact == nil {
		return nil, fmt.Errorf("%w: neither source nor artifact provided", ErrInvalidContractFormat)
	}
	if req.ContractName == "" && req.Artifact != nil {
		req.ContractName = req.Artifact.ContractName
	}

	started := time.Now()
	deployment := &Deployment{
		ID:              uuid.New().String(),
		ContractName:    req.ContractName,
		NetworkID:       req.Network.ID(),
		NetworkName:     req.Network.Name(),
		Source:          req.Source,
		ConstructorArgs: req.ConstructorArgs,
		Status:          StatusPending,
		Metadata:        make(map[string]string),
		CreatedAt:       started,
	}
	for k, v := range req.Metadata {
		deployment.Metadata[k] = v
	}
	m.registry.add(deployment)
	m.emit(deployment.ID, req.ContractName, deployment.NetworkID, StatusPending, "")

	fail := func(cause error) (*Deployment, error) {
		failed, err := m.registry.update(deployment.ID, func(d *Deployment) error {
			d.Metadata["error"] = cause.Error()
			return d.setStatus(StatusFailed)
		})
		if err != nil {
			log.Error("Could not record deployment failure", "id", deployment.ID, "error", err)
		}
		metrics.Deployments.WithLabelValues(string(StatusFailed)).Inc()
		m.emit(deployment.ID, req.ContractName, deployment.NetworkID, StatusFailed, cause.Error())
		log.Error("Deployment failed", "id", deployment.ID, "contract", req.ContractName, "error", cause)
		return failed, cause
	}

	artifact := req.Artifact
	if fromSource {
		if _, err := m.transition(deployment.ID, req.ContractName, deployment.NetworkID, StatusCompiling); err != nil {
			return nil, err
		}
		result, err := m.Compile(ctx, req.Source, req.ContractName, &req.CompileOptions)
		if err != nil {
			return fail(err)
		}
		artifact = result.Artifact
	}
	if _, err := m.registry.update(deployment.ID, func(d *Deployment) error {
		d.RawABI = artifact.RawABI
		d.Bytecode = artifact.Bytecode
		return nil
	}); err != nil {
		return nil, err
	}

	// EIP-170 guard before any network interaction
	codeSize := uint64(len(artifact.DeployedBytecode))
	if codeSize == 0 {
		codeSize = uint64(len(artifact.Bytecode))
	}
	if codeSize > m.config.MaxContractSize {
		return fail(fmt.Errorf("%w: %d > %d bytes", ErrContractTooLarge, codeSize, m.config.MaxContractSize))
	}

	backend, err := req.Network.Backend()
	if err != nil {
		return fail(err)
	}
	auth, err := req.Network.Transactor(ctx)
	if err != nil {
		return fail(err)
	}
	if req.Value != nil {
		auth.Value = req.Value
	}
	if req.GasLimit > 0 {
		auth.GasLimit = req.GasLimit
	} else {
		packed, err := artifact.ABI.Pack("", req.ConstructorArgs...)
		if err != nil {
			return fail(fmt.Errorf("could not pack constructor arguments: %w", err))
		}
		gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  auth.From,
			Data:  append(append([]byte{}, artifact.Bytecode...), packed...),
			Value: auth.Value,
		})
		if err != nil {
			return fail(fmt.Errorf("gas estimation failed: %w", err))
		}
		auth.GasLimit = gas
	}

	if _, err := m.transition(deployment.ID, req.ContractName, deployment.NetworkID, StatusDeploying); err != nil {
		return nil, err
	}
	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, backend, req.ConstructorArgs...)
	if err != nil {
		return fail(fmt.Errorf("deployment transaction failed: %w", err))
	}
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return fail(fmt.Errorf("awaiting deployment confirmation: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(fmt.Errorf("deployment transaction reverted: %s", tx.Hash()))
	}
	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}

	deployed, err := m.registry.update(deployment.ID, func(d *Deployment) error {
		addr := address
		d.Address = &addr
		d.TxHash = tx.Hash()
		if receipt.BlockNumber != nil {
			d.BlockNumber = receipt.BlockNumber.Uint64()
		}
		d.GasUsed = receipt.GasUsed
		gasPrice := receipt.EffectiveGasPrice
		if gasPrice == nil {
			gasPrice = tx.GasPrice()
		}
		d.Cost = new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), gasPrice)
		return d.setStatus(StatusDeployed)
	})
	if err != nil {
		return fail(err)
	}
	metrics.Deployments.WithLabelValues(string(StatusDeployed)).Inc()
	metrics.DeployDuration.Observe(time.Since(started).Seconds())
	m.emit(deployment.ID, req.ContractName, deployment.NetworkID, StatusDeployed, "")
	log.Info("Contract deployed", "id", deployment.ID, "contract", req.ContractName,
		"address", address, "block", deployed.BlockNumber, "gas", deployed.GasUsed)
	return deployed, nil
}

// transition advances the deployment status and broadcasts the change.
func (m *ContractManager) transition(id, contractName, networkID string, next DeploymentStatus) (*Deployment, error) {
	deployment, err := m.registry.update(id, func(d *Deployment) error {
		return d.setStatus(next)
	})
	if err != nil {
		return nil, err
	}
	m.emit(id, contractName, networkID, next, "")
	return deployment, nil
}

func (m *ContractManager) emit(id, contractName, networkID string, status DeploymentStatus, errMsg string) {
	m.feed.Send(DeploymentEvent{
		DeploymentID: id,
		ContractName: contractName,
		NetworkID:    networkID,
		Status:       status,
		Error:        errMsg,
		Time:         time.Now(),
	})
}

// ContractInstance returns a bound handle for invoking a previously
// deployed contract on the given network.
func (m *ContractManager) ContractInstance(deploymentID string, network TargetNetwork) (*bind.BoundContract, error) {
	deployment, err := m.registry.get(deploymentID)
	if err != nil {
		return nil, err
	}
	if deployment.Address == nil {
		return nil, ErrNotDeployed
	}
	parsedABI, err := abi.JSON(strings.NewReader(string(deployment.RawABI)))
	if err != nil {
		return nil, err
	}
	backend, err := network.Backend()
	if err != nil {
		return nil, err
	}
	return bind.NewBoundContract(*deployment.Address, parsedABI, backend, backend, backend), nil
}

// VerifyContract simulates an external verification round-trip and stamps
// the deployment verified. Only confirmed deployments can be verified; the
// state machine rejects everything else.
func (m *ContractManager) VerifyContract(ctx context.Context, deploymentID string, opts *VerifyOptions) (*Deployment, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := m.registry.get(deploymentID); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.config.VerifyDelay):
	}
	verifier := "sandbox"
	if opts != nil && opts.Verifier != "" {
		verifier = opts.Verifier
	}
	verified, err := m.registry.update(deploymentID, func(d *Deployment) error {
		if err := d.setStatus(StatusVerified); err != nil {
			return err
		}
		d.Metadata["verifier"] = verifier
		d.Metadata["verifiedAt"] = time.Now().UTC().Format(time.RFC3339)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.emit(deploymentID, verified.ContractName, verified.NetworkID, StatusVerified, "")
	log.Info("Contract verified", "id", deploymentID, "contract", verified.ContractName, "verifier", verifier)
	return verified, nil
}

func (m *ContractManager) GetDeployment(id string) (*Deployment, error) {
	return m.registry.get(id)
}

func (m *ContractManager) ListDeployments(filter ListFilter) []*Deployment {
	return m.registry.list(filter)
}

func (m *ContractManager) CacheStats() CacheStats {
	return m.cache.stats()
}

func (m *ContractManager) checkOpen() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.closed {
		return ErrNotInitialized
	}
	return nil
}

// Shutdown clears the compilation cache, the deployment registry and the
// loaded templates. Further operations fail with ErrNotInitialized.
func (m *ContractManager) Shutdown() {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return
	}
	m.closed = true
	m.templates = nil
	m.mtx.Unlock()

	m.cache.clear()
	m.registry.clear()
	m.scope.Close()
	log.Info("Contract manager stopped")
}
