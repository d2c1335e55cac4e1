//
// Created on 2023/5/22 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotInitialized        = errors.New("contract manager not initialized")
	ErrContractTooLarge      = errors.New("compiled bytecode exceeds maximum contract size")
	ErrDeploymentNotFound    = errors.New("deployment not found")
	ErrInvalidContractFormat = errors.New("invalid contract format")
	ErrContractNotFound      = errors.New("contract not found in compiler output")
	ErrTemplateNotFound      = errors.New("template not found")
	ErrNotDeployed           = errors.New("deployment has no confirmed address")
)

// CompilationError carries the error-severity diagnostics the compiler
// toolchain reported for a source unit.
type CompilationError struct {
	ContractName string
	Errors       []string
	Warnings     []string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compilation of %s failed: %s", e.ContractName, strings.Join(e.Errors, "; "))
}
