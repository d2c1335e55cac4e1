//
// Created on 2023/5/12 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"errors"
)

var (
	ErrNotInitialized        = errors.New("network manager not initialized")
	ErrNetworkNotFound       = errors.New("network not found")
	ErrNetworkDestroyed      = errors.New("network already destroyed")
	ErrProviderUnavailable   = errors.New("no provider configured for network")
	ErrProcessStartupTimeout = errors.New("chain process startup timed out")
	ErrProcessStartupFailure = errors.New("chain process failed to start")
)
