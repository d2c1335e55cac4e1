//
// Created on 2023/5/15 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// readyMarker is the line prefix the chain binary emits on stdout once its
// RPC endpoint is listening.
const readyMarker = "Listening on"

// chainProcess supervises a single external chain binary. It owns the OS
// process from spawn to exit and implements the two-phase termination
// protocol: graceful signal first, forced kill after the grace window. The
// forced kill is armed with a timer so it fires even when the caller never
// waits for the process to exit.
type chainProcess struct {
	cmd       *exec.Cmd
	port      int
	killGrace time.Duration

	exited   chan struct{} // closed once Wait returns
	exitErr  error
	stopOnce sync.Once
}

// startChainProcess spawns the chain binary and blocks until it reports
// readiness on stdout, it exits, it writes to its error stream, or the
// startup timeout elapses. On any failure the process is torn down and no
// handle is returned.
func startChainProcess(ctx context.Context, binary string, args []string, port int, timeout, killGrace time.Duration) (*chainProcess, error) {
	cmd := exec.Command(binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	proc := &chainProcess{
		cmd:       cmd,
		port:      port,
		killGrace: killGrace,
		exited:    make(chan struct{}),
	}

	readyCh := make(chan struct{}, 1)
	errCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.Contains(line, readyMarker) {
				select {
				case readyCh <- struct{}{}:
				default:
				}
			}
			log.Trace("Chain process output", "port", port, "line", line)
		}
	}()
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			select {
			case errCh <- line:
			default:
			}
			log.Debug("Chain process stderr", "port", port, "line", line)
		}
	}()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessStartupFailure, err)
	}
	go func() {
		proc.exitErr = cmd.Wait()
		close(proc.exited)
	}()

	select {
	case <-readyCh:
		log.Debug("Chain process ready", "pid", cmd.Process.Pid, "port", port)
		return proc, nil
	case line := <-errCh:
		proc.stop()
		return nil, fmt.Errorf("%w: %s", ErrProcessStartupFailure, line)
	case <-proc.exited:
		if proc.exitErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrProcessStartupFailure, proc.exitErr)
		}
		return nil, fmt.Errorf("%w: process exited before listening", ErrProcessStartupFailure)
	case <-ctx.Done():
		proc.stop()
		return nil, ctx.Err()
	case <-time.After(timeout):
		proc.stop()
		return nil, ErrProcessStartupTimeout
	}
}

// pid returns the OS process id, or 0 if the process never started.
func (p *chainProcess) pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// stop initiates termination and returns immediately. The process receives
// SIGTERM right away and SIGKILL once the grace window passes without it
// exiting on its own.
func (p *chainProcess) stop() {
	p.stopOnce.Do(func() {
		if p.cmd.Process == nil {
			return
		}
		pid := p.cmd.Process.Pid
		if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			log.Debug("Could not signal chain process", "pid", pid, "error", err)
		}
		killTimer := time.AfterFunc(p.killGrace, func() {
			log.Warn("Chain process did not exit in time, killing", "pid", pid)
			if err := p.cmd.Process.Kill(); err != nil {
				log.Error("Could not kill chain process", "pid", pid, "error", err)
			}
		})
		go func() {
			<-p.exited
			killTimer.Stop()
			log.Debug("Chain process exited", "pid", pid)
		}()
	})
}
