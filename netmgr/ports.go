//
// Created on 2023/5/12 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"fmt"
	"net"
	"sync"
)

// portAllocator hands out free local TCP ports by asking the kernel for an
// ephemeral port and releasing the probe listener immediately. Ports handed
// out recently are remembered so that two concurrent CreateNetwork calls
// cannot be given the same port before their processes bind it.
type portAllocator struct {
	host     string
	reserved map[int]struct{}
	mtx      sync.Mutex
}

func newPortAllocator(host string) *portAllocator {
	return &portAllocator{
		host:     host,
		reserved: make(map[int]struct{}),
	}
}

func (pa *portAllocator) allocate() (int, error) {
	pa.mtx.Lock()
	defer pa.mtx.Unlock()
	for attempt := 0; attempt < 16; attempt++ {
		listener, err := net.Listen("tcp", net.JoinHostPort(pa.host, "0"))
		if err != nil {
			return 0, err
		}
		port := listener.Addr().(*net.TCPAddr).Port
		listener.Close()
		if _, taken := pa.reserved[port]; taken {
			continue
		}
		pa.reserved[port] = struct{}{}
		return port, nil
	}
	return 0, fmt.Errorf("could not allocate a free port on %s", pa.host)
}

// release returns a port to the pool once its owning process has exited or
// failed to start.
func (pa *portAllocator) release(port int) {
	pa.mtx.Lock()
	defer pa.mtx.Unlock()
	delete(pa.reserved, port)
}
