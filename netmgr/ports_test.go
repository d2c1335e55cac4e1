package netmgr

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortAllocatorDistinct(t *testing.T) {
	pa := newPortAllocator("127.0.0.1")
	seen := make(map[int]struct{})
	for i := 0; i < 8; i++ {
		port, err := pa.allocate()
		require.NoError(t, err)
		require.Greater(t, port, 0)
		_, dup := seen[port]
		require.False(t, dup, "port %d handed out twice", port)
		seen[port] = struct{}{}
	}
}

func TestPortAllocatorPortUsable(t *testing.T) {
	pa := newPortAllocator("127.0.0.1")
	port, err := pa.allocate()
	require.NoError(t, err)

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	listener.Close()
	pa.release(port)
}

func TestPortAllocatorRelease(t *testing.T) {
	pa := newPortAllocator("127.0.0.1")
	port, err := pa.allocate()
	require.NoError(t, err)
	require.Len(t, pa.reserved, 1)
	pa.release(port)
	require.Len(t, pa.reserved, 0)
}
