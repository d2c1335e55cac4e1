package contractmgr

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"

	"github.com/verichains/chain-sandbox/netmgr"
)

var testChainID = big.NewInt(31337)

// simulatedBackend implements netmgr.ChainBackend in-memory. Every call is
// counted so tests can assert that certain failures never touch the network.
type simulatedBackend struct {
	deployedAddr common.Address
	sendErr      error

	calls        int
	estimateGas  int
	transactions map[common.Hash]*types.Transaction
	mtx          sync.Mutex
}

func newSimulatedBackend() *simulatedBackend {
	return &simulatedBackend{
		deployedAddr: common.HexToAddress("0xabc0000000000000000000000000000000000123"),
		transactions: make(map[common.Hash]*types.Transaction),
	}
}

func (b *simulatedBackend) track() {
	b.mtx.Lock()
	b.calls++
	b.mtx.Unlock()
}

func (b *simulatedBackend) callCount() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.calls
}

func (b *simulatedBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	b.track()
	return []byte{0x01}, nil
}

func (b *simulatedBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.track()
	return nil, nil
}

func (b *simulatedBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.track()
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1_000_000_000)}, nil
}

func (b *simulatedBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	b.track()
	return nil, nil
}

func (b *simulatedBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.track()
	return 0, nil
}

func (b *simulatedBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b.track()
	return big.NewInt(1_000_000_000), nil
}

func (b *simulatedBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	b.track()
	return big.NewInt(1_000_000_000), nil
}

func (b *simulatedBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	b.track()
	b.mtx.Lock()
	b.estimateGas++
	b.mtx.Unlock()
	return 300_000, nil
}

func (b *simulatedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.track()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.mtx.Lock()
	b.transactions[tx.Hash()] = tx
	b.mtx.Unlock()
	return nil
}

func (b *simulatedBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.track()
	b.mtx.Lock()
	_, known := b.transactions[txHash]
	b.mtx.Unlock()
	if !known {
		return nil, errors.New("transaction not found")
	}
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		ContractAddress:   b.deployedAddr,
		BlockNumber:       big.NewInt(7),
		GasUsed:           210_000,
		EffectiveGasPrice: big.NewInt(1_000_000_000),
		TxHash:            txHash,
	}, nil
}

func (b *simulatedBackend) BlockNumber(ctx context.Context) (uint64, error) {
	b.track()
	return 7, nil
}

func (b *simulatedBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.track()
	return big.NewInt(0), nil
}

func (b *simulatedBackend) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	b.track()
	return nil, nil
}

func (b *simulatedBackend) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	b.track()
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	}), nil
}

// testNetwork implements TargetNetwork on top of a simulated backend.
type testNetwork struct {
	id      string
	name    string
	key     *ecdsa.PrivateKey
	backend *simulatedBackend
	downErr error
}

func newTestNetwork(t *testing.T) *testNetwork {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &testNetwork{
		id:      "net-1",
		name:    "sandbox-test",
		key:     key,
		backend: newSimulatedBackend(),
	}
}

func (n *testNetwork) ID() string        { return n.id }
func (n *testNetwork) Name() string      { return n.name }
func (n *testNetwork) ChainID() *big.Int { return new(big.Int).Set(testChainID) }

func (n *testNetwork) Backend() (netmgr.ChainBackend, error) {
	if n.downErr != nil {
		return nil, n.downErr
	}
	return n.backend, nil
}

func (n *testNetwork) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if n.downErr != nil {
		return nil, n.downErr
	}
	opts, err := bind.NewKeyedTransactorWithChainID(n.key, testChainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}
