//
// Created on 2023/5/16 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package netmgr

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/verichains/chain-sandbox/metrics"
)

const statusProbeTimeout = 5 * time.Second

type NetworkType string

const (
	NetworkLocal  NetworkType = "local"
	NetworkRemote NetworkType = "remote"
)

// CreateOptions selects the provisioning path of a new network. A local
// type, or any fork option, spawns a fresh chain process; a remote type
// binds the instance to the pre-initialized provider named by Name.
type CreateOptions struct {
	Name      string
	Type      NetworkType
	ChainID   uint64
	Port      int    // 0 allocates a free port
	ForkFrom  string // name of a configured upstream to fork from
	ForkURL   string // explicit fork RPC url, overrides ForkFrom
	ForkBlock uint64 // fork at this block, 0 means latest
}

type upstreamProvider struct {
	cfg    UpstreamConfig
	client *ethclient.Client
}

// UpstreamStatus reports one configured provider's reachability.
type UpstreamStatus struct {
	Name        string
	ChainID     uint64
	Connected   bool
	BlockHeight uint64
	Error       string
}

type Status struct {
	Healthy        bool
	ActiveNetworks int
	Upstreams      []UpstreamStatus
}

// NetworkManager owns every sandbox network instance and the table of
// configured upstream providers used as fork sources or remote targets.
type NetworkManager struct {
	config    *Config
	ports     *portAllocator
	instances map[string]*NetworkInstance
	providers map[string]*upstreamProvider

	feed  event.Feed
	scope event.SubscriptionScope

	closed bool
	mtx    sync.Mutex
}

func NewNetworkManager(config *Config) (*NetworkManager, error) {
	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	m := &NetworkManager{
		config:    config,
		ports:     newPortAllocator(config.ListenHost),
		instances: make(map[string]*NetworkInstance),
		providers: make(map[string]*upstreamProvider),
	}
	for _, upstream := range config.Upstreams {
		if upstream.RPCUrl == "" {
			continue
		}
		client, err := ethclient.Dial(upstream.RPCUrl)
		if err != nil {
			log.Error("Could not initialize upstream provider", "network", upstream.Name, "error", err)
			continue
		}
		m.providers[upstream.Name] = &upstreamProvider{cfg: upstream, client: client}
		log.Info("Initialized upstream provider", "network", upstream.Name, "chainid", upstream.ChainID)
	}
	return m, nil
}

// CreateNetwork provisions a new network instance. Provisioning failures
// surface synchronously and register nothing.
func (m *NetworkManager) CreateNetwork(ctx context.Context, opts CreateOptions) (*NetworkInstance, error) {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return nil, ErrNotInitialized
	}
	m.mtx.Unlock()

	var (
		instance *NetworkInstance
		err      error
	)
	if opts.Type == NetworkLocal || opts.ForkFrom != "" || opts.ForkURL != "" {
		instance, err = m.createLocalNetwork(ctx, opts)
	} else {
		instance, err = m.createRemoteNetwork(opts)
	}
	if err != nil {
		return nil, err
	}

	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		instance.destroy()
		if instance.port != 0 {
			m.ports.release(instance.port)
		}
		return nil, ErrNotInitialized
	}
	m.instances[instance.id] = instance
	m.mtx.Unlock()

	metrics.NetworksCreated.Inc()
	m.feed.Send(Event{Type: NetworkCreated, ID: instance.id, Name: instance.name, Port: instance.port, Time: time.Now()})
	log.Info("Network created", "id", instance.id, "name", instance.name, "port", instance.port, "fork", instance.forkURL != "")
	return instance, nil
}

func (m *NetworkManager) createLocalNetwork(ctx context.Context, opts CreateOptions) (*NetworkInstance, error) {
	cfg := m.config
	forkURL, explorer := opts.ForkURL, ""
	chainID := opts.ChainID
	if forkURL == "" && opts.ForkFrom != "" {
		upstream := cfg.upstream(opts.ForkFrom)
		if upstream == nil || upstream.RPCUrl == "" {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, opts.ForkFrom)
		}
		forkURL = upstream.RPCUrl
		explorer = upstream.BlockExplorer
		if chainID == 0 {
			chainID = upstream.ChainID
		}
	}
	if chainID == 0 {
		chainID = cfg.DefaultChainID
	}

	port := opts.Port
	if port == 0 {
		allocated, err := m.ports.allocate()
		if err != nil {
			return nil, err
		}
		port = allocated
	}

	args := []string{
		"--port", strconv.Itoa(port),
		"--chain-id", strconv.FormatUint(chainID, 10),
		"--accounts", strconv.Itoa(cfg.NumAccounts),
		"--balance", strconv.FormatUint(cfg.AccountBalance, 10),
		"--mnemonic", devMnemonic,
	}
	if forkURL != "" {
		args = append(args, "--fork-url", forkURL)
		if opts.ForkBlock > 0 {
			args = append(args, "--fork-block-number", strconv.FormatUint(opts.ForkBlock, 10))
		}
	}

	started := time.Now()
	proc, err := startChainProcess(ctx, cfg.ChainBinary, args, port, cfg.StartupTimeout, cfg.KillGrace)
	if err != nil {
		m.ports.release(port)
		metrics.NetworkStartupFailures.Inc()
		log.Error("Could not start chain process", "name", opts.Name, "port", port, "error", err)
		return nil, err
	}
	metrics.NetworkStartupDuration.Observe(time.Since(started).Seconds())

	endpoint := fmt.Sprintf("http://%s:%d", cfg.ListenHost, port)
	client, err := ethclient.Dial(endpoint)
	if err != nil {
		proc.stop()
		m.ports.release(port)
		return nil, err
	}
	key, err := crypto.HexToECDSA(devAccount0PrivHex)
	if err != nil {
		proc.stop()
		m.ports.release(port)
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("sandbox-%d", port)
	}
	return &NetworkInstance{
		id:        uuid.New().String(),
		name:      name,
		chainID:   new(big.Int).SetUint64(chainID),
		port:      port,
		forkURL:   forkURL,
		forkBlock: opts.ForkBlock,
		explorer:  explorer,
		createdAt: time.Now(),
		state:     StateActive,
		proc:      proc,
		client:    client,
		key:       key,
	}, nil
}

func (m *NetworkManager) createRemoteNetwork(opts CreateOptions) (*NetworkInstance, error) {
	m.mtx.Lock()
	provider, ok := m.providers[opts.Name]
	m.mtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, opts.Name)
	}
	instance := &NetworkInstance{
		id:        uuid.New().String(),
		name:      provider.cfg.Name,
		chainID:   new(big.Int).SetUint64(provider.cfg.ChainID),
		explorer:  provider.cfg.BlockExplorer,
		createdAt: time.Now(),
		state:     StateActive,
		client:    provider.client,
		shared:    true,
	}
	if provider.cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(provider.cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key for network %s: %w", opts.Name, err)
		}
		instance.key = key
	}
	return instance, nil
}

// DestroyNetwork removes the instance from the active set and tears it
// down. The teardown is fire-and-forget: the graceful-then-forced kill runs
// on its own timer and the caller never waits for process exit.
func (m *NetworkManager) DestroyNetwork(id string) error {
	m.mtx.Lock()
	instance, ok := m.instances[id]
	if !ok {
		m.mtx.Unlock()
		return ErrNetworkNotFound
	}
	delete(m.instances, id)
	m.mtx.Unlock()

	port := instance.port
	instance.destroy()
	if port != 0 {
		m.ports.release(port)
	}
	metrics.NetworksDestroyed.Inc()
	m.feed.Send(Event{Type: NetworkDestroyed, ID: instance.id, Name: instance.name, Port: port, Time: time.Now()})
	log.Info("Network destroyed", "id", id, "name", instance.name)
	return nil
}

func (m *NetworkManager) GetNetwork(id string) (*NetworkInstance, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if instance, ok := m.instances[id]; ok {
		return instance, nil
	}
	// fall back to name lookup
	for _, instance := range m.instances {
		if instance.name == id {
			return instance, nil
		}
	}
	return nil, ErrNetworkNotFound
}

func (m *NetworkManager) ListNetworks() []*NetworkInstance {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	instances := make([]*NetworkInstance, 0, len(m.instances))
	for _, instance := range m.instances {
		instances = append(instances, instance)
	}
	return instances
}

// Status probes every configured upstream provider for its current block
// height. The sandbox is healthy as long as at least one provider responds.
func (m *NetworkManager) Status(ctx context.Context) *Status {
	m.mtx.Lock()
	providers := make([]*upstreamProvider, 0, len(m.providers))
	for _, provider := range m.providers {
		providers = append(providers, provider)
	}
	active := len(m.instances)
	m.mtx.Unlock()

	status := &Status{ActiveNetworks: active}
	var wg sync.WaitGroup
	results := make([]UpstreamStatus, len(providers))
	for i, provider := range providers {
		wg.Add(1)
		go func(i int, provider *upstreamProvider) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
			defer cancel()
			result := UpstreamStatus{Name: provider.cfg.Name, ChainID: provider.cfg.ChainID}
			height, err := provider.client.BlockNumber(probeCtx)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.Connected = true
				result.BlockHeight = height
			}
			results[i] = result
		}(i, provider)
	}
	wg.Wait()
	for _, result := range results {
		if result.Connected {
			status.Healthy = true
		}
	}
	status.Upstreams = results
	return status
}

func (m *NetworkManager) IsHealthy(ctx context.Context) bool {
	return m.Status(ctx).Healthy
}

// Shutdown destroys all active instances concurrently, best effort. Each
// instance's teardown failure is isolated and only logged.
func (m *NetworkManager) Shutdown() {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return
	}
	m.closed = true
	instances := make([]*NetworkInstance, 0, len(m.instances))
	for _, instance := range m.instances {
		instances = append(instances, instance)
	}
	m.instances = make(map[string]*NetworkInstance)
	providers := m.providers
	m.providers = make(map[string]*upstreamProvider)
	m.mtx.Unlock()

	log.Info("Shutting down network manager", "networks", len(instances))
	var wg sync.WaitGroup
	for _, instance := range instances {
		wg.Add(1)
		go func(instance *NetworkInstance) {
			defer wg.Done()
			defer func() {
				if err := recover(); err != nil {
					log.Error("Network teardown panicked", "id", instance.id, "error", err)
				}
			}()
			port := instance.port
			instance.destroy()
			if port != 0 {
				m.ports.release(port)
			}
			metrics.NetworksDestroyed.Inc()
		}(instance)
	}
	wg.Wait()

	for name, provider := range providers {
		provider.client.Close()
		log.Debug("Closed upstream provider", "network", name)
	}
	m.scope.Close()
	log.Info("Network manager stopped")
}
