// Package wallet is the SDK entry point: one TrueWallet owned by one signer.
// Every state changing call becomes exactly one user operation.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/chainio/signer"
	"github.com/truewallet/truewallet-go/core/config"
	"github.com/truewallet/truewallet-go/core/modules"
	"github.com/truewallet/truewallet-go/core/modules/socialrecovery"
	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/metrics"
	"github.com/truewallet/truewallet-go/pkg/eip1559"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
	"github.com/truewallet/truewallet-go/pkg/erc4337/preset"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

// Node is the chain access the wallet needs. *ethclient.Client satisfies it.
type Node interface {
	bind.ContractCaller
	eip1559.FeeSource
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Wallet struct {
	address   common.Address
	contracts config.Contracts
	args      aa.WalletArgs

	node    Node
	bundler preset.Bundler
	signer  signer.Signer
	builder *preset.Builder

	// only a positive answer is kept; a wallet never stops being deployed
	ready atomic.Bool

	registry *modules.Registry
	recovery *socialrecovery.Module
	decimals *bigcache.BigCache

	logger logger.Logger
}

type options struct {
	node     Node
	bundler  preset.Bundler
	signer   signer.Signer
	clock    func() time.Time
	recorder metrics.Recorder
}

type Option func(*options)

// WithNode replaces the RPC connection built from Config.RpcURL.
func WithNode(n Node) Option {
	return func(o *options) { o.node = n }
}

// WithBundler replaces the bundler client built from Config.BundlerURL.
func WithBundler(b preset.Bundler) Option {
	return func(o *options) { o.bundler = b }
}

// WithSigner uses s instead of building one from Config.Signer.
func WithSigner(s signer.Signer) Option {
	return func(o *options) { o.signer = s }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New validates cfg, builds the signer (initializing a remote one), resolves
// the counterfactual wallet address through the factory and checks whether
// the wallet is deployed.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Wallet, error) {
	o := &options{clock: time.Now, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.WithDefaults()
	var except []string
	if o.node != nil {
		except = append(except, "RpcURL")
	}
	if o.bundler != nil {
		except = append(except, "BundlerURL")
	}
	if o.signer != nil {
		except = append(except, "Signer")
	}
	if err := cfg.Validate(except...); err != nil {
		return nil, err
	}

	log := logger.EnsureLogger(cfg.Logger)

	if o.node == nil {
		client, err := ethclient.DialContext(ctx, cfg.RpcURL)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("connect to %s: %w", cfg.RpcURL, err))
		}
		o.node = client
	}

	if o.bundler == nil {
		bopts := []bundler.Option{bundler.WithLogger(log), bundler.WithRecorder(o.recorder)}
		if cfg.ReceiptPollInterval > 0 {
			bopts = append(bopts, bundler.WithPollInterval(cfg.ReceiptPollInterval))
		}
		client, err := bundler.NewClient(cfg.BundlerURL, cfg.Contracts.Entrypoint.Hex(), bopts...)
		if err != nil {
			return nil, err
		}
		o.bundler = client
	}

	if o.signer == nil {
		spec := cfg.Signer
		if rs, ok := spec.(signer.RemoteSpec); ok && rs.BaseURL == "" && rs.BundlerURL == "" {
			rs.BundlerURL = cfg.BundlerURL
			spec = rs
		}
		s, err := signer.New(ctx, spec, log)
		if err != nil {
			return nil, err
		}
		o.signer = s
	}

	args := aa.CreateWalletArgs(cfg.WalletIndex, cfg.Contracts.Entrypoint, o.signer.Address(), cfg.Contracts.SecurityControlModule)
	address, err := aa.WalletAddress(ctx, o.node, cfg.Contracts.Factory, args)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeCallException, fmt.Errorf("resolve wallet address: %w", err))
	}

	decimals, err := bigcache.New(ctx, decimalsCacheConfig)
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		address:   address,
		contracts: cfg.Contracts,
		args:      args,
		node:      o.node,
		bundler:   o.bundler,
		signer:    o.signer,
		decimals:  decimals,
		logger:    log.With("wallet", address.Hex()),
	}

	w.builder, err = preset.NewBuilder(preset.BuilderConfig{
		Node:     o.node,
		Bundler:  o.bundler,
		Signer:   o.signer,
		InitCode: w.initCode,
		Logger:   w.logger,
	})
	if err != nil {
		return nil, err
	}

	w.recovery = socialrecovery.New(moduleHost{w}, cfg.Contracts.SocialRecoveryModule, cfg.Contracts.SecurityControlModule,
		socialrecovery.WithClock(o.clock), socialrecovery.WithLogger(w.logger))
	w.registry = modules.NewRegistry(w.recovery)

	if _, err := w.RefreshReadiness(ctx); err != nil {
		return nil, err
	}

	w.logger.Info("wallet initialized", "owner", o.signer.Address().Hex(), "index", cfg.WalletIndex, "ready", w.ready.Load())
	return w, nil
}

var decimalsCacheConfig = bigcache.Config{
	// number of shards (must be a power of 2)
	Shards:             16,
	LifeWindow:         24 * time.Hour,
	CleanWindow:        time.Hour,
	MaxEntriesInWindow: 1024,
	MaxEntrySize:       8,
	HardMaxCacheSize:   1,
}

func (w *Wallet) Address() common.Address { return w.address }

// Ready reports the cached deployment state. Use RefreshReadiness to look again.
func (w *Wallet) Ready() bool { return w.ready.Load() }

func (w *Wallet) Signer() signer.Signer { return w.signer }

func (w *Wallet) Caller() bind.ContractCaller { return w.node }

func (w *Wallet) Modules() *modules.Registry { return w.registry }

func (w *Wallet) SocialRecovery() *socialrecovery.Module { return w.recovery }

// Close releases the decimals cache.
func (w *Wallet) Close() error {
	return w.decimals.Close()
}

func (w *Wallet) initCode(context.Context) ([]byte, error) {
	return aa.InitCode(w.contracts.Factory, w.args)
}

// moduleHost lets modules send operations through the owner checked execute.
type moduleHost struct {
	w *Wallet
}

func (h moduleHost) Address() common.Address     { return h.w.address }
func (h moduleHost) Caller() bind.ContractCaller { return h.w.node }

func (h moduleHost) Execute(ctx context.Context, payload []byte, target common.Address, value *big.Int) (*bundler.OperationResponse, error) {
	return h.w.Execute(ctx, ExecuteParams{Payload: payload, Target: target, Value: value})
}
