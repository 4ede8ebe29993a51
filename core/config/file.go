package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/truewallet/truewallet-go/core/chainio/signer"
	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

// These are read from the CLI config file
type ConfigRaw struct {
	RpcURL              string        `yaml:"rpc_url"`
	BundlerURL          string        `yaml:"bundler_url"`
	WalletIndex         uint64        `yaml:"wallet_index"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval"`
	Development         bool          `yaml:"development"`

	Signer    SignerRaw    `yaml:"signer"`
	Contracts ContractsRaw `yaml:"contracts"`
}

// SignerRaw mirrors the signer tagged union: type is one of salt,
// privateKey, injected (data is the provider RPC url) or jwt (data is the
// token).
type SignerRaw struct {
	Type string `yaml:"type"`
	Data string `yaml:"data"`
}

type ContractsRaw struct {
	Factory               string `yaml:"factory"`
	Entrypoint            string `yaml:"entrypoint"`
	SecurityControlModule string `yaml:"security_control_module"`
	SocialRecoveryModule  string `yaml:"social_recovery_module"`
}

// LoadFile reads a YAML config, applies defaults and validates it.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("read config %s: %w", path, err))
	}

	var configRaw ConfigRaw
	if err := yaml.Unmarshal(raw, &configRaw); err != nil {
		return nil, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("parse config %s: %w", path, err))
	}
	return configRaw.Build()
}

func (r ConfigRaw) Build() (*Config, error) {
	contracts, err := r.Contracts.parse()
	if err != nil {
		return nil, err
	}

	spec, err := r.Signer.spec(r.BundlerURL)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(r.Development)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		RpcURL:              r.RpcURL,
		BundlerURL:          r.BundlerURL,
		Signer:              spec,
		Contracts:           contracts,
		WalletIndex:         r.WalletIndex,
		ReceiptPollInterval: r.ReceiptPollInterval,
		Logger:              log,
	}.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r ContractsRaw) parse() (Contracts, error) {
	var c Contracts
	for _, f := range []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"factory", r.Factory, &c.Factory},
		{"entrypoint", r.Entrypoint, &c.Entrypoint},
		{"security_control_module", r.SecurityControlModule, &c.SecurityControlModule},
		{"social_recovery_module", r.SocialRecoveryModule, &c.SocialRecoveryModule},
	} {
		if f.value == "" {
			continue
		}
		if !common.IsHexAddress(f.value) {
			return c, walleterr.Newf(walleterr.CodeConfig, "contracts.%s: invalid address %q", f.name, f.value)
		}
		*f.dst = common.HexToAddress(f.value)
	}
	return c, nil
}

func (s SignerRaw) spec(bundlerURL string) (signer.Spec, error) {
	switch signer.Kind(s.Type) {
	case signer.KindSalt:
		return signer.SaltSpec{Salt: s.Data}, nil
	case signer.KindPrivateKey:
		return signer.PrivateKeySpec{Key: s.Data}, nil
	case signer.KindRemote:
		return signer.RemoteSpec{BundlerURL: bundlerURL, Token: signer.StaticToken(s.Data)}, nil
	case signer.KindInjected:
		provider, err := signer.DialProvider(context.Background(), s.Data)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("dial signer provider: %w", err))
		}
		return signer.InjectedSpec{Provider: provider}, nil
	case "":
		return nil, nil
	default:
		return nil, walleterr.Newf(walleterr.CodeInvalidSignerType, "%s is invalid signer type", s.Type)
	}
}
