// Package config holds the in-memory wallet configuration. The library never
// reads files or environment variables; LoadFile exists for the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/chainio/signer"
	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

// Contracts are the deployments a wallet talks to.
type Contracts struct {
	Factory               common.Address `validate:"required"`
	Entrypoint            common.Address `validate:"required"`
	SecurityControlModule common.Address `validate:"required"`
	SocialRecoveryModule  common.Address `validate:"required"`
}

// DefaultContracts has no factory; it must always be configured.
var DefaultContracts = Contracts{
	Entrypoint:            aa.DefaultEntrypointAddress,
	SecurityControlModule: aa.DefaultSecurityControlModuleAddress,
	SocialRecoveryModule:  aa.DefaultSocialRecoveryModuleAddress,
}

type Config struct {
	RpcURL     string      `validate:"required,url"`
	BundlerURL string      `validate:"required,url"`
	Signer     signer.Spec `validate:"required"`
	Contracts  Contracts

	// WalletIndex selects which of the owner's counterfactual wallets to use.
	WalletIndex uint64

	// zero means the bundler client default
	ReceiptPollInterval time.Duration `validate:"gte=0"`

	Logger logger.Logger `validate:"-"`
}

var validate = validator.New()

// WithDefaults returns a copy with every unset contract filled from
// DefaultContracts.
func (c Config) WithDefaults() Config {
	fill := func(v *common.Address, def common.Address) {
		if *v == (common.Address{}) {
			*v = def
		}
	}
	fill(&c.Contracts.Factory, DefaultContracts.Factory)
	fill(&c.Contracts.Entrypoint, DefaultContracts.Entrypoint)
	fill(&c.Contracts.SecurityControlModule, DefaultContracts.SecurityControlModule)
	fill(&c.Contracts.SocialRecoveryModule, DefaultContracts.SocialRecoveryModule)
	return c
}

// Validate reports every invalid field in one CONFIG_ERROR. Fields named in
// except, such as "Signer", are skipped.
func (c Config) Validate(except ...string) error {
	var err error
	if len(except) > 0 {
		err = validate.StructExcept(c, except...)
	} else {
		err = validate.Struct(c)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return walleterr.Wrap(walleterr.CodeConfig, err)
	}

	fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
	})
	return walleterr.New(walleterr.CodeConfig,
		"invalid config: "+strings.Join(fields, ", "),
		map[string]interface{}{"fields": fields})
}
