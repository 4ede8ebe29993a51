package signer

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

type Kind string

const (
	KindSalt       Kind = "salt"
	KindPrivateKey Kind = "privateKey"
	KindInjected   Kind = "injected"
	KindRemote     Kind = "jwt"
)

// Spec selects a signer variant. Each variant carries only what it needs.
type Spec interface {
	Kind() Kind
}

type SaltSpec struct {
	Salt string
}

type PrivateKeySpec struct {
	Key string
}

type InjectedSpec struct {
	Provider Provider
}

// RemoteSpec locates the signing service either directly through BaseURL or
// by deriving it from BundlerURL.
type RemoteSpec struct {
	BaseURL    string
	BundlerURL string
	Token      TokenProvider
	HTTPClient *resty.Client
}

func (SaltSpec) Kind() Kind       { return KindSalt }
func (PrivateKeySpec) Kind() Kind { return KindPrivateKey }
func (InjectedSpec) Kind() Kind   { return KindInjected }
func (RemoteSpec) Kind() Kind     { return KindRemote }

// New builds the signer for spec. A remote signer comes back initialized.
func New(ctx context.Context, spec Spec, log logger.Logger) (Signer, error) {
	switch s := spec.(type) {
	case SaltSpec:
		return FromSalt(s.Salt)
	case PrivateKeySpec:
		return fromKeySpec(s)
	case InjectedSpec:
		return NewInjectedSigner(ctx, s.Provider)
	case RemoteSpec:
		return newRemote(ctx, s, log)
	case nil:
		return nil, walleterr.New(walleterr.CodeInvalidSignerType, "signer is not configured")
	default:
		return nil, walleterr.New(walleterr.CodeInvalidSignerType, fmt.Sprintf("%s is invalid signer type", spec.Kind()))
	}
}

func fromKeySpec(s PrivateKeySpec) (Signer, error) {
	signer, err := FromPrivateKeyHex(s.Key)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeConfig, fmt.Errorf("invalid private key: %w", err))
	}
	return signer, nil
}

func newRemote(ctx context.Context, s RemoteSpec, log logger.Logger) (Signer, error) {
	baseURL := s.BaseURL
	if baseURL == "" {
		derived, err := RemoteBaseURL(s.BundlerURL)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.CodeConfig, err)
		}
		baseURL = derived
	}

	remote := NewRemoteSigner(baseURL, s.Token, WithRemoteHTTPClient(s.HTTPClient), WithRemoteLogger(log))
	if err := remote.Init(ctx); err != nil {
		return nil, err
	}
	return remote, nil
}
