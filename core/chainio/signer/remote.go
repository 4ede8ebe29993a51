package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/truewallet/truewallet-go/core/walleterr"
	"github.com/truewallet/truewallet-go/pkg/logger"
)

const (
	getAddressPath  = "wallets/get-address"
	signMessagePath = "wallets/sign-message"

	messageTypePersonalSign = "personal_sign"
	walletTypeEVM           = "evm"
)

// TokenProvider returns a bearer token. It is called before every request so
// rotated or refreshed tokens are picked up.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken wraps a fixed token.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// RemoteBaseURL derives {origin}/{version}/{projectKey} from a bundler URL of
// the form {origin}/{version}/.../{projectKey}.
func RemoteBaseURL(bundlerURL string) (string, error) {
	u, err := url.Parse(bundlerURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("bundler url %q has no origin", bundlerURL)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" {
		return "", fmt.Errorf("bundler url %q has no version and project key", bundlerURL)
	}

	version := segments[0]
	projectKey := segments[len(segments)-1]
	return fmt.Sprintf("%s://%s/%s/%s", u.Scheme, u.Host, version, projectKey), nil
}

type addressRequest struct {
	JwtToken string `json:"jwt_token"`
}

type addressResponse struct {
	Address common.Address `json:"address"`
}

type signRequest struct {
	JwtToken    string `json:"jwt_token"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	WalletType  string `json:"wallet_type"`
}

type signResponse struct {
	Signature hexutil.Bytes `json:"signature"`
}

type errorResponse struct {
	Detail interface{} `json:"detail"`
}

// fieldError is one entry of a list-shaped 400 detail.
type fieldError struct {
	Loc []interface{} `mapstructure:"loc"`
	Msg string        `mapstructure:"msg"`
}

// RemoteSigner obtains its address and signatures from a signing service.
// It must be initialized exactly once before use.
type RemoteSigner struct {
	http    *resty.Client
	baseURL string
	token   TokenProvider
	logger  logger.Logger

	mu          sync.Mutex
	initialized bool
	address     common.Address
}

type RemoteOption func(*RemoteSigner)

func WithRemoteHTTPClient(h *resty.Client) RemoteOption {
	return func(s *RemoteSigner) {
		if h != nil {
			s.http = h
		}
	}
}

func WithRemoteLogger(l logger.Logger) RemoteOption {
	return func(s *RemoteSigner) { s.logger = logger.EnsureLogger(l) }
}

func NewRemoteSigner(baseURL string, token TokenProvider, opts ...RemoteOption) *RemoteSigner {
	s := &RemoteSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http == nil {
		s.http = resty.New().SetTimeout(30 * time.Second)
	}
	return s
}

// Init fetches and caches the signer address. A second call fails.
func (s *RemoteSigner) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return walleterr.New(walleterr.CodeJwtInitSigner, "remote signer is already initialized")
	}

	token, err := s.bearer(ctx)
	if err != nil {
		return err
	}

	var resp addressResponse
	if err := s.post(ctx, getAddressPath, addressRequest{JwtToken: token}, &resp); err != nil {
		return err
	}

	s.address = resp.Address
	s.initialized = true
	s.logger.Info("remote signer initialized", "address", s.address.Hex())
	return nil
}

func (s *RemoteSigner) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Address returns the zero address before Init.
func (s *RemoteSigner) Address() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *RemoteSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if !s.Initialized() {
		return nil, walleterr.New(walleterr.CodeJwtInitSigner, "remote signer is not initialized")
	}

	token, err := s.bearer(ctx)
	if err != nil {
		return nil, err
	}

	var resp signResponse
	req := signRequest{
		JwtToken:    token,
		Message:     hexutil.Encode(message),
		MessageType: messageTypePersonalSign,
		WalletType:  walletTypeEVM,
	}
	if err := s.post(ctx, signMessagePath, req, &resp); err != nil {
		return nil, err
	}

	sig, err := normalizeV(resp.Signature)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.CodeJwtSigner, err)
	}
	return sig, nil
}

// bearer fetches a token and checks it parses as a JWT before any request
// goes out. The signature is verified by the service, not here.
func (s *RemoteSigner) bearer(ctx context.Context) (string, error) {
	if s.token == nil {
		return "", walleterr.New(walleterr.CodeJwtSignerInvalidJwt, "no token provider configured")
	}
	token, err := s.token(ctx)
	if err != nil {
		return "", walleterr.Wrap(walleterr.CodeJwtSignerInvalidCredential, err)
	}
	if _, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err != nil {
		return "", walleterr.New(walleterr.CodeJwtSignerInvalidJwt, fmt.Sprintf("malformed jwt: %v", err))
	}
	return token, nil
}

func (s *RemoteSigner) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.baseURL + "/" + path)
	if err != nil {
		return walleterr.Wrap(walleterr.CodeJwtSigner, err)
	}

	s.logger.Debug("signing service response", "path", path, "status", resp.StatusCode())

	if resp.IsError() {
		return classify(resp.StatusCode(), resp.Body())
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return walleterr.Wrap(walleterr.CodeJwtSigner, fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// classify maps a non-2xx signing service response to an error code.
func classify(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)

	message := detailMessage(parsed.Detail)
	if message == "" {
		message = http.StatusText(status)
	}
	details := map[string]interface{}{"status": status}

	switch status {
	case http.StatusBadRequest:
		return walleterr.New(walleterr.CodeJwtSignerInvalidJwt, message, details)
	case http.StatusUnauthorized, http.StatusForbidden:
		return walleterr.New(walleterr.CodeJwtSignerInvalidCredential, message, details)
	case http.StatusTooManyRequests:
		return walleterr.New(walleterr.CodeJwtSignerRateLimit, message, details)
	default:
		return walleterr.New(walleterr.CodeJwtSigner, message, details)
	}
}

// detailMessage flattens the detail field. It comes as a plain string, a
// field -> message(s) object, or a list of {loc, msg} entries.
func detailMessage(detail interface{}) string {
	switch d := detail.(type) {
	case nil:
		return ""
	case string:
		return d
	case map[string]interface{}:
		var fields map[string][]string
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &fields,
		})
		if err == nil && decoder.Decode(d) == nil {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, k+": "+strings.Join(fields[k], ", "))
			}
			return strings.Join(parts, "; ")
		}
	case []interface{}:
		var entries []fieldError
		if err := mapstructure.Decode(d, &entries); err == nil {
			parts := make([]string, 0, len(entries))
			for _, e := range entries {
				field := ""
				if len(e.Loc) > 0 {
					field = fmt.Sprint(e.Loc[len(e.Loc)-1])
				}
				if field == "" {
					parts = append(parts, e.Msg)
					continue
				}
				parts = append(parts, field+": "+e.Msg)
			}
			return strings.Join(parts, "; ")
		}
	}

	raw, _ := json.Marshal(detail)
	return string(raw)
}
