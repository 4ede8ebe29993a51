package signer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truewallet/truewallet-go/core/walleterr"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestPrivateKeySigner(t *testing.T) {
	s, err := FromPrivateKeyHex(hardhatKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())

	// the 0x prefix is optional
	s2, err := FromPrivateKeyHex(hardhatKey[2:])
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())
}

func TestSignMessageIsPersonalSign(t *testing.T) {
	s, err := FromPrivateKeyHex(hardhatKey)
	require.NoError(t, err)

	msg := common.FromHex("0xdead")
	sig, err := s.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := RecoverAddress(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), recovered)
}

func TestSaltSignerIsDeterministic(t *testing.T) {
	a, err := FromSalt("my-salt")
	require.NoError(t, err)
	b, err := FromSalt("my-salt")
	require.NoError(t, err)
	c, err := FromSalt("other-salt")
	require.NoError(t, err)

	assert.Equal(t, a.Address(), b.Address())
	assert.NotEqual(t, a.Address(), c.Address())
	assert.NotEqual(t, common.Address{}, a.Address())

	sig, err := a.SignMessage(context.Background(), []byte("hello"))
	require.NoError(t, err)
	recovered, err := RecoverAddress([]byte("hello"), sig)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), recovered)
}

func TestMnemonicDerivationMatchesHardhat(t *testing.T) {
	s, err := fromMnemonic("test test test test test test test test test test test junk")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())
}

func TestSaltSignerAcceptsAnySalt(t *testing.T) {
	for _, salt := range []string{"", "a", "x", "wallet-test"} {
		s, err := FromSalt(salt)
		require.NoError(t, err, salt)
		assert.NotEqual(t, common.Address{}, s.Address(), salt)
	}
}

// fakeProvider signs with a local key and speaks the EIP-1193 methods.
type fakeProvider struct {
	key      *LocalSigner
	accounts []common.Address
	requests []string
}

func (p *fakeProvider) Request(ctx context.Context, method string, params []interface{}, result interface{}) error {
	p.requests = append(p.requests, method)

	var payload interface{}
	switch method {
	case "eth_requestAccounts":
		payload = p.accounts
	case "personal_sign":
		msg, err := hexutil.Decode(params[0].(string))
		if err != nil {
			return err
		}
		sig, err := p.key.SignMessage(ctx, msg)
		if err != nil {
			return err
		}
		sig[64] -= 27 // some providers return a raw recovery id
		payload = hexutil.Bytes(sig)
	default:
		return errors.New("unsupported method")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func TestInjectedSigner(t *testing.T) {
	local, err := FromPrivateKeyHex(hardhatKey)
	require.NoError(t, err)
	provider := &fakeProvider{key: local, accounts: []common.Address{local.Address()}}

	s, err := New(context.Background(), InjectedSpec{Provider: provider}, nil)
	require.NoError(t, err)
	assert.Equal(t, local.Address(), s.Address())
	assert.Equal(t, []string{"eth_requestAccounts"}, provider.requests)

	sig, err := s.SignMessage(context.Background(), []byte("hi"))
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[64])

	recovered, err := RecoverAddress([]byte("hi"), sig)
	require.NoError(t, err)
	assert.Equal(t, local.Address(), recovered)
}

func TestInjectedSignerWithoutAccounts(t *testing.T) {
	_, err := NewInjectedSigner(context.Background(), &fakeProvider{})
	assert.Error(t, err)
}

func TestFactoryRejectsUnknownSpec(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, walleterr.ErrInvalidSignerType))
}

func TestFactoryDispatch(t *testing.T) {
	s, err := New(context.Background(), PrivateKeySpec{Key: hardhatKey}, nil)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())

	_, err = New(context.Background(), PrivateKeySpec{Key: "not-a-key"}, nil)
	assert.True(t, errors.Is(err, walleterr.ErrConfig))

	fromSalt, err := New(context.Background(), SaltSpec{Salt: "x"}, nil)
	require.NoError(t, err)
	direct, err := FromSalt("x")
	require.NoError(t, err)
	assert.Equal(t, direct.Address(), fromSalt.Address())
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

type signingService struct {
	local    *LocalSigner
	requests atomic.Int32
	status   int
	body     string
}

func (s *signingService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")

	if s.status != 0 {
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.body))
		return
	}

	var req map[string]string
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req["jwt_token"] == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":{"jwt_token":["field required"]}}`))
		return
	}

	switch r.URL.Path {
	case "/v1/project-key/wallets/get-address":
		_ = json.NewEncoder(w).Encode(map[string]string{"address": s.local.Address().Hex()})
	case "/v1/project-key/wallets/sign-message":
		if req["message_type"] != "personal_sign" || req["wallet_type"] != "evm" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		msg, _ := hexutil.Decode(req["message"])
		sig, _ := s.local.SignMessage(r.Context(), msg)
		_ = json.NewEncoder(w).Encode(map[string]string{"signature": hexutil.Encode(sig)})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newSigningService(t *testing.T) (*signingService, *httptest.Server) {
	t.Helper()
	local, err := FromPrivateKeyHex(hardhatKey)
	require.NoError(t, err)
	svc := &signingService{local: local}
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return svc, srv
}

func TestRemoteBaseURL(t *testing.T) {
	base, err := RemoteBaseURL("https://bundler.example.com/v1/chains/11155111/project-key")
	require.NoError(t, err)
	assert.Equal(t, "https://bundler.example.com/v1/project-key", base)

	_, err = RemoteBaseURL("not a url")
	assert.Error(t, err)
}

func TestRemoteSignerLifecycle(t *testing.T) {
	svc, srv := newSigningService(t)
	token := testToken(t)

	s := NewRemoteSigner(srv.URL+"/v1/project-key", StaticToken(token))

	_, err := s.SignMessage(context.Background(), []byte("early"))
	assert.True(t, errors.Is(err, walleterr.ErrSignerInit), "use before init")

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, svc.local.Address(), s.Address())

	err = s.Init(context.Background())
	assert.True(t, errors.Is(err, walleterr.ErrSignerInit), "second init")
	assert.Equal(t, svc.local.Address(), s.Address())

	sig, err := s.SignMessage(context.Background(), []byte("payload"))
	require.NoError(t, err)
	recovered, err := RecoverAddress([]byte("payload"), sig)
	require.NoError(t, err)
	assert.Equal(t, svc.local.Address(), recovered)
}

func TestRemoteSignerFromBundlerURL(t *testing.T) {
	svc, srv := newSigningService(t)

	s, err := New(context.Background(), RemoteSpec{
		BundlerURL: srv.URL + "/v1/bundler/project-key",
		Token:      StaticToken(testToken(t)),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, svc.local.Address(), s.Address())
}

func TestRemoteSignerCallsTokenProviderPerRequest(t *testing.T) {
	_, srv := newSigningService(t)
	token := testToken(t)

	var calls atomic.Int32
	s := NewRemoteSigner(srv.URL+"/v1/project-key", func(context.Context) (string, error) {
		calls.Add(1)
		return token, nil
	})

	require.NoError(t, s.Init(context.Background()))
	_, err := s.SignMessage(context.Background(), []byte("a"))
	require.NoError(t, err)
	_, err = s.SignMessage(context.Background(), []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
}

func TestRemoteSignerMalformedTokenNeverHitsNetwork(t *testing.T) {
	svc, srv := newSigningService(t)

	s := NewRemoteSigner(srv.URL+"/v1/project-key", StaticToken("not.a.jwt"))
	err := s.Init(context.Background())

	assert.True(t, errors.Is(err, walleterr.ErrInvalidJwt))
	assert.Equal(t, int32(0), svc.requests.Load())
	assert.False(t, s.Initialized())
}

func TestRemoteSignerStatusMapping(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		want    error
		message string
	}{
		{http.StatusBadRequest, `{"detail":{"jwt_token":["expired"],"audience":"mismatch"}}`, walleterr.ErrInvalidJwt, "audience: mismatch; jwt_token: expired"},
		{http.StatusBadRequest, `{"detail":[{"loc":["body","jwt_token"],"msg":"field required"}]}`, walleterr.ErrInvalidJwt, "jwt_token: field required"},
		{http.StatusUnauthorized, `{"detail":"Invalid credentials"}`, walleterr.ErrInvalidCredential, "Invalid credentials"},
		{http.StatusForbidden, `{"detail":"Project disabled"}`, walleterr.ErrInvalidCredential, "Project disabled"},
		{http.StatusTooManyRequests, `{"detail":"Slow down"}`, walleterr.ErrRateLimit, "Slow down"},
		{http.StatusInternalServerError, `oops`, walleterr.ErrSignerService, "Internal Server Error"},
	}

	for _, tc := range cases {
		svc, srv := newSigningService(t)
		svc.status = tc.status
		svc.body = tc.body

		s := NewRemoteSigner(srv.URL+"/v1/project-key", StaticToken(testToken(t)))
		err := s.Init(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d: %v", tc.status, err)
		assert.Equal(t, tc.message, err.Error())
		assert.False(t, s.Initialized())
	}
}

func TestRecoverAddressRejectsShortSignature(t *testing.T) {
	_, err := RecoverAddress([]byte("x"), make([]byte, 10))
	assert.Error(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := SignMessage(key, []byte("x"))
	require.NoError(t, err)
	addr, err := RecoverAddress([]byte("x"), sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
}
