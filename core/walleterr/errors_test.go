package walleterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByCode(t *testing.T) {
	err := New(CodeWalletNotReady, "Wallet is not smart contract yet.")

	assert.True(t, errors.Is(err, ErrWalletNotReady))
	assert.False(t, errors.Is(err, ErrWalletNotOwned))
	assert.Equal(t, "Wallet is not smart contract yet.", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("execution reverted")
	err := fmt.Errorf("balanceOf: %w", Wrap(CodeCallException, cause))

	assert.True(t, errors.Is(err, ErrCallException))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeCallException, CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeUnspecified, CodeOf(errors.New("boom")))
	assert.Nil(t, Wrap(CodeBundler, nil))
}

func TestEmptyMessageFallsBackToCode(t *testing.T) {
	assert.Equal(t, "MAX_RETRIES_EXCEEDED", (&Error{Code: CodeMaxRetriesExceeded}).Error())
}
