package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Mohsinsiddi/w3pay/internal/chain"
	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewError(CodeUserRejected, "MetaMask Tx Signature: User denied transaction signature.")
	assert.ErrorIs(t, err, ErrUserRejected)
	assert.NotErrorIs(t, err, ErrUnrecognizedChain)
}

func TestErrorIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("sending transfer: %w", NewError(CodeUnrecognizedChain, "Unrecognized chain ID"))
	assert.ErrorIs(t, err, ErrUnrecognizedChain)

	code, ok := Code(err)
	assert.True(t, ok)
	assert.Equal(t, 4902, code)
}

func TestCodeOnPlainError(t *testing.T) {
	_, ok := Code(errors.New("boom"))
	assert.False(t, ok)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "provider error 4001: user rejected the request", ErrUserRejected.Error())
}

func TestFromNodeKeepsCodeAndData(t *testing.T) {
	err := fromNode(fmt.Errorf("call: %w", &chain.RPCError{
		Code:    3,
		Message: "execution reverted: ERC20: transfer amount exceeds balance",
		Data:    json.RawMessage(`"0x08c379a0"`),
	}))

	var pe *Error
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, CodeExecutionReverted, pe.Code)
	assert.Contains(t, pe.Message, "exceeds balance")
	assert.JSONEq(t, `"0x08c379a0"`, string(pe.Data))
}

func TestFromNodePassesOtherErrors(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, fromNode(plain))
	assert.Nil(t, fromNode(nil))
}
