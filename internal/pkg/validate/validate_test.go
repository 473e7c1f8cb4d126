package validate

import (
	"errors"
	"testing"

	"github.com/go-like-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	err := Struct(domain.SubmitRequest{RequesterID: "7", AccountID: "123456789", ChatID: 1, MessageID: 2})
	require.NoError(t, err)
}

func TestStruct_MissingAccount(t *testing.T) {
	err := Struct(domain.SubmitRequest{RequesterID: "7", ChatID: 1, MessageID: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	assert.ErrorContains(t, err, "field 'AccountID' failed 'required'")
}

func TestStruct_NonNumericAccount(t *testing.T) {
	err := Struct(domain.SubmitRequest{RequesterID: "7", AccountID: "abc12345", ChatID: 1, MessageID: 2})
	require.Error(t, err)
	assert.ErrorContains(t, err, "'numeric'")
}
