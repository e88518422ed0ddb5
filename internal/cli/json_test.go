package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	return env
}

func TestWriteJSONSuccess_BasicData(t *testing.T) {
	var buf bytes.Buffer

	err := WriteJSONSuccess(&buf, map[string]string{"key": "value"})
	require.NoError(t, err)

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", dataMap["key"])
}

func TestWriteJSONSuccess_Accounts(t *testing.T) {
	var buf bytes.Buffer

	accounts := []api.Account{{ID: "u1", Name: "alice", AlterID: 64, TrafficLimit: 1024}}
	require.NoError(t, WriteJSONSuccess(&buf, accounts))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	items, ok := env.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "alice", first["name"])
	assert.Equal(t, float64(64), first["alter_id"]) // JSON numbers are float64
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONSuccess(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Nil(t, env.Error)
}

func TestWriteJSONError_AllFields(t *testing.T) {
	var buf bytes.Buffer

	details := map[string]string{"api": "http://127.0.0.1:8000"}
	err := WriteJSONError(&buf, ErrCodeBackendUnreachable, "Connection refused", "Check the backend is running", details)
	require.NoError(t, err)

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeBackendUnreachable, env.Error.Code)
	assert.Equal(t, "Connection refused", env.Error.Message)
	assert.Equal(t, "Check the backend is running", env.Error.Suggestion)

	detailsMap, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:8000", detailsMap["api"])
}

func TestWriteJSONFromError_NilError(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONFromError(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestWriteJSONFromError_GenericError(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("something went wrong")))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeUnknown, env.Error.Code)
	assert.Equal(t, "something went wrong", env.Error.Message)
}

func TestWriteJSONFromError_StructuredError(t *testing.T) {
	var buf bytes.Buffer

	dashErr := errors.New(errors.ErrConfig, "Config file not found", "Create .v2dash.yaml")
	require.NoError(t, WriteJSONFromError(&buf, dashErr))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfigNotFound, env.Error.Code)
	assert.Equal(t, "Config file not found", env.Error.Message)
	assert.Equal(t, "Create .v2dash.yaml", env.Error.Suggestion)
}

func TestWriteJSONFromError_WrappedStructuredError(t *testing.T) {
	var buf bytes.Buffer

	inner := errors.New(errors.ErrSSH, "Connection refused", "Check if SSH server is running")
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("failed to connect: %w", inner)))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHConnectionFail, env.Error.Code)
}

func TestErrorToJSON_NilReturnsNil(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_Codes(t *testing.T) {
	notFound := &api.Failure{Op: api.OpDeleteAccount, Status: 404, Detail: "User not found"}
	refused := &api.Failure{Op: api.OpListAccounts, Cause: fmt.Errorf("connection refused")}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config invalid", errors.New(errors.ErrConfig, "Invalid config format", ""), ErrCodeConfigInvalid},
		{"input", errors.New(errors.ErrInput, "Account name is required", ""), ErrCodeInvalidInput},
		{"confirmation", errors.New(errors.ErrInput, "Confirmation required to delete alice", ""), ErrCodeConfirmationRequired},
		{"network", errors.New(errors.ErrNetwork, "backend unreachable", ""), ErrCodeBackendUnreachable},
		{"raw 404 failure", notFound, ErrCodeNotFound},
		{"raw network failure", refused, ErrCodeBackendUnreachable},
		{"wrapped 404 failure", errors.WrapWithCode(notFound, errors.ErrAPI, "Delete failed", ""), ErrCodeNotFound},
		{"unknown account", errors.New(errors.ErrAPI, "No account named bob", ""), ErrCodeNotFound},
		{"api", errors.New(errors.ErrAPI, "Create failed", ""), ErrCodeAPIError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorToJSON(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestErrorToJSON_FailureDetails(t *testing.T) {
	got := ErrorToJSON(&api.Failure{Op: api.OpResetAccountStats, Status: 500, Detail: "boom"})
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeAPIError, got.Code)
	assert.Equal(t, "boom", got.Message)

	details, ok := got.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, api.OpResetAccountStats, details["operation"])
	assert.Equal(t, 500, details["status"])
}
