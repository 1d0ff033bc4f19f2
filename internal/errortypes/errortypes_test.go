package errortypes

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	base := errors.New("unexpected end of JSON input")
	err := ValidationError(base, "failed to parse manifest")

	assert.Equal(t, "failed to parse manifest: unexpected end of JSON input", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsConfigError(err))
	assert.NotEmpty(t, err.StackInfo)
}

func TestAppError_NoMessage(t *testing.T) {
	err := New(ErrorTypeInternal, errors.New("boom"), "")
	assert.Equal(t, "boom", err.Error())
}

func TestAppError_NilCause(t *testing.T) {
	err := ConfigError(nil, "bad ceiling")
	require.NotNil(t, err.Err)
	assert.Contains(t, err.Error(), "unknown error")
}

func TestTypeOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("describe: %w", New(ErrorTypeQuota, errors.New("429"), "rate limited"))
	assert.Equal(t, ErrorTypeQuota, TypeOf(err))
	assert.True(t, Is(err, ErrorTypeQuota))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestWithFields(t *testing.T) {
	err := DatabaseError(errors.New("locked"), "failed to save description").
		WithField("id", "abc").
		WithFields(map[string]interface{}{"path": "crate.json"})

	assert.Equal(t, "abc", err.Fields["id"])
	assert.Equal(t, "crate.json", err.Fields["path"])
	assert.True(t, IsDatabaseError(err))
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogError(logger, NetworkError(errors.New("dial tcp"), "provider unreachable").WithField("provider", "openai"))
	out := buf.String()
	assert.Contains(t, out, "provider unreachable")
	assert.Contains(t, out, "type=network")
	assert.Contains(t, out, "provider=openai")

	buf.Reset()
	LogError(logger, errors.New("plain failure"))
	assert.Contains(t, buf.String(), "plain failure")
}
