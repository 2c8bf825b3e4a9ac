package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/arcerr"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"lot": "20230101T0005"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeConfig, "failed to load config", map[string]string{"file": "arc.yaml"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeConfig, resp.Error.Code)
	assert.Equal(t, "failed to load config", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

type stringer struct{}

func (stringer) String() string { return "rendered" }

func TestOutputFormatter_TextSuccessUsesStringer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(stringer{}))
	assert.Equal(t, "rendered\n", buf.String())
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}

	require.NoError(t, formatter.Error(CodeStore, "store unreachable", map[string]string{"root": "x"}))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E003]: store unreachable")
	assert.NotContains(t, errOut.String(), "Details:")

	errOut.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(CodeStore, "store unreachable", map[string]string{"root": "x"}))
	assert.Contains(t, errOut.String(), "Details:")
}

func TestOutputFormatter_FailArcError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := arcerr.Inconsistent("race detected starting arc lot").
		ForArc("orders@1/ingest").AtLot("20230101T0005").States("absent", "running")
	err := formatter.Fail(CodeStore, "start failed", fmt.Errorf("handle: %w", cause))

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, arcerr.IsInconsistent(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInconsistent, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "20230101T0005", details["lot"])
	assert.Equal(t, "running", details["found"])
	assert.Equal(t, "orders@1/ingest", details["arc"])
}

func TestOutputFormatter_FailPrecondition(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Fail(CodeStore, "complete failed", arcerr.Precondition("already in current state"))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, CodePrecondition, resp.Error.Code)
}

func TestOutputFormatter_FailCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	cause := errors.New("no such file")
	err := formatter.Fail(CodeConfig, "failed to load config", cause)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), "Error [E002]: failed to load config: no such file")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "x", errors.New("y")))))
	assert.Equal(t, "x: y", WrapExitError(ExitCommandError, "x", errors.New("y")).Error())
}
