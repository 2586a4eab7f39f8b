package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcert/fieldcert/internal/cert"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"explicit exit error", WrapExitError(ExitCommandError, "bad flag", nil), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "inner", nil)), ExitFailure},
		{"domain error", cert.NewAlreadyClaimedError("b-1"), ExitFailure},
		{"wrapped domain error", fmt.Errorf("claim: %w", cert.NewBatchNotFoundError("b-1")), ExitFailure},
		{"plain error", errors.New("boom"), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	e := WrapExitError(ExitCommandError, "open store", errors.New("locked"))
	assert.Equal(t, "open store: locked", e.Error())
	assert.Equal(t, "locked", errors.Unwrap(e).Error())

	bare := WrapExitError(ExitFailure, "claim lost", nil)
	assert.Equal(t, "claim lost", bare.Error())
}

func TestOutputFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Print(map[string]string{"status": "submitted"}, func(io.Writer) {
		t.Fatal("text func must not run in json mode")
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "submitted"}`, buf.String())
}

func TestOutputFormatterText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Print(nil, func(w io.Writer) {
		fmt.Fprint(w, "batch b-1: submitted")
	})
	require.NoError(t, err)
	assert.Equal(t, "batch b-1: submitted", buf.String())
}

func TestRootCommandRejectsBadFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--format", "xml", "show", "batch", "b-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
