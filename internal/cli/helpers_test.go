package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/feedbackflow/internal/ids"
	"github.com/roach88/feedbackflow/internal/notify"
	"github.com/roach88/feedbackflow/internal/testutil"
)

// testNow is the first reading of the test clock.
var testNow = time.Date(2023, 11, 20, 15, 0, 0, 0, time.UTC)

// testOptions returns root options bound to a fresh database file, with the
// environment shut out and deterministic ids and time.
func testOptions(t *testing.T) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format:      "text",
		Database:    filepath.Join(t.TempDir(), "feedbackflow.db"),
		EnvFiles:    []string{},
		LookupEnv:   func(string) (string, bool) { return "", false },
		EventIDs:    ids.NewSequenceGenerator("event"),
		FeedbackIDs: ids.NewSequenceGenerator("feedback"),
		Clock:       testutil.NewDeterministicClockAt(testNow, time.Minute),
	}
}

type cmdOutput struct {
	Stdout string
	Stderr string
}

// execute runs a freshly built command with args.
func execute(newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) (cmdOutput, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := newCmd(opts)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cmdOutput{Stdout: out.String(), Stderr: errOut.String()}, err
}

// mustExecute runs a command that is expected to succeed.
func mustExecute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) cmdOutput {
	t.Helper()
	out, err := execute(newCmd, opts, args...)
	require.NoError(t, err, "stdout: %s\nstderr: %s", out.Stdout, out.Stderr)
	return out
}

// jsonResponse is CLIResponse with a typed payload.
type jsonResponse[T any] struct {
	Status  string          `json:"status"`
	Data    T               `json:"data"`
	Error   *CLIError       `json:"error"`
	Notices []notify.Notice `json:"notices"`
}

// runJSON runs a command in JSON mode and decodes its response.
func runJSON[T any](t *testing.T, newCmd func(*RootOptions) *cobra.Command, opts *RootOptions, args ...string) jsonResponse[T] {
	t.Helper()
	format := opts.Format
	opts.Format = "json"
	defer func() { opts.Format = format }()

	out, _ := execute(newCmd, opts, args...)
	var resp jsonResponse[T]
	require.NoError(t, json.Unmarshal([]byte(out.Stdout), &resp), "stdout: %s", out.Stdout)
	return resp
}
