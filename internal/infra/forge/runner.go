package forge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner runs forge subcommands inside a foundry project
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

// ExecRunner invokes the forge binary found on PATH
type ExecRunner struct {
	binary string
}

// NewExecRunner creates a runner for the forge binary
func NewExecRunner() *ExecRunner {
	return &ExecRunner{binary: "forge"}
}

// Run returns stdout. On failure the error carries stderr, forge reports most problems there.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s %s failed: %w: %s", r.binary, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return output, nil
}
