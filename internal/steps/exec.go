package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// outputTailLimit bounds how much captured command output ends up in errors.
const outputTailLimit = 2048

// runCommand executes argv in dir with the process environment plus extraEnv.
// On failure the tail of the combined output is included in the error.
func runCommand(ctx context.Context, dir string, extraEnv []string, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w\n%s", strings.Join(argv, " "), err, outputTail(output.Bytes()))
	}
	return nil
}

// captureCommand executes argv and returns its combined output.
func captureCommand(ctx context.Context, dir string, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
	}
	return string(out), nil
}

func outputTail(out []byte) string {
	if len(out) > outputTailLimit {
		out = out[len(out)-outputTailLimit:]
	}
	return strings.TrimSpace(string(out))
}
