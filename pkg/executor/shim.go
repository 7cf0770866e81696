package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/futarchy-tools/arbot/pkg/config"
)

// txHashPattern matches the hash lines the executor binaries print. Kept
// only for the subprocess compatibility layer; the in-process adapter
// returns the hash structurally.
var txHashPattern = regexp.MustCompile(`(?i)(?:Tx sent|Transaction hash|tx):\s*(?:0x)?([a-fA-F0-9]{64})`)

// ParseTxHash extracts the first transaction hash from executor output,
// 0x-prefixed, or "" when none is present. Pure function: repeated calls
// over the same output always agree.
func ParseTxHash(output string) string {
	m := txHashPattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return "0x" + strings.ToLower(m[1])
}

// minProfitStderrMarker distinguishes a skip from a failure in the
// child's stderr.
const minProfitStderrMarker = "min profit not met"

// Shim runs the executor out-of-process: the stability escape hatch when
// the in-process adapter cannot be used. The effective config is
// materialised to a file, the same keys are stripped from the child's
// environment so the file is the only source of truth, and the child's
// stdout is scanned for the transaction hash.
type Shim struct {
	// Command is the executor binary and its fixed leading arguments.
	Command []string
	// Config is materialised per run.
	Config *config.Config
	// EnvDir receives the materialised env files (default build/envs).
	EnvDir string
	// Timeout bounds the child's run (default 120s).
	Timeout time.Duration

	Log *zap.SugaredLogger
}

// Execute materialises the config, spawns the child, and classifies its
// exit: 0 is success, nonzero with the profit-guard marker in stderr is a
// skip, anything else is a failure.
func (s *Shim) Execute(ctx context.Context, intent Intent) (*Result, error) {
	if err := intent.validate(FutarchyV5); err != nil {
		return nil, err
	}
	if len(s.Command) == 0 {
		return nil, fmt.Errorf("shim: no executor command configured")
	}

	envDir := s.EnvDir
	if envDir == "" {
		envDir = filepath.Join("build", "envs")
	}
	envPath := filepath.Join(envDir, fmt.Sprintf("exec_env_%d_%d.env", time.Now().Unix(), os.Getpid()))
	if err := s.Config.WriteEnvFile(envPath); err != nil {
		return nil, fmt.Errorf("shim: materialise env: %w", err)
	}
	s.Log.Infow("shim_env_written", "path", envPath)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string(nil), s.Command[1:]...)
	args = append(args,
		"--env", envPath,
		"--flow", intent.Flow.String(),
		"--cheaper", intent.Cheaper.String(),
		"--amount-wei", intent.AmountIn.String(),
		"--min-profit-wei", intent.MinProfit.String(),
	)
	if intent.Prefund {
		args = append(args, "--prefund")
	}

	cmd := exec.CommandContext(runCtx, s.Command[0], args...)
	cmd.Env = strippedEnv(s.Config.Materialise())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	txHash := ParseTxHash(stdout.String())

	if runCtx.Err() == context.DeadlineExceeded {
		return &Result{TxHash: txHash}, fmt.Errorf("%w: executor subprocess after %s", ErrTimedOut, timeout)
	}
	if err == nil {
		return &Result{TxHash: txHash, Status: 1}, nil
	}
	if strings.Contains(stderr.String(), minProfitStderrMarker) {
		return &Result{TxHash: txHash}, fmt.Errorf("%w: executor subprocess", ErrMinProfitNotMet)
	}
	return &Result{TxHash: txHash}, fmt.Errorf("%w: executor subprocess: %v: %s",
		ErrSendReverted, err, lastErrorLine(stderr.String()))
}

// strippedEnv returns the current process environment minus every key
// the materialised file defines, so the child cannot see stale values.
func strippedEnv(materialised map[string]string) []string {
	var out []string
	for _, kv := range os.Environ() {
		key := kv
		if i := strings.IndexByte(kv, '='); i > 0 {
			key = kv[:i]
		}
		if _, shadowed := materialised[key]; !shadowed {
			out = append(out, kv)
		}
	}
	return out
}

// lastErrorLine pulls the most informative trailing line out of a child's
// stderr, skipping stack-trace noise.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.Contains(strings.ToLower(line), "error") {
			return line
		}
	}
	if len(lines) > 0 {
		return lines[len(lines)-1]
	}
	return ""
}

var _ TradeExecutor = (*Shim)(nil)
var _ TradeExecutor = (*Adapter)(nil)
