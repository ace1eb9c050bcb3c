package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain verifies Execute never leaves a goroutine behind: the
// audit-event reader started by streamAuditEvents is always joined
// before Execute returns, on every outcome path.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRunner writes script (a shell script body, shebang included) to an
// executable temp file and returns its path. Execute treats cfg.RunnerPath
// as an arbitrary binary, so a shell script stands in for cmd/mlrunner
// without needing it built — exactly what the plumbing under test (pipe
// wiring, rlimit-independent timeout/exit classification) cares about.
func fakeRunner(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("sandbox process-group and shell-script fakes are unix-only")
	}
	path := filepath.Join(t.TempDir(), "fake-runner.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestExecuteCompletesSuccessfully(t *testing.T) {
	cfg := Config{RunnerPath: fakeRunner(t, "#!/bin/sh\necho hello from the sandbox\nexit 0\n")}
	result, err := Execute(context.Background(), "", cfg)
	require.NoError(t, err)
	require.Equal(t, Reaped, result.State)
	require.Equal(t, "0", result.ExitCode)
	require.Equal(t, 0, result.RawExitCode)
	require.True(t, strings.Contains(result.Stdout, "hello from the sandbox"))
}

func TestExecuteCapturesNonZeroExit(t *testing.T) {
	cfg := Config{RunnerPath: fakeRunner(t, "#!/bin/sh\necho something went wrong >&2\nexit 7\n")}
	result, err := Execute(context.Background(), "", cfg)
	require.NoError(t, err)
	require.Equal(t, Reaped, result.State)
	require.Equal(t, "7", result.ExitCode)
	require.Equal(t, 7, result.RawExitCode)
	require.True(t, strings.Contains(result.Stderr, "something went wrong"))
}

func TestExecuteStreamsAuditEvents(t *testing.T) {
	script := "#!/bin/sh\n" +
		`echo '{"capability_type":"file","resource":"/tmp/a","operation":"read","outcome":"allowed"}' >&3` + "\n" +
		`echo '{"capability_type":"net","resource":"example.com","operation":"connect","outcome":"denied"}' >&3` + "\n" +
		"exit 0\n"
	cfg := Config{RunnerPath: fakeRunner(t, script)}
	result, err := Execute(context.Background(), "", cfg)
	require.NoError(t, err)
	require.Len(t, result.AuditEvents, 2, "no emitted audit event must be lost (#emitted = #observed)")
	require.Equal(t, "file", result.AuditEvents[0].CapabilityType)
	require.Equal(t, "allowed", result.AuditEvents[0].Outcome)
	require.Equal(t, "net", result.AuditEvents[1].CapabilityType)
	require.Equal(t, "denied", result.AuditEvents[1].Outcome)
}

func TestExecuteEnforcesWallTimeLimit(t *testing.T) {
	cfg := Config{
		RunnerPath:     fakeRunner(t, "#!/bin/sh\nsleep 10\nexit 0\n"),
		WallTimeLimitS: 1,
		GracePeriod:    200 * time.Millisecond,
	}
	start := time.Now()
	result, err := Execute(context.Background(), "", cfg)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Equal(t, Reaped, result.State)
	require.Equal(t, "timeout", result.ExitCode)
	require.Less(t, elapsed, 3*time.Second, "a program that sleeps 10x the wall limit must be reaped within limit+grace")

	found := false
	for _, e := range result.AuditEvents {
		if e.Outcome == "terminated_by_limit" {
			found = true
		}
	}
	require.True(t, found, "a timeout must emit one infrastructure-level terminated_by_limit audit event")
}

func TestExecuteRejectsUnspawnableRunner(t *testing.T) {
	cfg := Config{RunnerPath: filepath.Join(t.TempDir(), "does-not-exist")}
	_, err := Execute(context.Background(), "", cfg)
	require.Error(t, err, "a spawn failure is an infrastructure error surfaced to the parent, not folded into Result")
}

func TestExecuteEnvAllowlistExcludesUnlistedVars(t *testing.T) {
	t.Setenv("MLSEC_TEST_SECRET", "do-not-leak")
	cfg := Config{RunnerPath: fakeRunner(t, `#!/bin/sh
if [ -n "$MLSEC_TEST_SECRET" ]; then
	echo "leaked"
else
	echo "clean"
fi
exit 0
`)}
	result, err := Execute(context.Background(), "", cfg)
	require.NoError(t, err)
	require.True(t, strings.Contains(result.Stdout, "clean"), "a sandboxed child must not inherit parent env vars absent from EnvAllowlist")
}
