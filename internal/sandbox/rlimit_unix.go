//go:build !windows

package sandbox

import (
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// resourceUsage is the subset of syscall.Rusage Execute cares about.
type resourceUsage struct {
	cpu    time.Duration
	maxRSS int64
}

// getProcessResourceUsage extracts CPU time and peak RSS from a finished
// command by reading cmd.ProcessState.SysUsage().
func getProcessResourceUsage(cmd *exec.Cmd) *resourceUsage {
	if cmd.ProcessState == nil {
		return nil
	}
	rusage, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage)
	if !ok || rusage == nil {
		return nil
	}
	userMs := rusage.Utime.Sec*1000 + int64(rusage.Utime.Usec)/1000
	sysMs := rusage.Stime.Sec*1000 + int64(rusage.Stime.Usec)/1000
	return &resourceUsage{
		cpu: time.Duration(userMs+sysMs) * time.Millisecond,
		// ru_maxrss is reported in KiB on Linux.
		maxRSS: int64(rusage.Maxrss) * 1024,
	}
}

// setupProcessGroup runs cmd in its own process group so the whole tree
// spawned by a generated program can be killed at once.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateProcessGroup sends SIGTERM to cmd's process group, the first
// step of the terminate-then-kill grace period.
func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	return syscall.Kill(-pgid, syscall.SIGTERM)
}

// killProcessGroup forcibly kills cmd's whole process group.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
			syscall.Kill(-pgid, syscall.SIGTERM)
		}
	}
	if err := cmd.Process.Kill(); err != nil {
		if !strings.Contains(err.Error(), "process already finished") {
			return err
		}
	}
	return nil
}

// BuildRlimits translates a sandbox session's resource limits into
// syscall.Rlimit values keyed by resource type.
func BuildRlimits(cpuTimeS, memoryBytes, maxOpenFiles int64) map[int]syscall.Rlimit {
	out := make(map[int]syscall.Rlimit)
	if memoryBytes > 0 {
		out[syscall.RLIMIT_AS] = syscall.Rlimit{Cur: uint64(memoryBytes), Max: uint64(memoryBytes)}
	}
	if cpuTimeS > 0 {
		out[syscall.RLIMIT_CPU] = syscall.Rlimit{Cur: uint64(cpuTimeS), Max: uint64(cpuTimeS)}
	}
	if maxOpenFiles > 0 {
		out[syscall.RLIMIT_NOFILE] = syscall.Rlimit{Cur: uint64(maxOpenFiles), Max: uint64(maxOpenFiles)}
	}
	return out
}

// ApplyRlimits calls setrlimit for every limit BuildRlimits produces.
// cmd/mlrunner calls this at its own startup, before interpreting any
// user-supplied program: Go's os/exec has no pre-exec hook that lets a
// parent apply rlimits to an arbitrary child before its main runs, so the
// child applies them to itself as the very first thing it does.
func ApplyRlimits(cpuTimeS, memoryBytes, maxOpenFiles int64) error {
	for resource, lim := range BuildRlimits(cpuTimeS, memoryBytes, maxOpenFiles) {
		limCopy := lim
		if err := syscall.Setrlimit(resource, &limCopy); err != nil {
			return err
		}
	}
	return nil
}
