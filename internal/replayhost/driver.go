// Package replayhost launches the external Replay Host as a child process
// and captures its stdout (§4.2). It owns the process table (§5) that the
// cancellation path drains, killing entire process trees rather than lone
// pids.
package replayhost

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"

	"jitrlcse/internal/rlerrors"
)

// Driver runs the Replay Host binary rooted at HostRoot.
type Driver struct {
	// HostRoot is the working directory the host is launched from.
	HostRoot string
	// BinaryPath is the path to the Replay Host executable.
	BinaryPath string

	mu    sync.Mutex
	procs map[int]*exec.Cmd
	next  int
}

// NewDriver returns a Driver rooted at hostRoot, invoking binaryPath.
func NewDriver(hostRoot, binaryPath string) *Driver {
	return &Driver{
		HostRoot:   hostRoot,
		BinaryPath: binaryPath,
		procs:      make(map[int]*exec.Cmd),
	}
}

// isSuccessExitCode reports the exit codes the source treats as success: 0 is
// ordinary success, 3 is the documented "partial failure" code (§9 open
// question: source treats it as success, this follows that).
func isSuccessExitCode(code int) bool {
	return code == 0 || code == 3
}

// Run invokes the Replay Host once. methodIndex nil requests a batch run
// over the full corpus; otherwise it is forwarded as a single-method
// selector argument. Cancelling ctx kills the direct child; the rest of its
// process group is reached only through KillAll/WatchCancellation.
func (d *Driver) Run(ctx context.Context, methodIndex *int, opts Options) (stdout string, err error) {
	args := opts.Strings()
	if methodIndex != nil {
		args = append(args, fmt.Sprintf("--method=%d", *methodIndex))
	}

	cmd := exec.CommandContext(ctx, d.BinaryPath, args...)
	cmd.Dir = d.HostRoot
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return "", &rlerrors.ExternalHostError{ExitCode: -1, Err: err}
	}

	id := d.register(cmd)
	defer d.unregister(id)

	waitErr := cmd.Wait()
	exitCode := cmd.ProcessState.ExitCode()

	if waitErr != nil && exitCode < 0 {
		// Killed by signal (cancellation) before producing an exit code.
		return outBuf.String(), &rlerrors.ExternalHostError{
			ExitCode: exitCode,
			Stdout:   outBuf.String(),
			Stderr:   errBuf.String(),
			Err:      waitErr,
		}
	}

	if !isSuccessExitCode(exitCode) {
		return outBuf.String(), &rlerrors.ExternalHostError{
			ExitCode: exitCode,
			Stdout:   outBuf.String(),
			Stderr:   errBuf.String(),
			Err:      waitErr,
		}
	}

	return outBuf.String(), nil
}

func (d *Driver) register(cmd *exec.Cmd) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	d.procs[id] = cmd
	return id
}

func (d *Driver) unregister(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.procs, id)
}

// KillAll terminates every outstanding child process's entire process
// group (§5: "kill all outstanding child processes, including their
// process trees"). Safe to call concurrently with Run; processes that have
// already exited are silently skipped.
func (d *Driver) KillAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cmd := range d.procs {
		if cmd.Process == nil {
			continue
		}
		pgid, err := syscall.Getpgid(cmd.Process.Pid)
		if err != nil {
			continue
		}
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	}
}

// WatchCancellation blocks until ctx is cancelled, then calls KillAll. Run
// this in its own goroutine alongside a Driver used for long-lived
// orchestration (MCMC rounds, training rounds); exec.CommandContext already
// kills the direct child on cancellation, but WatchCancellation is what
// reaches the rest of a process tree a child may have spawned.
func (d *Driver) WatchCancellation(ctx context.Context) {
	<-ctx.Done()
	d.KillAll()
}
