package skystack

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const logTailLines = 20

// buildProject drives the three build phases for one project: configure
// into an out-of-tree build directory, compile with full parallelism, and
// install through the root executor. The install is the only privileged
// phase; a nonzero exit from any phase is fatal for the project.
func (p *Pipeline) buildProject(proj ProjectSpec, workPath string, logW io.Writer) (StageResult, error) {
	stage := proj.Name + " build"
	buildDir := filepath.Join(workPath, "build")

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		berr := &BuildError{Project: proj.Name, Phase: "configure", Err: err}
		return stageFailed(stage, "%v", berr), berr
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Configuring %s\n", proj.Name)
	cmd := exec.Command("cmake", configureArgs(proj)...)
	cmd.Dir = buildDir
	cmd.Stdout = logW
	cmd.Stderr = logW
	if err := p.RunUser(cmd); err != nil {
		berr := &BuildError{Project: proj.Name, Phase: "configure", Err: err}
		return stageFailed(stage, "%v", berr), berr
	}

	jobs := buildJobs(proj)
	colArrow.Print("-> ")
	colSuccess.Printf("Compiling %s (-j%d)\n", proj.Name, jobs)
	spin := startSpinner("Compiling " + proj.Name)
	cmd = exec.Command("make", "-j"+strconv.Itoa(jobs))
	cmd.Dir = buildDir
	cmd.Stdout = logW
	cmd.Stderr = logW
	err := p.RunUser(cmd)
	spin.Stop()
	if err != nil {
		berr := &BuildError{Project: proj.Name, Phase: "compile", Err: err}
		return stageFailed(stage, "%v", berr), berr
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Installing %s into %s\n", proj.Name, Prefix)
	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)
	cmd = exec.Command("make", "install")
	cmd.Dir = buildDir
	cmd.Stdout = logW
	cmd.Stderr = logW
	if err := p.RunRoot(cmd); err != nil {
		berr := &BuildError{Project: proj.Name, Phase: "install", Err: err}
		return stageFailed(stage, "%v", berr), berr
	}

	return stageSuccess(stage, "installed into %s", Prefix), nil
}

// configureArgs assembles the cmake invocation: install prefix, rpath baked
// into the binaries at link time, then the per-project options.
func configureArgs(proj ProjectSpec) []string {
	args := []string{
		"-DCMAKE_INSTALL_PREFIX=" + Prefix,
		"-DCMAKE_INSTALL_RPATH=" + filepath.Join(Prefix, "lib"),
		"-DCMAKE_BUILD_WITH_INSTALL_RPATH=ON",
	}
	for _, opt := range proj.Options {
		args = append(args, "-D"+opt)
	}
	return append(args, "..")
}

// buildJobs picks the make parallelism: the configured override wins, then
// the project's own cap, then every core the host has.
func buildJobs(proj ProjectSpec) int {
	if JobsOverride > 0 {
		return JobsOverride
	}
	if proj.Jobs > 0 {
		return proj.Jobs
	}
	return runtime.NumCPU()
}

// echoLogTail surfaces the end of the build log right next to the failure
// message, so the interesting compiler output is visible without digging
// for the log file.
func echoLogTail(logPath string) {
	data, err := os.ReadFile(logPath)
	if err != nil || len(data) == 0 {
		return
	}
	lines := lastLines(data, logTailLines)
	if len(lines) == 0 {
		return
	}
	colArrow.Print("-> ")
	colWarn.Printf("Last %d line(s) of %s:\n", len(lines), logPath)
	for _, line := range lines {
		fmt.Printf("  %s\n", line)
	}
}

func lastLines(data []byte, n int) []string {
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	all := strings.Split(trimmed, "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}
