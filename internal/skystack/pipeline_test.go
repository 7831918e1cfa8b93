package skystack

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// call records one command the fake runner saw.
type call struct {
	argv []string
	dir  string
}

// failRule fails any command whose argv starts with argvPrefix and whose
// working directory contains dirContains.
type failRule struct {
	argvPrefix  string
	dirContains string
	err         error
}

// fakeRunner stands in for every injected runner. Commands are matched on
// their joined argv prefix; scripted output goes to the command's stdout.
type fakeRunner struct {
	calls   []call
	fails   []failRule
	output  map[string]string
	onClone func(dst string)
}

func (f *fakeRunner) run(cmd *exec.Cmd) error {
	argv := strings.Join(cmd.Args, " ")
	f.calls = append(f.calls, call{argv: cmd.Args, dir: cmd.Dir})

	for prefix, out := range f.output {
		if strings.HasPrefix(argv, prefix) {
			if cmd.Stdout != nil {
				io.WriteString(cmd.Stdout, out)
			}
			break
		}
	}
	if strings.HasPrefix(argv, "git clone") && f.onClone != nil {
		f.onClone(cmd.Args[len(cmd.Args)-1])
	}
	for _, rule := range f.fails {
		if strings.HasPrefix(argv, rule.argvPrefix) && strings.Contains(cmd.Dir, rule.dirContains) {
			return rule.err
		}
	}
	return nil
}

func (f *fakeRunner) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(strings.Join(c.argv, " "), prefix) {
			n++
		}
	}
	return n
}

func newTestPipeline(t *testing.T, f *fakeRunner) *Pipeline {
	t.Helper()
	WorkDir = filepath.Join(t.TempDir(), "work")
	LogDir = t.TempDir()
	Prefix = "/usr/local"
	BundleFormat = "gz"
	Debug = false
	JobsOverride = 0

	p := NewPipeline(context.Background())
	p.RunUser = f.run
	p.RunRoot = f.run
	p.RunProbe = f.run
	p.LookPath = func(name string) (string, error) { return "/usr/local/bin/" + name, nil }
	p.Confirm = func(string) bool { return true }
	p.Authenticate = func() error { return nil }
	return p
}

func testProjects() []ProjectSpec {
	return []ProjectSpec{
		{
			Name:     "alpha",
			URL:      "https://example.org/alpha.git",
			Dir:      "alpha",
			Options:  []string{"FOO=ON"},
			Binaries: []string{"alpha_tool"},
		},
		{
			Name: "beta",
			URL:  "https://example.org/beta.git",
			Dir:  "beta",
			Patch: &PatchDescriptor{
				File:   "CMakeLists.txt",
				Backup: "CMakeLists.txt.orig",
				Marker: "#",
				Spans:  []LineSpan{{2, 3}},
			},
			Binaries: []string{"beta_tool"},
		},
	}
}

func testTools() []ToolCheck {
	return []ToolCheck{
		{Name: "alpha_tool", Args: []string{"-h"}, AcceptExit: []int{0, 1}},
		{Name: "beta_tool", AcceptExit: []int{0, 1}},
	}
}

func materializeClone(t *testing.T) func(string) {
	t.Helper()
	return func(dst string) {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			t.Fatalf("clone fixture: %v", err)
		}
		content := "project(beta)\nadd_subdirectory(sdrplay)\nlink_libraries(mirsdrapi)\nadd_executable(beta_tool main.c)\n"
		if err := os.WriteFile(filepath.Join(dst, "CMakeLists.txt"), []byte(content), 0o644); err != nil {
			t.Fatalf("clone fixture: %v", err)
		}
	}
}

func findResult(rep *InstallationReport, stage string) (StageResult, bool) {
	for _, res := range rep.Results {
		if res.Stage == stage {
			return res, true
		}
	}
	return StageResult{}, false
}

func TestRunAllHealthy(t *testing.T) {
	f := &fakeRunner{
		output: map[string]string{
			"uname -s":                  "Darwin\n",
			"otool -L":                  "/usr/local/bin/tool:\n\tlibrtlsdr.2.dylib (compatibility version 2.0.0, current version 2.0.0)\n",
			"/usr/local/bin/alpha_tool": "Usage: alpha_tool [options]\n",
		},
	}
	f.onClone = materializeClone(t)
	p := newTestPipeline(t, f)
	p.Projects = testProjects()
	p.Tools = testTools()

	if got := p.Run(); got != 0 {
		t.Fatalf("Run() = %d, want 0", got)
	}
	if !p.Report.Finalized() {
		t.Errorf("report was not finalized")
	}
	if !p.Report.AllHealthy {
		t.Errorf("AllHealthy = false, want true")
	}
	if n := f.count("brew install"); n != 0 {
		t.Errorf("brew install ran %d times on a satisfied host, want 0", n)
	}
	if n := f.count("git clone"); n != 2 {
		t.Errorf("git clone ran %d times, want 2", n)
	}
	if n := f.count("install_name_tool"); n != 2 {
		t.Errorf("install_name_tool ran %d times, want 2", n)
	}
	if _, err := os.Stat(WorkDir); !os.IsNotExist(err) {
		t.Errorf("workspace %s still exists after the run", WorkDir)
	}
	if res, ok := findResult(p.Report, "beta restore"); !ok || res.Outcome != OutcomeSuccess {
		t.Errorf("beta restore result = %+v, want recorded success", res)
	}
	if _, err := os.Stat(filepath.Join(LogDir, "alpha.log.xz")); err != nil {
		t.Errorf("compressed build log missing: %v", err)
	}
}

func TestRunDeclined(t *testing.T) {
	f := &fakeRunner{output: map[string]string{"uname -s": "Darwin\n"}}
	p := newTestPipeline(t, f)
	p.Projects = testProjects()
	p.Tools = testTools()
	p.Confirm = func(string) bool { return false }

	if got := p.Run(); got != 0 {
		t.Fatalf("Run() = %d, want 0", got)
	}
	if p.Report.Finalized() {
		t.Errorf("report finalized after a declined prompt")
	}
	for _, prefix := range []string{"brew install", "brew list", "git clone", "cmake -D", "make"} {
		if n := f.count(prefix); n != 0 {
			t.Errorf("%q ran %d times after decline, want 0", prefix, n)
		}
	}
	if _, err := os.Stat(WorkDir); !os.IsNotExist(err) {
		t.Errorf("workspace created after decline")
	}
	if _, err := os.Stat(filepath.Join(LogDir, "run.lock")); !os.IsNotExist(err) {
		t.Errorf("run lock created after decline")
	}
}

func TestRunMissingPrerequisite(t *testing.T) {
	f := &fakeRunner{output: map[string]string{"uname -s": "Darwin\n"}}
	p := newTestPipeline(t, f)
	p.Projects = testProjects()
	p.Tools = testTools()
	p.LookPath = func(name string) (string, error) {
		if name == "brew" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/local/bin/" + name, nil
	}
	confirmAsked := false
	p.Confirm = func(string) bool { confirmAsked = true; return true }

	if got := p.Run(); got != 1 {
		t.Fatalf("Run() = %d, want 1", got)
	}
	if confirmAsked {
		t.Errorf("confirmation prompted after a failed environment check")
	}
	if !p.Report.Finalized() {
		t.Errorf("reporter did not run after the abort")
	}
	if len(p.Report.Results) == 0 {
		t.Fatalf("no stage results recorded")
	}
	first := p.Report.Results[0]
	if first.Stage != "environment" || first.Outcome != OutcomeFailed {
		t.Errorf("first result = %+v, want failed environment", first)
	}
	if !strings.Contains(first.Detail, `"brew"`) {
		t.Errorf("failure detail %q does not name the missing prerequisite", first.Detail)
	}
	if n := f.count("uname -s"); n != 1 {
		t.Errorf("uname probe ran %d times, want 1 (checks run in order)", n)
	}
	for _, prefix := range []string{"brew install", "git clone", "make"} {
		if n := f.count(prefix); n != 0 {
			t.Errorf("%q ran %d times after abort, want 0", prefix, n)
		}
	}
	if _, err := os.Stat(WorkDir); !os.IsNotExist(err) {
		t.Errorf("workspace created despite the abort")
	}
}

func TestRunCompileFailureStillVerifies(t *testing.T) {
	f := &fakeRunner{
		output: map[string]string{
			"uname -s":                  "Darwin\n",
			"otool -L":                  "/usr/local/bin/tool:\n\tlibrtlsdr.2.dylib (compatibility version 2.0.0)\n",
			"/usr/local/bin/alpha_tool": "Usage: alpha_tool [options]\n",
		},
		fails: []failRule{{argvPrefix: "make -j", dirContains: "beta", err: errors.New("exit status 2")}},
	}
	f.onClone = materializeClone(t)
	p := newTestPipeline(t, f)
	p.Projects = append(testProjects(), ProjectSpec{
		Name:     "gamma",
		URL:      "https://example.org/gamma.git",
		Dir:      "gamma",
		Binaries: []string{"gamma_tool"},
	})
	p.Tools = testTools()
	p.LookPath = func(name string) (string, error) {
		if name == "beta_tool" {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/local/bin/" + name, nil
	}

	if got := p.Run(); got != 1 {
		t.Fatalf("Run() = %d, want 1", got)
	}

	res, ok := findResult(p.Report, "beta build")
	if !ok || res.Outcome != OutcomeFailed {
		t.Fatalf("beta build result = %+v, want failed", res)
	}
	if !strings.Contains(res.Detail, "compile") {
		t.Errorf("beta build detail %q does not name the compile phase", res.Detail)
	}
	if res, ok := findResult(p.Report, "beta restore"); !ok || res.Outcome != OutcomeSuccess {
		t.Errorf("beta restore result = %+v, want success even after the failed build", res)
	}
	for _, c := range f.calls {
		if c.argv[0] == "install_name_tool" && strings.Contains(strings.Join(c.argv, " "), "beta_tool") {
			t.Errorf("link repair ran for the failed project: %v", c.argv)
		}
	}
	if res, ok := findResult(p.Report, "gamma"); !ok || res.Outcome != OutcomeSkipped {
		t.Errorf("gamma result = %+v, want skipped", res)
	}
	if n := f.count("git clone https://example.org/gamma.git"); n != 0 {
		t.Errorf("gamma was cloned despite the earlier failure")
	}
	if res, ok := findResult(p.Report, "verify"); !ok || res.Outcome != OutcomeFailed {
		t.Errorf("verify result = %+v, want recorded failure", res)
	}
	if p.Report.AllHealthy {
		t.Errorf("AllHealthy = true with a missing tool")
	}
	if _, err := os.Stat(filepath.Join(LogDir, "beta-failure.tar.gz")); err != nil {
		t.Errorf("failure bundle missing: %v", err)
	}
	if _, err := os.Stat(WorkDir); !os.IsNotExist(err) {
		t.Errorf("workspace %s not cleaned up after the failed run", WorkDir)
	}
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	f := &fakeRunner{output: map[string]string{"uname -s": "Darwin\n"}}
	p := newTestPipeline(t, f)
	p.Projects = testProjects()
	p.Tools = testTools()

	held, err := acquireRunLock()
	if err != nil {
		t.Fatalf("acquireRunLock() = %v", err)
	}
	defer releaseRunLock(held)

	if got := p.Run(); got != 1 {
		t.Fatalf("Run() = %d with the lock held, want 1", got)
	}
	if res, ok := findResult(p.Report, "run lock"); !ok || res.Outcome != OutcomeFailed {
		t.Errorf("run lock result = %+v, want failed", res)
	}
	if n := f.count("git clone"); n != 0 {
		t.Errorf("pipeline fetched sources despite the held lock")
	}
}
