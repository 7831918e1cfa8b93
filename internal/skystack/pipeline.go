package skystack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// Pipeline owns one installation run: the declared specs, the accumulating
// report, and the process-level helpers every stage goes through.
type Pipeline struct {
	Context  context.Context
	Report   *InstallationReport
	Prereqs  []PrerequisiteSpec
	Packages []PackageSpec
	Projects []ProjectSpec
	Tools    []ToolCheck

	// Dep injection for testing
	RunUser      func(*exec.Cmd) error
	RunRoot      func(*exec.Cmd) error
	RunProbe     func(*exec.Cmd) error
	LookPath     func(string) (string, error)
	RemoveAll    func(string) error
	Confirm      func(string) bool
	Authenticate func() error
}

func NewPipeline(ctx context.Context) *Pipeline {
	return &Pipeline{
		Context:  ctx,
		Report:   NewInstallationReport(),
		Prereqs:  prerequisites,
		Packages: brewPackages,
		Projects: projects,
		Tools:    expectedTools,
		RunUser:  func(cmd *exec.Cmd) error { return UserExec.Run(cmd) },
		RunRoot:  func(cmd *exec.Cmd) error { return RootExec.Run(cmd) },
		RunProbe: func(cmd *exec.Cmd) error {
			probe := &Executor{Context: ctx, Timeout: probeTimeout}
			return probe.Run(cmd)
		},
		LookPath:  exec.LookPath,
		RemoveAll: os.RemoveAll,
		Confirm: func(msg string) bool {
			return askForConfirmation(colNote, "%s", msg)
		},
		Authenticate: authenticateOnce,
	}
}

// captureOutput runs an unprivileged command and returns its combined output.
func (p *Pipeline) captureOutput(cmd *exec.Cmd) (string, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := p.RunUser(cmd)
	return buf.String(), err
}

func (p *Pipeline) logFatal(err error) {
	colArrow.Print("-> ")
	colError.Printf("%v\n", err)
}

// Run drives the whole pipeline in order and returns the process exit code.
// Once the user confirms, the summary, usage guide and workspace cleanup
// always happen, no matter where the run stops; a declined prompt exits
// without any side effects at all.
func (p *Pipeline) Run() int {
	declined := false
	allHealthy := false
	defer func() {
		if declined {
			return
		}
		p.Report.Finalize(allHealthy)
		p.renderReport()
		printUsageGuide()
		p.cleanupWorkspace()
	}()

	res, err := p.probeEnvironment()
	p.Report.Record(res)
	if err != nil {
		p.logFatal(err)
		p.Report.Record(stageSkipped("verify", "installation did not run"))
		return 1
	}

	if !p.confirmPlan() {
		declined = true
		colArrow.Print("-> ")
		colSuccess.Println("Aborted. Nothing was changed.")
		return 0
	}

	lock, lerr := acquireRunLock()
	if lerr != nil {
		p.logFatal(lerr)
		p.Report.Record(stageFailed("run lock", "%v", lerr))
		p.Report.Record(stageSkipped("verify", "installation did not run"))
		return 1
	}
	defer releaseRunLock(lock)

	res, err = p.resolveDependencies()
	p.Report.Record(res)
	if err != nil {
		p.logFatal(err)
		p.Report.Record(stageSkipped("verify", "installation did not run"))
		return 1
	}

	// One sudo authentication up front so the install steps never stall on
	// a password prompt halfway through a long compile.
	if err := p.Authenticate(); err != nil {
		p.logFatal(err)
		p.Report.Record(stageFailed("authentication", "%v", err))
		p.Report.Record(stageSkipped("verify", "installation did not run"))
		return 1
	}

	fatal := false
	for _, proj := range p.Projects {
		if fatal {
			p.Report.Record(stageSkipped(proj.Name, "earlier failure aborted the pipeline"))
			continue
		}
		if err := p.runProject(proj); err != nil {
			fatal = true
		}
	}

	// The verifier still runs after a project failed: it tells the user
	// which tools made it and which are missing or broken.
	statuses, vres := p.verifyTools()
	p.Report.Record(vres)
	p.Report.RecordTools(statuses)
	allHealthy = vres.Outcome == OutcomeSuccess

	if fatal {
		return 1
	}
	return 0
}

// runProject takes one project through fetch, patch, build and link repair.
// A non-nil return means the project failed fatally and the pipeline must
// not start the next one.
func (p *Pipeline) runProject(proj ProjectSpec) error {
	workPath := filepath.Join(WorkDir, proj.Dir)

	logFile, logPath, lerr := p.openBuildLog(proj)
	if lerr != nil {
		ferr := &FetchError{Project: proj.Name, Err: lerr}
		p.Report.Record(stageFailed(proj.Name+" fetch", "%v", ferr))
		p.logFatal(ferr)
		return ferr
	}
	defer logFile.Close()
	var logW io.Writer = logFile
	if Debug {
		logW = io.MultiWriter(os.Stdout, logFile)
	}

	res, err := p.fetchSource(proj, workPath, logW)
	p.Report.Record(res)
	if err != nil {
		p.logFatal(err)
		return err
	}

	restore := func() {}
	if proj.Patch != nil {
		var pres StageResult
		restore, pres, err = p.applyPatch(proj, workPath)
		defer restore()
		p.Report.Record(pres)
		if err != nil {
			p.logFatal(err)
			restore()
			return err
		}
	}

	bres, berr := p.buildProject(proj, workPath, logW)
	p.Report.Record(bres)
	restore()
	logFile.Close()
	if berr != nil {
		p.logFatal(berr)
		echoLogTail(logPath)
		p.collectFailureBundle(proj, workPath, logPath)
		p.compressBuildLog(proj, logPath)
		return berr
	}

	p.compressBuildLog(proj, logPath)
	p.Report.Record(p.repairLinks(proj))
	return nil
}

// openBuildLog creates the per-project log under the workspace. The raw log
// is disposable with the workspace; compressBuildLog keeps a copy that
// survives.
func (p *Pipeline) openBuildLog(proj ProjectSpec) (*os.File, string, error) {
	logDir := filepath.Join(WorkDir, "log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("cannot create build log directory: %w", err)
	}
	logPath := filepath.Join(logDir, proj.Name+".log")
	f, err := os.Create(logPath)
	if err != nil {
		return nil, "", fmt.Errorf("cannot create build log: %w", err)
	}
	return f, logPath, nil
}

func (p *Pipeline) compressBuildLog(proj ProjectSpec, logPath string) {
	dest := filepath.Join(LogDir, proj.Name+".log.xz")
	if err := compressLogXZ(logPath, dest); err != nil {
		debugf("could not compress build log for %s: %v\n", proj.Name, err)
		return
	}
	colArrow.Print("-> ")
	cPrintf(colInfo, "Build log saved to %s\n", dest)
}

// collectFailureBundle snapshots the debris that explains a failed build
// before the reporter deletes the workspace: the build log plus cmake's
// probe logs when they exist.
func (p *Pipeline) collectFailureBundle(proj ProjectSpec, workPath, logPath string) {
	candidates := []string{
		logPath,
		filepath.Join(workPath, "build", "CMakeFiles", "CMakeError.log"),
		filepath.Join(workPath, "build", "CMakeFiles", "CMakeOutput.log"),
	}
	var files []string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			files = append(files, c)
		}
	}
	if len(files) == 0 {
		return
	}

	dest := filepath.Join(LogDir, proj.Name+"-failure.tar."+BundleFormat)
	if err := writeFailureBundle(dest, files); err != nil {
		colArrow.Print("-> ")
		colWarn.Printf("Could not write failure bundle: %v\n", err)
		return
	}
	colArrow.Print("-> ")
	cPrintf(colInfo, "Failure details saved to %s\n", dest)
}

// confirmPlan shows what the run will touch and asks before mutating
// anything.
func (p *Pipeline) confirmPlan() bool {
	var pkgs, projs []string
	for _, pkg := range p.Packages {
		pkgs = append(pkgs, pkg.Name)
	}
	for _, proj := range p.Projects {
		projs = append(projs, proj.Name)
	}

	colArrow.Print("-> ")
	colSuccess.Println("This run will:")
	fmt.Printf("  - install missing Homebrew packages: %s\n", strings.Join(pkgs, ", "))
	fmt.Printf("  - fetch and build %s under %s\n", strings.Join(projs, ", "), WorkDir)
	fmt.Printf("  - install the results into %s (sudo is required for that step)\n", Prefix)
	return p.Confirm("Proceed?")
}
