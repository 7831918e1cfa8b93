package skystack

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var usagePattern = regexp.MustCompile(`(?i)usage`)

// verifyTools probes each expected binary: PATH presence first, then a
// quick invocation that must either print something that looks like a
// usage text or exit with an accepted status. This is a liveness check
// only; a tool that loads its libraries and answers is healthy no matter
// what it printed. Unhealthy tools never fail the run.
func (p *Pipeline) verifyTools() ([]ToolStatus, StageResult) {
	colArrow.Print("-> ")
	colSuccess.Println("Verifying installed tools")

	statuses := make([]ToolStatus, 0, len(p.Tools))
	healthy := 0
	for _, tool := range p.Tools {
		status := ToolStatus{Name: tool.Name}
		if f := p.probeTool(tool); f != nil {
			status.Failure = f
			colArrow.Print("-> ")
			colWarn.Printf("%v\n", f)
		} else {
			healthy++
			colArrow.Print("-> ")
			colSuccess.Printf("%s responds\n", tool.Name)
		}
		statuses = append(statuses, status)
	}

	if healthy == len(p.Tools) {
		return statuses, stageSuccess("verify", "all %d tools healthy", len(p.Tools))
	}
	return statuses, stageFailed("verify", "%d of %d tools unhealthy", len(p.Tools)-healthy, len(p.Tools))
}

func (p *Pipeline) probeTool(tool ToolCheck) *VerificationFailure {
	path, err := p.LookPath(tool.Name)
	if err != nil {
		return &VerificationFailure{
			Tool:   tool.Name,
			Reason: fmt.Sprintf("not found on PATH (expected under %s/bin)", Prefix),
		}
	}

	var buf bytes.Buffer
	cmd := exec.Command(path, tool.Args...)
	cmd.Stdin = strings.NewReader("")
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err = p.RunProbe(cmd)
	out := buf.String()

	if usagePattern.MatchString(out) {
		return nil
	}
	code := exitStatus(err)
	for _, accept := range tool.AcceptExit {
		if code == accept {
			return nil
		}
	}

	reason := fmt.Sprintf("unexpected exit status %d", code)
	if strings.Contains(out, "Library not loaded") {
		reason = "dynamic loader cannot resolve a linked library"
	} else if err != nil && code == -1 {
		reason = err.Error()
	}
	return &VerificationFailure{Tool: tool.Name, Reason: reason}
}

// exitStatus maps an executor error to a process exit code, -1 when the
// process never exited normally.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
