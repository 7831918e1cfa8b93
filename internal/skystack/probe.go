package skystack

import (
	"fmt"
	"os/exec"
	"strings"
)

// probeEnvironment checks the host requirements in their declared order and
// stops at the first failure. Every probe is read-only; a run that fails
// here leaves no trace on the system.
func (p *Pipeline) probeEnvironment() (StageResult, error) {
	colArrow.Print("-> ")
	colSuccess.Println("Checking host environment")

	for _, pre := range p.Prereqs {
		if _, err := p.LookPath(pre.Probe[0]); err != nil {
			perr := &PrerequisiteError{Name: pre.Name, Hint: pre.Hint}
			return stageFailed("environment", "%v", perr), perr
		}
		out, err := p.captureOutput(exec.Command(pre.Probe[0], pre.Probe[1:]...))
		if err != nil {
			perr := &PrerequisiteError{
				Name: pre.Name,
				Hint: fmt.Sprintf("probe command failed (%v). %s", err, pre.Hint),
			}
			return stageFailed("environment", "%v", perr), perr
		}
		if pre.Expect != "" && !strings.Contains(out, pre.Expect) {
			perr := &PrerequisiteError{
				Name: pre.Name,
				Hint: fmt.Sprintf("host reports %q. %s", strings.TrimSpace(out), pre.Hint),
			}
			return stageFailed("environment", "%v", perr), perr
		}
		debugf("prerequisite %s satisfied\n", pre.Name)
	}

	return stageSuccess("environment", "%d prerequisites satisfied", len(p.Prereqs)), nil
}
