package skystack

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// fetchSource throws away any stale checkout and clones the project fresh,
// so every run builds from pristine upstream source. Failing to clean the
// old tree is as fatal as a failed clone: building on top of leftovers is
// worse than not building at all.
func (p *Pipeline) fetchSource(proj ProjectSpec, workPath string, logW io.Writer) (StageResult, error) {
	stage := proj.Name + " fetch"

	colArrow.Print("-> ")
	colSuccess.Printf("Fetching %s from %s\n", proj.Name, proj.URL)

	if isUnsafeRemovalPath(workPath) {
		ferr := &FetchError{Project: proj.Name, Err: fmt.Errorf("checkout path %q is not safe to recreate", workPath)}
		return stageFailed(stage, "%v", ferr), ferr
	}
	if _, err := os.Lstat(workPath); err == nil {
		debugf("removing stale checkout %s\n", workPath)
		if err := p.RemoveAll(workPath); err != nil {
			ferr := &FetchError{Project: proj.Name, Err: fmt.Errorf("cannot clean old checkout: %w", err)}
			return stageFailed(stage, "%v", ferr), ferr
		}
	}

	spin := startSpinner("Cloning " + proj.Name)
	cmd := exec.Command("git", "clone", proj.URL, workPath)
	cmd.Stdout = logW
	cmd.Stderr = logW
	err := p.RunUser(cmd)
	spin.Stop()
	if err != nil {
		ferr := &FetchError{
			Project: proj.Name,
			Err:     fmt.Errorf("git clone failed: %w (check network access to %s)", err, proj.URL),
		}
		return stageFailed(stage, "%v", ferr), ferr
	}

	return stageSuccess(stage, "cloned %s", proj.URL), nil
}
