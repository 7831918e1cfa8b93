package skystack

import "os/exec"

// resolveDependencies walks the declared Homebrew packages exactly once,
// installing only what is missing. The pass always covers the whole list so
// that independent problems get diagnosed in a single run; failures are
// aggregated and become fatal only after the last package was tried. On a
// host where everything is already present this performs zero installs.
func (p *Pipeline) resolveDependencies() (StageResult, error) {
	colArrow.Print("-> ")
	colSuccess.Println("Resolving build dependencies")

	var present, installed int
	var failed []string
	for _, pkg := range p.Packages {
		if _, err := p.captureOutput(exec.Command(pkg.Installed[0], pkg.Installed[1:]...)); err == nil {
			debugf("%s already installed\n", pkg.Name)
			p.Report.Record(stageSkipped("dep "+pkg.Name, "already installed"))
			present++
			continue
		}

		colArrow.Print("-> ")
		colSuccess.Printf("Installing %s\n", pkg.Name)
		cmd := exec.Command(pkg.Install[0], pkg.Install[1:]...)
		if err := p.RunUser(cmd); err != nil {
			colArrow.Print("-> ")
			colError.Printf("Failed to install %s: %v\n", pkg.Name, err)
			p.Report.Record(stageFailed("dep "+pkg.Name, "%v", err))
			failed = append(failed, pkg.Name)
			continue
		}
		p.Report.Record(stageSuccess("dep "+pkg.Name, "installed"))
		installed++
	}

	if len(failed) > 0 {
		derr := &DependencyInstallError{Failed: failed}
		return stageFailed("dependencies", "%d of %d packages failed", len(failed), len(p.Packages)), derr
	}
	return stageSuccess("dependencies", "%d present, %d installed", present, installed), nil
}
