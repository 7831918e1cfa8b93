package skystack

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// libraryReferences lists the rewrites wanted for one project's installed
// binaries: the bare versioned library name replaced by its absolute path
// under the install prefix.
func libraryReferences(proj ProjectSpec) []LibraryReference {
	refs := make([]LibraryReference, 0, len(proj.Binaries))
	for _, bin := range proj.Binaries {
		refs = append(refs, LibraryReference{
			Binary: filepath.Join(Prefix, "bin", bin),
			Old:    rtlsdrLib,
			New:    filepath.Join(Prefix, "lib", rtlsdrLib),
		})
	}
	return refs
}

// repairLinks rewrites the embedded librtlsdr reference in each installed
// binary to its absolute installed path. A binary that never carried the
// bare name, or that was rewritten on an earlier run, is skipped, so
// running the installer again changes nothing. Problems here are warnings,
// not fatal: the verifier will surface the same breakage against the
// actual tool.
func (p *Pipeline) repairLinks(proj ProjectSpec) StageResult {
	stage := proj.Name + " link repair"

	colArrow.Print("-> ")
	colSuccess.Printf("Repairing library references for %s\n", proj.Name)

	refs := libraryReferences(proj)
	var rewritten, skipped int
	var warnings []*LinkRepairWarning
	for _, ref := range refs {
		out, err := p.captureOutput(exec.Command("otool", "-L", ref.Binary))
		if err != nil {
			warnings = append(warnings, &LinkRepairWarning{
				Binary: ref.Binary,
				Err:    fmt.Errorf("otool failed: %w", err),
			})
			continue
		}
		if !referencesLibrary(out, ref.Old) {
			debugf("%s already resolves %s\n", ref.Binary, ref.Old)
			skipped++
			continue
		}
		cmd := exec.Command("install_name_tool", "-change", ref.Old, ref.New, ref.Binary)
		if err := p.RunRoot(cmd); err != nil {
			warnings = append(warnings, &LinkRepairWarning{Binary: ref.Binary, Err: err})
			continue
		}
		debugf("rewrote %s -> %s in %s\n", ref.Old, ref.New, ref.Binary)
		rewritten++
	}

	for _, w := range warnings {
		colArrow.Print("-> ")
		colWarn.Printf("%v\n", w)
	}
	if len(warnings) > 0 {
		return stageFailed(stage, "%d of %d reference(s) not repaired", len(warnings), len(refs))
	}
	if rewritten == 0 {
		return stageSuccess(stage, "nothing to rewrite, %d binaries already resolve %s", skipped, rtlsdrLib)
	}
	return stageSuccess(stage, "%d reference(s) rewritten, %d already correct", rewritten, skipped)
}

// referencesLibrary reports whether otool -L output still lists the library
// by its bare versioned name. Load commands that already carry an absolute
// path show up with a leading slash and never match.
func referencesLibrary(otoolOut, lib string) bool {
	for _, line := range strings.Split(otoolOut, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == lib {
			return true
		}
	}
	return false
}
