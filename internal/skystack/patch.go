package skystack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"lukechampine.com/blake3"
)

// applyPatch backs up the target file, comments out the declared line spans
// and returns the restore function that puts the original bytes back. The
// returned restore is safe to call more than once, runs as soon as the
// backup exists no matter what happens downstream, and checks byte identity
// with a BLAKE3 digest after writing.
func (p *Pipeline) applyPatch(proj ProjectSpec, workPath string) (restore func(), res StageResult, err error) {
	stage := proj.Name + " patch"
	desc := proj.Patch
	target := filepath.Join(workPath, desc.File)
	backup := filepath.Join(workPath, desc.Backup)
	restore = func() {}

	colArrow.Print("-> ")
	colSuccess.Printf("Patching %s (%s)\n", proj.Name, desc.File)

	original, rerr := os.ReadFile(target)
	if rerr != nil {
		perr := &PatchError{Project: proj.Name, Err: rerr}
		return restore, stageFailed(stage, "%v", perr), perr
	}
	mode := fileMode(target)
	origSum := contentDigest(original)

	if werr := os.WriteFile(backup, original, mode); werr != nil {
		perr := &PatchError{Project: proj.Name, Err: fmt.Errorf("cannot write backup: %w", werr)}
		return restore, stageFailed(stage, "%v", perr), perr
	}

	// The backup exists from here on, so the restore must run whatever
	// happens next.
	var once sync.Once
	restore = func() {
		once.Do(func() {
			p.restorePatch(proj, target, backup, mode, origSum)
		})
	}

	patched, aerr := applySpans(original, desc.Marker, desc.Spans)
	if aerr != nil {
		perr := &PatchError{Project: proj.Name, Err: aerr}
		return restore, stageFailed(stage, "%v", perr), perr
	}
	if werr := os.WriteFile(target, patched, mode); werr != nil {
		perr := &PatchError{Project: proj.Name, Err: werr}
		return restore, stageFailed(stage, "%v", perr), perr
	}

	return restore, stageSuccess(stage, "%d span(s) commented out in %s", len(desc.Spans), desc.File), nil
}

// restorePatch writes the backup over the target, removes the backup and
// verifies the digest. Problems here are loud warnings rather than fatal:
// by the time a restore can fail the install already happened or already
// failed, and the summary tells the user what to fix by hand.
func (p *Pipeline) restorePatch(proj ProjectSpec, target, backup string, mode fs.FileMode, wantSum string) {
	stage := proj.Name + " restore"
	desc := proj.Patch

	data, err := os.ReadFile(backup)
	if err != nil {
		colArrow.Print("-> ")
		colWarn.Printf("Cannot restore %s: backup unreadable: %v\n", desc.File, err)
		p.Report.Record(stageFailed(stage, "backup unreadable: %v", err))
		return
	}
	if err := os.WriteFile(target, data, mode); err != nil {
		colArrow.Print("-> ")
		colWarn.Printf("Cannot restore %s: %v\n", desc.File, err)
		p.Report.Record(stageFailed(stage, "%v", err))
		return
	}
	if err := os.Remove(backup); err != nil {
		colArrow.Print("-> ")
		colWarn.Printf("Could not remove backup %s: %v\n", desc.Backup, err)
	}
	if got := contentDigest(data); got != wantSum {
		colArrow.Print("-> ")
		colWarn.Printf("Restored %s does not match the original digest\n", desc.File)
		p.Report.Record(stageFailed(stage, "digest mismatch after restore"))
		return
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Restored pristine %s\n", desc.File)
	p.Report.Record(stageSuccess(stage, "%s byte-identical to upstream", desc.File))
}

// applySpans prefixes every line in the given spans with the comment
// marker. Lines are 1-based and spans inclusive; a span that falls outside
// the file is an error rather than a silent partial patch. Nothing is ever
// deleted, so the change stays reviewable in the build log and trivially
// reversible.
func applySpans(src []byte, marker string, spans []LineSpan) ([]byte, error) {
	lines := strings.SplitAfter(string(src), "\n")
	count := len(lines)
	if count > 0 && lines[count-1] == "" {
		count--
	}

	for _, s := range spans {
		if s.First < 1 || s.Last < s.First || s.Last > count {
			return nil, fmt.Errorf("span %d-%d outside file of %d line(s)", s.First, s.Last, count)
		}
		for i := s.First - 1; i < s.Last; i++ {
			lines[i] = marker + lines[i]
		}
	}
	return []byte(strings.Join(lines, "")), nil
}

// contentDigest hashes file content for the byte-identity check after a
// restore.
func contentDigest(data []byte) string {
	h := blake3.New(32, nil)
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func fileMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}
