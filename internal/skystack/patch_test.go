package skystack

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestApplySpans(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		marker string
		spans  []LineSpan
		want   string
	}{
		{
			name:   "middle span",
			src:    "one\ntwo\nthree\nfour\n",
			marker: "#",
			spans:  []LineSpan{{2, 3}},
			want:   "one\n#two\n#three\nfour\n",
		},
		{
			name:   "span to last line",
			src:    "one\ntwo\nthree\n",
			marker: "#",
			spans:  []LineSpan{{3, 3}},
			want:   "one\ntwo\n#three\n",
		},
		{
			name:   "no trailing newline",
			src:    "one\ntwo\nthree",
			marker: "#",
			spans:  []LineSpan{{3, 3}},
			want:   "one\ntwo\n#three",
		},
		{
			name:   "multiple spans",
			src:    "a\nb\nc\nd\ne\n",
			marker: "//",
			spans:  []LineSpan{{1, 1}, {4, 5}},
			want:   "//a\nb\nc\n//d\n//e\n",
		},
		{
			name:   "single line file",
			src:    "only\n",
			marker: "#",
			spans:  []LineSpan{{1, 1}},
			want:   "#only\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applySpans([]byte(tt.src), tt.marker, tt.spans)
			if err != nil {
				t.Fatalf("applySpans() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("applySpans() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplySpansOutOfRange(t *testing.T) {
	src := []byte("one\ntwo\nthree\n")
	tests := []struct {
		name string
		span LineSpan
	}{
		{"past end of file", LineSpan{2, 9}},
		{"zero first line", LineSpan{0, 1}},
		{"inverted span", LineSpan{3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := applySpans(src, "#", []LineSpan{tt.span}); err == nil {
				t.Errorf("applySpans(%+v) = nil error, want out-of-range error", tt.span)
			}
		})
	}
}

func patchFixture(t *testing.T, content string) (*Pipeline, ProjectSpec, string) {
	t.Helper()
	p := newTestPipeline(t, &fakeRunner{})
	proj := ProjectSpec{
		Name: "beta",
		Dir:  "beta",
		Patch: &PatchDescriptor{
			File:   "CMakeLists.txt",
			Backup: "CMakeLists.txt.orig",
			Marker: "#",
			Spans:  []LineSpan{{2, 3}},
		},
	}
	workPath := filepath.Join(t.TempDir(), proj.Dir)
	if err := os.MkdirAll(workPath, 0o755); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workPath, "CMakeLists.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return p, proj, workPath
}

func TestApplyAndRestoreRoundTrip(t *testing.T) {
	original := "project(beta)\nadd_subdirectory(sdrplay)\nlink_libraries(mirsdrapi)\nadd_executable(beta_tool main.c)\n"
	p, proj, workPath := patchFixture(t, original)
	target := filepath.Join(workPath, "CMakeLists.txt")
	backup := filepath.Join(workPath, "CMakeLists.txt.orig")

	restore, res, err := p.applyPatch(proj, workPath)
	if err != nil {
		t.Fatalf("applyPatch() error = %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("applyPatch() outcome = %v, want success", res.Outcome)
	}

	saved, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if !bytes.Equal(saved, []byte(original)) {
		t.Errorf("backup differs from the original content")
	}

	patched, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("target unreadable: %v", err)
	}
	want := "project(beta)\n#add_subdirectory(sdrplay)\n#link_libraries(mirsdrapi)\nadd_executable(beta_tool main.c)\n"
	if string(patched) != want {
		t.Errorf("patched target = %q, want %q", patched, want)
	}

	restore()

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("restored target unreadable: %v", err)
	}
	if !bytes.Equal(got, []byte(original)) {
		t.Errorf("restored target differs from the original bytes")
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Errorf("backup still present after restore")
	}
	if res, ok := findResult(p.Report, "beta restore"); !ok || res.Outcome != OutcomeSuccess {
		t.Errorf("restore result = %+v, want success", res)
	}

	// A second call must not record or do anything further.
	restore()
	count := 0
	for _, r := range p.Report.Results {
		if r.Stage == "beta restore" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("restore recorded %d times, want 1", count)
	}
}

func TestApplyPatchSpanOutsideFile(t *testing.T) {
	p, proj, workPath := patchFixture(t, "one\ntwo\n")

	restore, res, err := p.applyPatch(proj, workPath)
	var perr *PatchError
	if !errors.As(err, &perr) {
		t.Fatalf("applyPatch() error = %v, want *PatchError", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("applyPatch() outcome = %v, want failed", res.Outcome)
	}

	// The backup was written before the spans were rejected; restore must
	// still put the file back and clean up.
	restore()
	got, err := os.ReadFile(filepath.Join(workPath, "CMakeLists.txt"))
	if err != nil || string(got) != "one\ntwo\n" {
		t.Errorf("target after restore = %q, %v; want original content", got, err)
	}
	if _, err := os.Stat(filepath.Join(workPath, "CMakeLists.txt.orig")); !os.IsNotExist(err) {
		t.Errorf("backup left behind after restore")
	}
}

func TestApplyPatchMissingTarget(t *testing.T) {
	p := newTestPipeline(t, &fakeRunner{})
	proj := ProjectSpec{
		Name:  "beta",
		Dir:   "beta",
		Patch: &PatchDescriptor{File: "CMakeLists.txt", Backup: "CMakeLists.txt.orig", Marker: "#", Spans: []LineSpan{{1, 1}}},
	}
	workPath := t.TempDir()

	restore, res, err := p.applyPatch(proj, workPath)
	var perr *PatchError
	if !errors.As(err, &perr) {
		t.Fatalf("applyPatch() error = %v, want *PatchError", err)
	}
	if res.Outcome != OutcomeFailed {
		t.Errorf("applyPatch() outcome = %v, want failed", res.Outcome)
	}
	// No backup was ever written; restore must be a safe no-op.
	restore()
	if _, ok := findResult(p.Report, "beta restore"); ok {
		t.Errorf("restore recorded a result without a backup")
	}
}
