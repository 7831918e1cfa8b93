package skystack

import (
	"fmt"
	"strings"
)

// PrerequisiteError reports an unmet host requirement. It aborts the
// pipeline before any mutation happens.
type PrerequisiteError struct {
	Name string
	Hint string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("prerequisite %q not satisfied. %s", e.Name, e.Hint)
}

// DependencyInstallError aggregates every package whose install action
// failed during the full resolver pass.
type DependencyInstallError struct {
	Failed []string
}

func (e *DependencyInstallError) Error() string {
	return fmt.Sprintf("failed to install required packages: %s (install them manually with 'brew install <name>' and re-run)",
		strings.Join(e.Failed, ", "))
}

// FetchError covers both workspace cleanup and clone failures for one project.
type FetchError struct {
	Project string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Project, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PatchError reports a failed backup or apply step. The restore path still
// runs whenever a backup exists.
type PatchError struct {
	Project string
	Err     error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patching %s: %v", e.Project, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }

// BuildError is fatal for its project and carries the phase (configure,
// compile, install) that returned nonzero.
type BuildError struct {
	Project string
	Phase   string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building %s: %s failed: %v", e.Project, e.Phase, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// LinkRepairWarning is never fatal. An unrepaired binary shows up again in
// verification with clearer diagnostics.
type LinkRepairWarning struct {
	Binary string
	Err    error
}

func (e *LinkRepairWarning) Error() string {
	return fmt.Sprintf("link repair of %s: %v", e.Binary, e.Err)
}

func (e *LinkRepairWarning) Unwrap() error { return e.Err }

// VerificationFailure records one unhealthy tool. Non-fatal; it only
// degrades the final health summary.
type VerificationFailure struct {
	Tool   string
	Reason string
}

func (e *VerificationFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}
