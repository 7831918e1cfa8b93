package skystack

// PrerequisiteSpec describes one host requirement: a pure read-only
// detection command plus the remediation hint printed when it fails.
type PrerequisiteSpec struct {
	Name   string
	Probe  []string // detection command; must not mutate anything
	Expect string   // required substring of the probe output, when not empty
	Hint   string
}

// PackageSpec ties one Homebrew package to its already-installed predicate
// and its install action.
type PackageSpec struct {
	Name      string
	Installed []string // exits 0 when the package is already present
	Install   []string
}

// LineSpan is a contiguous 1-based inclusive range of lines.
type LineSpan struct {
	First, Last int
}

// PatchDescriptor declares a reversible comment-out patch. Spans are
// neutralized by prefixing each line with Marker; nothing is ever deleted,
// and restoring from Backup must give back the exact original bytes.
type PatchDescriptor struct {
	File   string // relative to the project checkout
	Backup string // relative sibling the original is copied to
	Marker string
	Spans  []LineSpan
}

// ProjectSpec declares one source project the pipeline builds end to end.
type ProjectSpec struct {
	Name     string
	URL      string
	Dir      string // subdirectory of the workspace holding the checkout
	Patch    *PatchDescriptor
	Options  []string // KEY=VALUE configure options, passed as -D flags
	Jobs     int      // compile parallelism; 0 means every host core
	Binaries []string // artifacts installed into <prefix>/bin
}

// ToolCheck declares how the verifier probes one installed binary: the
// arguments for a quick invocation and the exit codes that count as alive.
type ToolCheck struct {
	Name       string
	Args       []string
	AcceptExit []int
}

// LibraryReference is one load-command rewrite for an installed binary: the
// name the linker embedded and the absolute path it should resolve to.
type LibraryReference struct {
	Binary string
	Old    string
	New    string
}

// The host requirements, probed in order before anything else runs.
var prerequisites = []PrerequisiteSpec{
	{
		Name:   "macOS",
		Probe:  []string{"uname", "-s"},
		Expect: "Darwin",
		Hint:   "this installer drives Homebrew, cmake and install_name_tool and only runs on macOS",
	},
	{
		Name:  "brew",
		Probe: []string{"brew", "--version"},
		Hint:  `install Homebrew first: /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"`,
	},
	{
		Name:  "git",
		Probe: []string{"git", "--version"},
		Hint:  "install the Xcode command line tools with 'xcode-select --install'",
	},
	{
		Name:  "cmake",
		Probe: []string{"cmake", "--version"},
		Hint:  "install cmake with 'brew install cmake'",
	},
}

// Homebrew packages the builds link against. libusb backs librtlsdr,
// libsndfile backs acarsdec's audio input, pkg-config is needed by both
// configure runs.
var brewPackages = []PackageSpec{
	{
		Name:      "libusb",
		Installed: []string{"brew", "list", "--versions", "libusb"},
		Install:   []string{"brew", "install", "libusb"},
	},
	{
		Name:      "pkg-config",
		Installed: []string{"brew", "list", "--versions", "pkg-config"},
		Install:   []string{"brew", "install", "pkg-config"},
	},
	{
		Name:      "libsndfile",
		Installed: []string{"brew", "list", "--versions", "libsndfile"},
		Install:   []string{"brew", "install", "libsndfile"},
	},
}

// rtlsdrLib is the shared library both projects link against and the link
// repairer rewrites references to.
const rtlsdrLib = "librtlsdr.2.dylib"

// The two projects, built strictly in this order: acarsdec links against the
// librtlsdr that the first project installs into the prefix.
var projects = []ProjectSpec{
	{
		Name: "rtl-sdr",
		URL:  "https://gitea.osmocom.org/SDR/rtl-sdr.git",
		Dir:  "rtl-sdr",
		Options: []string{
			"INSTALL_UDEV_RULES=OFF", // udev only exists on Linux
			"DETACH_KERNEL_DRIVER=OFF",
		},
		Binaries: []string{"rtl_test", "rtl_fm", "rtl_tcp"},
	},
	{
		Name: "acarsdec",
		URL:  "https://github.com/TLeconte/acarsdec.git",
		Dir:  "acarsdec",
		Patch: &PatchDescriptor{
			File:   "CMakeLists.txt",
			Backup: "CMakeLists.txt.orig",
			Marker: "#",
			// The sdrplay probe aborts configuration when the proprietary
			// mirsdrapi library is missing, and no macOS build of it exists.
			Spans: []LineSpan{{First: 47, Last: 53}},
		},
		Options:  []string{"rtl=ON"},
		Binaries: []string{"acarsdec"},
	},
}

// expectedTools is the fixed set the verifier probes. An unknown flag makes
// the rtl tools print their usage text and exit 1, which is exactly the
// liveness signal wanted here; acarsdec prints usage when invoked bare.
var expectedTools = []ToolCheck{
	{Name: "rtl_test", Args: []string{"-h"}, AcceptExit: []int{0, 1}},
	{Name: "rtl_fm", Args: []string{"-h"}, AcceptExit: []int{0, 1}},
	{Name: "rtl_tcp", Args: []string{"-h"}, AcceptExit: []int{0, 1}},
	{Name: "acarsdec", AcceptExit: []int{0, 1}},
}
