package skystack

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gookit/color"
)

// GLOBAL STATE
// We use a value of 1 for critical and 0 for non-critical/default.
var isCriticalAtomic atomic.Int32

// Global variables
var (
	Prefix       string
	WorkDir      string
	LogDir       string
	JobsOverride int
	CmdTimeout   time.Duration
	BundleFormat string
	WantDebug    string
	Debug        bool
	ConfigFile   = "/etc/skystack.conf"
	version      = "dev" //default version; overridden at build time
	arch         = runtime.GOARCH
	buildDate    = "unknown" // overridden at build time
	// Global executors (declared, to be assigned in Main)
	UserExec *Executor
	RootExec *Executor
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
