package skystack

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the invocation and configuration summary
func printHelp() {
	colSuccess.Println("Usage: skystack")
	colSuccess.Println("Builds and installs the RTL-SDR decoding chain, then verifies it")
	fmt.Println()
	color.Info.Println("skystack takes no flags. Settings come from /etc/skystack.conf or the environment:")

	type keyInfo struct {
		Key  string
		Desc string
	}
	keys := []keyInfo{
		{"SKYSTACK_PREFIX", "Install prefix (default /usr/local)"},
		{"SKYSTACK_WORKDIR", "Disposable build workspace (default ~/skystack-build)"},
		{"SKYSTACK_LOG_DIR", "Where compressed build logs land (default ~/.cache/skystack)"},
		{"SKYSTACK_JOBS", "Override make parallelism (default: all cores)"},
		{"SKYSTACK_TIMEOUT", "Per-command timeout in Go duration syntax (default: none)"},
		{"SKYSTACK_BUNDLE", "Failure bundle compression, gz or zst (default gz)"},
		{"SKYSTACK_DEBUG", "Set to 1 to stream build output to the terminal"},
	}

	// --- Dynamic Padding Logic ---
	maxLen := 0
	for _, k := range keys {
		if len(k.Key) > maxLen {
			maxLen = len(k.Key)
		}
	}
	columnWidth := maxLen + 4

	for _, k := range keys {
		fmt.Print("  ")
		color.Bold.Print(k.Key)
		pad := columnWidth - len(k.Key)
		if pad < 1 {
			pad = 1
		}
		fmt.Print(strings.Repeat(" ", pad))
		color.Info.Println(k.Desc)
	}
	fmt.Println()
}

// Main is the CLI entrypoint for cmd/skystack.
func Main() {
	// 1. CONTEXT AND SIGNAL SETUP
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	// Register to receive SIGINT (Ctrl+C) and SIGTERM (kill command)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// 2. SIGNAL HANDLING GOROUTINE
	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					// --- CRITICAL PHASE: Block 1st signal, force exit on 2nd ---
					colArrow.Print("\n-> ")
					colError.Printf("Install step in progress. Press Ctrl+C AGAIN to force exit NOW.\n")

					// Wait for a second signal or a short delay
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.")
						os.Exit(130) // Common exit code for SIGINT
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				} else {
					// --- NON-CRITICAL PHASE: Graceful Cancellation ---
					colArrow.Print("\n-> ")
					color.Danger.Printf("Received %v. Cancelling gracefully\n", sig)
					cancel()

					// Give the running command a moment to die and flush its buffers
					time.Sleep(100 * time.Millisecond)

					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						color.Danger.Printf("Second interrupt received. Forcing immediate exit.")
						os.Exit(130)
					case <-time.After(2 * time.Second):
						colArrow.Print("\n-> ")
						color.Danger.Printf("Graceful shutdown timeout. Exiting.")
						os.Exit(130)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// 3. MAIN LOGIC
	if ctx.Err() != nil {
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version":
			colNote.Printf("skystack %s (%s) built %s\n", version, arch, buildDate)
			return
		default:
			printHelp()
			os.Exit(1)
		}
	}

	cfg, err := loadConfig(ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", ConfigFile, err)
	}
	initConfig(cfg)

	UserExec = &Executor{Context: ctx, Timeout: CmdTimeout}
	RootExec = &Executor{Context: ctx, ShouldRunAsRoot: true, Timeout: CmdTimeout}

	colArrow.Print("-> ")
	colSuccess.Printf("skystack %s: RTL-SDR decoder chain installer\n", version)

	os.Exit(NewPipeline(ctx).Run())
}
