package skystack

import (
	"fmt"
	"os"
)

// renderReport prints the end-of-run summary: every stage result in
// pipeline order, the per-tool health table and the final verdict. The
// same inputs always render the same summary.
func (p *Pipeline) renderReport() {
	rep := p.Report

	fmt.Println()
	colArrow.Print("-> ")
	colSuccess.Println("Installation summary:")
	for _, res := range rep.Results {
		fmt.Printf("  - %-22s ", res.Stage)
		switch res.Outcome {
		case OutcomeSuccess:
			colSuccess.Print("ok     ")
		case OutcomeSkipped:
			cPrintf(colNote, "skipped")
		default:
			colError.Print("failed ")
		}
		if res.Detail != "" {
			fmt.Printf("  %s", res.Detail)
		}
		fmt.Println()
	}

	if len(rep.Tools) > 0 {
		fmt.Println()
		colArrow.Print("-> ")
		colSuccess.Println("Tool health:")
		for _, t := range rep.Tools {
			fmt.Printf("  - %-12s ", t.Name)
			if t.Healthy() {
				colSuccess.Println("ok")
			} else {
				colWarn.Println(t.Failure.Reason)
			}
		}
	}

	fmt.Println()
	colArrow.Print("-> ")
	if rep.AllHealthy {
		colSuccess.Println("All tools healthy.")
	} else {
		colWarn.Println("Not all tools are healthy. See the summary above.")
	}
}

// printUsageGuide prints the static getting-started text: one example
// invocation per installed tool, then the supported hardware classes.
func printUsageGuide() {
	examples := []struct {
		Cmd, Desc string
	}{
		{"rtl_test -t", "probe the dongle and report its tuner"},
		{"rtl_fm -f 162.550M -M fm -s 24k -", "narrowband FM demodulator to stdout"},
		{"rtl_tcp -a 0.0.0.0 -p 1234", "serve raw I/Q samples over the network"},
		{"acarsdec -r 0 131.550 131.725", "decode ACARS on two VHF channels"},
	}

	fmt.Println()
	colArrow.Print("-> ")
	colSuccess.Println("Getting started:")
	for _, ex := range examples {
		fmt.Printf("  %-35s %s\n", ex.Cmd, ex.Desc)
	}
	fmt.Println()
	cPrintln(colInfo, "Supported hardware: RTL2832U USB dongles with R820T/T2, R828D, E4000 or FC0013 tuners.")
}

// cleanupWorkspace removes the disposable build tree. Installed artifacts,
// compressed logs and failure bundles live elsewhere and survive this.
func (p *Pipeline) cleanupWorkspace() {
	if isUnsafeRemovalPath(WorkDir) {
		colArrow.Print("-> ")
		colWarn.Printf("Refusing to remove workspace %q, clean it up yourself\n", WorkDir)
		return
	}
	if _, err := os.Stat(WorkDir); err != nil {
		return
	}
	if err := p.RemoveAll(WorkDir); err != nil {
		colArrow.Print("-> ")
		colWarn.Printf("Could not remove workspace %s: %v\n", WorkDir, err)
		return
	}
	colArrow.Print("-> ")
	colSuccess.Printf("Removed workspace %s\n", WorkDir)
}
