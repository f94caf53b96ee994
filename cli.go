package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIOpts mirrors the startup API described in spec §6: a small set of
// flags a command-line wrapper feeds into the core. Parsing itself is
// externalized (non-core); this struct is its output.
type CLIOpts struct {
	verbose          bool
	configPath       string
	backendName      string
	pluginDir        string
	printDiagnostics bool
}

func parseCLIOpts() CLIOpts {
	var opt CLIOpts
	flag.BoolVar(&opt.verbose, "v", false, "verbose logging to stderr")
	flag.StringVar(&opt.configPath, "config", "", "path to config file (optional)")
	flag.StringVar(&opt.backendName, "backend", "", "name of the compiled-in rendering backend to use (default: render)")
	flag.StringVar(&opt.pluginDir, "plugin-dir", "", "directory to search for effect plugins (optional)")
	flag.BoolVar(&opt.printDiagnostics, "print-diagnostics", false, "dump the window registry once and exit")
	flag.Parse()
	return opt
}

// exitCode maps the startup failures of §7 onto the process exit codes
// described in §6.
const (
	exitOK = 0
	exitCannotConnect = 1
	exitSelectionConflict = 2
	exitExtensionMissing = 3
	exitBackendLoadFailure = 4
)

func die(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
