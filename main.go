package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookbusy1344/pascal-compiler/compiler"
	"github.com/lookbusy1344/pascal-compiler/config"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		verbose     = flag.Bool("verbose", false, "Log every pipeline phase to stderr")
		configPath  = flag.String("config", "", "Path to a TOML config file (default: platform config dir)")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("pascal-compiler %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp || flag.NArg() < 2 || flag.NArg() > 3 {
		printUsage()
		if *showHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	srcPath := flag.Arg(0)
	writeOutPath := flag.Arg(1)
	exeOut := ""
	if flag.NArg() == 3 {
		exeOut = flag.Arg(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Diagnostics.Verbose = true
	}

	srcBytes, err := os.ReadFile(srcPath) // #nosec G304 -- user-specified source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading source file: %v\n", err)
		os.Exit(1)
	}

	d := compiler.New(cfg, newDiagnosticLogger(cfg.Diagnostics.Verbose))

	exitCode := 0
	if rc := runInterpreter(d, string(srcBytes), writeOutPath); rc != 0 {
		exitCode = rc
	}

	if exeOut != "" {
		if rc := runCodegen(d, string(srcBytes), exeOut); rc != 0 {
			exitCode = rc
		}
	}

	os.Exit(exitCode)
}

func runInterpreter(d *compiler.Driver, src, writeOutPath string) int {
	out, err := os.Create(writeOutPath) // #nosec G304 -- user-specified output path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating write-output file: %v\n", err)
		return 1
	}
	sink := &fileWriteSink{f: out}
	input := &stdinInput{r: bufio.NewReader(os.Stdin)}

	_, err = d.Run(src, input, sink, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Interpreter error: %v\n", err)
		return 1
	}
	return 0
}

func runCodegen(d *compiler.Driver, src, exeOut string) int {
	asmPath := strings.TrimSuffix(exeOut, filepath.Ext(exeOut)) + ".asm"
	sink := &fileAssemblySink{}
	toolchain := &nasmToolchain{exePath: exeOut}

	_, err := d.Compile(src, asmPath, sink, toolchain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Code generation error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// newDiagnosticLogger writes phase-transition lines to stderr when
// verbose, and discards them otherwise — the same discard-by-default
// shape the teacher's gui/app.go uses for its own debug logger.
func newDiagnosticLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.Ltime)
	}
	return log.New(io.Discard, "", 0)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `pascal-compiler %s

Usage: pascal-compiler [options] <src.pas> <write_out.txt> [<exe_out>]

With two positional arguments, the program is interpreted directly and its
WRITE output is saved to write_out.txt. With a third argument, the program
is additionally compiled to x86-32 NASM assembly and handed to an external
assembler/linker to produce exe_out; both paths run independently and both
outcomes are reported.

Options:
  -help         Show this help message
  -version      Show version information
  -verbose      Log every pipeline phase to stderr
  -config FILE  Path to a TOML config file (default: platform config dir)

Examples:
  pascal-compiler hello.pas hello.out.txt
  pascal-compiler hello.pas hello.out.txt hello.exe
  pascal-compiler -verbose hello.pas hello.out.txt
`, Version)
}
