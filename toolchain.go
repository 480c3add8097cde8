package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// fileWriteSink adapts an *os.File to compiler.WriteSink. It never adds
// its own newline — the interpreter already writes Pascal-style WRITE
// output with none — so the file on disk is exactly the concatenation
// of every WRITE call's rendered value.
type fileWriteSink struct {
	f *os.File
}

func (s *fileWriteSink) Write(text string) error {
	_, err := s.f.WriteString(text)
	return err
}

func (s *fileWriteSink) Close() error {
	return s.f.Close()
}

// stdinInput adapts the process's standard input to compiler.InputProvider.
// A prompt is printed to stderr (so it doesn't pollute write_out.txt or
// get redirected away with stdout), and EOF surfaces as ok=false, which
// the interpreter turns into a runtime *interpreter.Error per spec.md §5's cancellation
// semantics.
type stdinInput struct {
	r *bufio.Reader
}

func (s *stdinInput) ReadLine(prompt string) (string, bool) {
	if prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
	}
	line, err := s.r.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, true
}

// fileAssemblySink writes the generated NASM document to a caller-named
// path on disk.
type fileAssemblySink struct{}

func (fileAssemblySink) WriteAssembly(path, source string) error {
	return os.WriteFile(path, []byte(source), 0644) // #nosec G306 -- generated assembly, not secret
}

// nasmToolchain assembles and links the generated NASM source with
// whatever NASM-compatible assembler and C-runtime-linking linker are on
// PATH, per spec.md §6's "opaque" toolchain contract. This is the one
// concrete implementation of compiler.Toolchain the CLI ships; a GUI
// frontend is free to supply its own.
type nasmToolchain struct {
	exePath string
}

func (t *nasmToolchain) Assemble(asmPath string) (string, error) {
	objPath := trimExt(asmPath) + ".o"

	// #nosec G204 -- asmPath/objPath are derived from caller-specified output paths, not untrusted input
	assemble := exec.Command("nasm", "-f", "win32", "-o", objPath, asmPath)
	assemble.Stderr = os.Stderr
	if err := assemble.Run(); err != nil {
		return "", fmt.Errorf("nasm failed: %w", err)
	}

	// #nosec G204 -- objPath/exePath are derived from caller-specified output paths, not untrusted input
	link := exec.Command("gcc", "-m32", "-o", t.exePath, objPath)
	link.Stderr = os.Stderr
	if err := link.Run(); err != nil {
		return "", fmt.Errorf("linker failed: %w", err)
	}

	return t.exePath, nil
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}
