// gtest compiles every test program with gonec, runs the result and compares
// it against the expectations stored next to the source.
//
// For tests/foo.gone the expectations are looked up in this order:
//
//	tests/.foo.gone.json  golden file written by -generate-golden
//	tests/foo.out         exact expected stdout of the program
//	tests/foo.err         compilation must fail; every line must appear in stderr
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/paivett/gone/pkg/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type Golden struct {
	Hash    string     `json:"hash"`
	Compile Execution  `json:"compile"`
	Run     *Execution `json:"run,omitempty"`
}

type FileTestResult struct {
	File    string  `json:"file"`
	Status  string  `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string  `json:"message,omitempty"`
	Diff    string  `json:"diff,omitempty"`
	Target  *Golden `json:"target,omitempty"`
}

type options struct {
	compiler       string
	compilerArgs   []string
	testFiles      []string
	skipFiles      []string
	generateGolden string
	outputJSON     string
	jsonDir        string
	timeout        string
	jobs           string
	verbose        bool
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	app := cli.NewApp("gtest")
	app.Synopsis = "[options] [test files...]"
	app.Description = "Golden-output test runner for gonec."
	app.Authors = []string{"paivett"}
	app.Repository = "<https://github.com/paivett/gone>"
	app.Since = 2025

	var opts options
	fs := app.FlagSet
	fs.String(&opts.compiler, "compiler", "c", "./gonec", "Path to the compiler under test.", "path")
	fs.List(&opts.compilerArgs, "compiler-arg", "a", []string{}, "Pass an argument to the compiler.", "arg")
	fs.List(&opts.skipFiles, "skip", "s", []string{}, "Skip a test file.", "file")
	fs.String(&opts.generateGolden, "generate-golden", "g", "", "Write the golden .json file for a source file and exit.", "file")
	fs.String(&opts.outputJSON, "output", "o", ".test_results.json", "Write the JSON report to <file>.", "file")
	fs.String(&opts.jsonDir, "dir", "", "", "Directory holding golden files (defaults to the source directory).", "dir")
	fs.String(&opts.timeout, "timeout", "", "5s", "Timeout for each command.", "duration")
	fs.String(&opts.jobs, "jobs", "j", "4", "Number of parallel test jobs.", "n")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Log every command.")

	app.Action = func(args []string) error {
		if opts.verbose {
			tlog.SetVerbosity("gtest")
		}

		opts.testFiles = args
		if len(opts.testFiles) == 0 {
			opts.testFiles = []string{"tests/*.gone"}
		}

		timeout, err := time.ParseDuration(opts.timeout)
		if err != nil {
			return errors.Wrap(err, "timeout")
		}
		var jobs int
		if _, err := fmt.Sscan(opts.jobs, &jobs); err != nil || jobs < 1 {
			return errors.New("bad job count '%s'", opts.jobs)
		}

		tempDir, err := os.MkdirTemp("", "gtest-*")
		if err != nil {
			return errors.Wrap(err, "create temp directory")
		}
		defer os.RemoveAll(tempDir)
		setupInterruptHandler(tempDir)

		r := &runner{opts: opts, timeout: timeout, tempDir: tempDir}

		if opts.generateGolden != "" {
			return r.generateGolden(opts.generateGolden)
		}

		results, err := r.runSuite(jobs)
		if err != nil {
			return err
		}
		printSummary(results)
		if err := writeJSONReport(opts.outputJSON, results); err != nil {
			return err
		}
		for _, res := range results {
			if res.Status == "FAIL" || res.Status == "ERROR" {
				return errors.New("some tests failed")
			}
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s[ERROR]%s %v\n", cRed, cNone, err)
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

type runner struct {
	opts    options
	timeout time.Duration
	tempDir string
}

func (r *runner) goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if r.opts.jsonDir != "" {
		return filepath.Join(r.opts.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func (r *runner) generateGolden(sourceFile string) error {
	hash, err := hashFile(sourceFile)
	if err != nil {
		return errors.Wrap(err, "hash %s", sourceFile)
	}
	golden := r.compileAndRun(sourceFile, hash)

	data, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal golden data")
	}

	path := r.goldenPath(sourceFile)
	if r.opts.jsonDir != "" {
		if err := os.MkdirAll(r.opts.jsonDir, 0o755); err != nil {
			return errors.Wrap(err, "create %s", r.opts.jsonDir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write %s", path)
	}
	fmt.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func expandGlobPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrap(err, "pattern %s", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func (r *runner) runSuite(jobs int) ([]*FileTestResult, error) {
	files, err := expandGlobPatterns(r.opts.testFiles)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool)
	for _, f := range r.opts.skipFiles {
		skip[f] = true
	}

	tasks := make(chan string, len(files))
	results := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- r.testFile(file)
			}
		}()
	}

	for _, file := range files {
		if skip[file] {
			results <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(results)

	var all []*FileTestResult
	for res := range results {
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all, nil
}

func (r *runner) testFile(file string) *FileTestResult {
	hash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash source file: %v", err)}
	}

	base := strings.TrimSuffix(file, filepath.Ext(file))

	if data, err := os.ReadFile(r.goldenPath(file)); err == nil {
		var golden Golden
		if err := json.Unmarshal(data, &golden); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
		}
		if golden.Hash != hash {
			return &FileTestResult{File: file, Status: "ERROR", Message: "Golden file is stale, regenerate it with -generate-golden"}
		}
		return compareGolden(file, &golden, r.compileAndRun(file, hash))
	}

	if want, err := os.ReadFile(base + ".out"); err == nil {
		got := r.compileAndRun(file, hash)
		return compareStdout(file, string(want), got)
	}

	if want, err := os.ReadFile(base + ".err"); err == nil {
		got := r.compileAndRun(file, hash)
		return compareErrors(file, string(want), got)
	}

	return &FileTestResult{File: file, Status: "SKIP", Message: "No golden, .out or .err file"}
}

// compileAndRun compiles file into the temp directory and, if that
// succeeded, runs the binary once.
func (r *runner) compileAndRun(file, hash string) *Golden {
	binary := filepath.Join(r.tempDir, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))+"-"+hash)

	args := append([]string{"-o", binary}, r.opts.compilerArgs...)
	args = append(args, file)

	res := &Golden{Hash: hash}
	res.Compile = r.execute(r.opts.compiler, args...)
	if res.Compile.ExitCode != 0 {
		return res
	}

	run := r.execute(binary)
	res.Run = &run
	return res
}

func (r *runner) execute(command string, args ...string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	tlog.V("gtest").Printw("exec", "cmd", command, "args", args)

	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.ExitCode = -1
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -2
			res.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return res
}

func compareGolden(file string, want, got *Golden) *FileTestResult {
	var diffs strings.Builder

	if want.Compile.ExitCode != got.Compile.ExitCode {
		fmt.Fprintf(&diffs, "Compile exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.Compile.ExitCode, got.Compile.ExitCode)
	}
	if d := cmp.Diff(want.Compile.Stderr, got.Compile.Stderr); d != "" {
		fmt.Fprintf(&diffs, "Compile STDERR mismatch:\n%s", d)
	}
	if (want.Run == nil) != (got.Run == nil) {
		fmt.Fprintf(&diffs, "Run presence mismatch: golden ran=%v, target ran=%v\n", want.Run != nil, got.Run != nil)
	} else if want.Run != nil {
		if want.Run.ExitCode != got.Run.ExitCode {
			fmt.Fprintf(&diffs, "Run exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.Run.ExitCode, got.Run.ExitCode)
		}
		if d := cmp.Diff(want.Run.Stdout, got.Run.Stdout); d != "" {
			fmt.Fprintf(&diffs, "Run STDOUT mismatch:\n%s", d)
		}
	}

	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output differs from golden file", Diff: diffs.String(), Target: got}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Matches golden file", Target: got}
}

func compareStdout(file, want string, got *Golden) *FileTestResult {
	if got.Run == nil {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compilation failed", Diff: got.Compile.Stderr, Target: got}
	}
	if got.Run.ExitCode != 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: fmt.Sprintf("Program exited with %d", got.Run.ExitCode), Target: got}
	}
	if d := cmp.Diff(want, got.Run.Stdout); d != "" {
		return &FileTestResult{File: file, Status: "FAIL", Message: "STDOUT mismatch", Diff: d, Target: got}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches", Target: got}
}

func compareErrors(file, want string, got *Golden) *FileTestResult {
	if got.Compile.ExitCode == 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compilation succeeded, errors expected", Target: got}
	}
	var missing []string
	for _, line := range strings.Split(strings.TrimSpace(want), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.Contains(got.Compile.Stderr, line) {
			missing = append(missing, line)
		}
	}
	if len(missing) > 0 {
		return &FileTestResult{
			File:    file,
			Status:  "FAIL",
			Message: "Expected diagnostics missing",
			Diff:    "missing:\n  " + strings.Join(missing, "\n  ") + "\nstderr:\n" + got.Compile.Stderr,
			Target:  got,
		}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Diagnostics match", Target: got}
}

func printSummary(results []*FileTestResult) {
	counts := map[string]int{}
	for _, res := range results {
		counts[res.Status]++

		color := cGreen
		switch res.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		}
		fmt.Printf("%s[%s]%s %s: %s\n", color, res.Status, cNone, res.File, res.Message)
		if res.Diff != "" {
			fmt.Printf("%s%s%s\n", cCyan, res.Diff, cNone)
		}
	}
	fmt.Printf("\n%s%d passed, %d failed, %d errors, %d skipped%s\n", cBold, counts["PASS"], counts["FAIL"], counts["ERROR"], counts["SKIP"], cNone)
}

func writeJSONReport(path string, results []*FileTestResult) error {
	report := make(map[string]*FileTestResult, len(results))
	for _, res := range results {
		report[res.File] = res
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return os.WriteFile(path, data, 0o644)
}
