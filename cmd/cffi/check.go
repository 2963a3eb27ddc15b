package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"cffi/internal/pipeline"
)

var errHasDiagnostics = errors.New("declarations have errors")

var checkCmd = &cobra.Command{
	Use:   "check [flags] file.h...",
	Short: "Parse and lay out C declaration files",
	Long: `Check parses every file in parallel, computes the layout of each declared type and,
with --lib, verifies that every declared function resolves in one of the libraries`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	checkCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	checkCmd.Flags().StringSlice("lib", nil, "library to resolve functions against (repeatable)")
	checkCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	libs, err := cmd.Flags().GetStringSlice("lib")
	if err != nil {
		return fmt.Errorf("failed to get lib flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	req := newCheckRequest(cmd, args, libs, jobs)

	var res pipeline.Result
	if format == "pretty" && !quiet(cmd) && shouldUseTUI(mode, len(req.Files)) {
		res, err = runCheckWithUI(cmd.Context(), "cffi check", nil, req)
	} else {
		res, err = pipeline.Check(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if err := writeDiagnostics(cmd, os.Stdout, res.Bag(), res.FileSet, format); err != nil {
		return err
	}
	if format == "pretty" && !quiet(cmd) {
		failed := 0
		for _, f := range res.Files {
			if f.Failed() {
				failed++
			}
		}
		fmt.Fprintf(os.Stderr, "checked %d file(s), %d with errors in %s\n",
			len(res.Files), failed, res.Timings.Sum(pipeline.StageParse, pipeline.StageLayout, pipeline.StageResolve))
	}
	if res.HasErrors() {
		return errHasDiagnostics
	}
	return nil
}

// newCheckRequest puts the manifest libraries ahead of the --lib ones.
func newCheckRequest(cmd *cobra.Command, files, libs []string, jobs int) pipeline.Request {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	wd, _ := os.Getwd()
	if activeConfig != nil {
		libs = append(slices.Clone(activeConfig.Config.Env.Libraries), libs...)
	}
	return pipeline.Request{
		Files:          files,
		BaseDir:        wd,
		Jobs:           jobs,
		MaxDiagnostics: maxDiagnostics,
		Libraries:      libs,
		Tracer:         tracerOf(cmd),
	}
}
