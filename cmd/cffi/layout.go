package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cffi/internal/cache"
	"cffi/internal/diagfmt"
	"cffi/internal/layout"
	"cffi/internal/pipeline"
	"cffi/internal/source"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [flags] file.h...",
	Short: "Report sizes, alignments and field offsets of declared types",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLayout,
}

func init() {
	layoutCmd.Flags().StringSlice("type", nil, "only report these declarations (e.g. \"struct point\", point_t)")
	layoutCmd.Flags().String("format", "pretty", "output format (pretty|json|msgpack)")
	layoutCmd.Flags().String("out", "", "write the report to a file instead of stdout")
	layoutCmd.Flags().Bool("cache", false, "reuse reports of unchanged headers from the disk cache")
}

func runLayout(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	only, err := cmd.Flags().GetStringSlice("type")
	if err != nil {
		return fmt.Errorf("failed to get type flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "pretty", "json", "msgpack":
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}

	var dc *cache.DiskCache
	if useCache {
		if dc, err = cache.Open("cffi"); err != nil {
			return fmt.Errorf("layout cache: %w", err)
		}
	}
	target := layout.Host().Triple

	reports := make([]diagfmt.LayoutReport, 0, len(args))
	misses := make(map[string]cache.Key)
	var toCheck []string
	for _, path := range args {
		if dc == nil {
			toCheck = append(toCheck, path)
			continue
		}
		key, err := headerKey(path, target)
		if err != nil {
			// ошибку загрузки покажет check
			toCheck = append(toCheck, path)
			continue
		}
		var p cache.Payload
		if ok, err := dc.Get(key, &p); err == nil && ok {
			p.Report.File = displayPath(path)
			reports = append(reports, p.Report)
			continue
		}
		toCheck = append(toCheck, path)
		misses[displayPath(path)] = key
	}

	if len(toCheck) > 0 {
		res, err := pipeline.Check(cmd.Context(), newCheckRequest(cmd, toCheck, nil, 0))
		if err != nil {
			return err
		}
		if res.HasErrors() {
			if err := writeDiagnostics(cmd, os.Stderr, res.Bag(), res.FileSet, "pretty"); err != nil {
				return err
			}
			return errHasDiagnostics
		}
		for _, f := range res.Files {
			rep := diagfmt.BuildLayoutReport(f.Path, f.Types, f.Layout, f.Decls, nil)
			if key, ok := misses[f.Path]; ok {
				if err := dc.Put(key, &cache.Payload{Target: target, Report: rep}); err != nil && !quiet(cmd) {
					fmt.Fprintf(os.Stderr, "layout cache: %v\n", err)
				}
			}
			reports = append(reports, rep)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool { return reports[i].File < reports[j].File })
	for i := range reports {
		reports[i] = reports[i].Filter(only)
	}

	var w io.Writer = os.Stdout
	color := useColor(cmd, os.Stdout)
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w, color = f, false
	}
	switch format {
	case "json":
		return diagfmt.FormatLayoutsJSON(w, reports)
	case "msgpack":
		return diagfmt.FormatLayoutsMsgpack(w, reports)
	default:
		return diagfmt.FormatLayoutsPretty(w, reports, color)
	}
}

func headerKey(path, target string) (cache.Key, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return cache.Key{}, err
	}
	return cache.KeyFor(fs.Get(id).Hash, target), nil
}

// displayPath повторяет то, как check показывает пути: относительно
// рабочего каталога, если файл внутри него.
func displayPath(path string) string {
	path = filepath.Clean(path)
	wd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	if rel, err := filepath.Rel(wd, abs); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(abs)
}
