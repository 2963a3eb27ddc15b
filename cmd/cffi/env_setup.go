package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cffi/internal/ffi"
)

// newEnv creates an Env with the command tracer and applies cffi.toml:
// headers are cdef'd in order, libraries are loaded global.
func newEnv(cmd *cobra.Command) (*ffi.Env, error) {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	env := ffi.New(ffi.WithTracer(tracerOf(cmd)), ffi.WithMaxDiagnostics(maxDiagnostics))
	if activeConfig == nil {
		return env, nil
	}
	for _, h := range activeConfig.HeaderPaths() {
		if err := env.CdefFile(h); err != nil {
			env.Close()
			return nil, fmt.Errorf("%s: %w", activeConfig.Path, err)
		}
	}
	for _, name := range activeConfig.Config.Env.Libraries {
		if _, err := env.Load(name, true); err != nil {
			env.Close()
			return nil, fmt.Errorf("%s: library %q: %w", activeConfig.Path, name, err)
		}
	}
	return env, nil
}
