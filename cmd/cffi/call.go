package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cffi/internal/ffi"
)

var callCmd = &cobra.Command{
	Use:   "call [flags] SYMBOL [ARG...]",
	Short: "Call a declared C function",
	Long: `Call declares the function with --decl or --cdef, resolves it in --lib (or the program
itself) and prints the result. Arguments are literals: nil, true, false, integers (hex with 0x),
floats and double-quoted strings`,
	Example: `  cffi call --cdef 'int abs(int);' abs -- -5
  cffi call --lib m --cdef 'double pow(double, double);' pow 2 0.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().String("lib", "", "library to resolve the symbol in (default: the program)")
	callCmd.Flags().StringSlice("decl", nil, "header file with the declarations (repeatable)")
	callCmd.Flags().String("cdef", "", "declarations given inline")
}

func runCall(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	libName, err := cmd.Flags().GetString("lib")
	if err != nil {
		return fmt.Errorf("failed to get lib flag: %w", err)
	}
	decls, err := cmd.Flags().GetStringSlice("decl")
	if err != nil {
		return fmt.Errorf("failed to get decl flag: %w", err)
	}
	cdef, err := cmd.Flags().GetString("cdef")
	if err != nil {
		return fmt.Errorf("failed to get cdef flag: %w", err)
	}

	callArgs, err := parseLiterals(args[1:], nil)
	if err != nil {
		return err
	}

	env, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	for _, path := range decls {
		if err := env.CdefFile(path); err != nil {
			return err
		}
	}
	if cdef != "" {
		if err := env.Cdef(cdef); err != nil {
			return err
		}
	}

	lib := env.C
	if libName != "" {
		if lib, err = env.Load(libName, false); err != nil {
			return err
		}
	}
	fn, err := lib.Func(args[0])
	if err != nil {
		return err
	}
	res, err := fn.Call(callArgs...)
	if err != nil {
		return err
	}
	if !res.IsNil() {
		fmt.Fprintln(cmd.OutOrStdout(), renderResult(env, res))
	}
	return nil
}

// renderResult prints char pointers as the string they point to.
func renderResult(env *ffi.Env, v ffi.Value) string {
	cd := v.CData()
	if v.Kind != ffi.KindCData || cd == nil || cd.Addr() == 0 {
		return v.String()
	}
	if t := cd.Type().String(); t == "char*" || t == "const char*" {
		if s, err := env.ToString(cd); err == nil {
			return fmt.Sprintf("%s %q", v.String(), s)
		}
	}
	return v.String()
}
