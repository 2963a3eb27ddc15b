package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cffi/internal/diag"
	"cffi/internal/diagfmt"
	"cffi/internal/lexer"
	"cffi/internal/source"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.h",
	Short: "Tokenize a C declaration file",
	Long:  `Tokenize breaks down a C declaration file into the tokens the cdef parser sees`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	// Получаем флаги
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}

	fs := source.NewFileSet()
	if wd, err := os.Getwd(); err == nil {
		fs.SetBaseDir(wd)
	}
	id, err := fs.Load(filePath)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}
	bag := diag.NewBag(0)
	lx := lexer.New(fs.Get(id), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	tokens := lx.All()

	// Выводим диагностику в stderr, если есть
	if bag.HasErrors() || bag.HasWarnings() {
		if err := writeDiagnostics(cmd, os.Stderr, bag, fs, "pretty"); err != nil {
			return err
		}
	}

	// Выводим токены в выбранном формате
	if format == "json" {
		return diagfmt.FormatTokensJSON(os.Stdout, tokens, fs)
	}
	return diagfmt.FormatTokensPretty(os.Stdout, tokens, fs)
}
