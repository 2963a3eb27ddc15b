package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"cffi/internal/ffi"
	"cffi/internal/native"
	"cffi/internal/version"
)

const (
	promptMain = "cffi> "
	promptCont = "...   "
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session: declare, allocate and call",
	Args:  cobra.NoArgs,
	RunE:  runRepl,
}

func init() {
	replCmd.Flags().String("history", "", "history file (default ~/.cffi_history)")
}

const replHelp = `commands:
  cdef <declarations>          declare types and functions (may span lines)
  load <lib> [global]          open a shared library
  call <sym> [args...]         call a declared function
  new <type> [init...]         allocate a zeroed value
  string $N [len]              read a C string
  sizeof|alignof|typeof <type>
  offsetof <type> <field>
  errno [n]                    show (and set) errno
  help, quit
results are stored as $1, $2, ... and can be passed as arguments`

// session is the state behind the prompt; exec runs one command.
type session struct {
	env  *ffi.Env
	out  io.Writer
	libs []*ffi.Lib
	vars []ffi.Value
	ok   *color.Color
	bad  *color.Color
}

func newSession(env *ffi.Env, out io.Writer, colored bool) *session {
	s := &session{
		env: env,
		out: out,
		ok:  color.New(color.FgCyan),
		bad: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{s.ok, s.bad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

var errQuit = errors.New("quit")

func (s *session) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	verb, rest := line, ""
	if i := strings.IndexAny(line, " \t\n"); i >= 0 {
		verb, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	switch verb {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(s.out, replHelp)
		return nil
	case "cdef":
		return s.env.Cdef(rest)
	case "load":
		return s.load(rest)
	case "call":
		return s.call(rest)
	case "new":
		return s.newValue(rest)
	case "string":
		return s.str(rest)
	case "sizeof", "alignof":
		var n int
		var err error
		if verb == "sizeof" {
			n, err = s.env.SizeOf(ffi.Str(rest))
		} else {
			n, err = s.env.AlignOf(ffi.Str(rest))
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, n)
		return nil
	case "typeof":
		t, err := s.env.TypeOf(ffi.Str(rest))
		if err != nil {
			return err
		}
		s.print(ffi.FromType(t))
		return nil
	case "offsetof":
		i := strings.LastIndexByte(rest, ' ')
		if i < 0 {
			return errors.New("usage: offsetof <type> <field>")
		}
		off, ok, err := s.env.OffsetOf(ffi.Str(strings.TrimSpace(rest[:i])), rest[i+1:])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "nil")
			return nil
		}
		fmt.Fprintln(s.out, off)
		return nil
	case "errno":
		if rest == "" {
			fmt.Fprintln(s.out, s.env.Errno())
			return nil
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("errno: %w", err)
		}
		fmt.Fprintln(s.out, s.env.SetErrno(n))
		return nil
	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
}

func (s *session) load(rest string) error {
	name, mode, _ := strings.Cut(rest, " ")
	if name == "" {
		return errors.New("usage: load <lib> [global]")
	}
	lib, err := s.env.Load(name, strings.TrimSpace(mode) == "global")
	if err != nil {
		return err
	}
	s.libs = append(s.libs, lib)
	fmt.Fprintln(s.out, s.ok.Sprint(lib.String()))
	return nil
}

// lookup ищет символ сначала в загруженных библиотеках, потом в программе.
func (s *session) lookup(sym string) *ffi.Lib {
	for i := len(s.libs) - 1; i >= 0; i-- {
		if s.libs[i].Has(sym) {
			return s.libs[i]
		}
	}
	return s.env.C
}

func (s *session) call(rest string) error {
	words, err := splitWords(rest)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return errors.New("usage: call <sym> [args...]")
	}
	args, err := parseLiterals(words[1:], s.vars)
	if err != nil {
		return err
	}
	fn, err := s.lookup(words[0]).Func(words[0])
	if err != nil {
		return err
	}
	res, err := fn.Call(args...)
	if err != nil {
		return err
	}
	if !res.IsNil() {
		s.store(res)
	}
	return nil
}

func (s *session) newValue(rest string) error {
	words, err := splitWords(rest)
	if err != nil {
		return err
	}
	// тип: всё до первого литерала: "unsigned long[?] 4"
	i := 0
	for i < len(words) && (i == 0 || !isLiteral(words[i])) {
		i++
	}
	if i == 0 {
		return errors.New("usage: new <type> [init...]")
	}
	args, err := parseLiterals(words[i:], s.vars)
	if err != nil {
		return err
	}
	cd, err := s.env.New(ffi.Str(strings.Join(words[:i], " ")), args...)
	if err != nil {
		return err
	}
	s.store(ffi.FromCData(cd))
	return nil
}

func (s *session) str(rest string) error {
	words, err := splitWords(rest)
	if err != nil {
		return err
	}
	vals, err := parseLiterals(words, s.vars)
	if err != nil {
		return err
	}
	if len(vals) == 0 || vals[0].Kind != ffi.KindCData {
		return errors.New("usage: string $N [len]")
	}
	var str string
	if len(vals) > 1 {
		n, ok := vals[1].Integral()
		if !ok {
			return errors.New("string: length must be an integer")
		}
		str, err = s.env.ToStringN(vals[0].CData(), int(n))
	} else {
		str, err = s.env.ToString(vals[0].CData())
	}
	if err != nil {
		return err
	}
	s.print(ffi.Str(str))
	return nil
}

func (s *session) store(v ffi.Value) {
	s.vars = append(s.vars, v)
	fmt.Fprintf(s.out, "$%d = %s\n", len(s.vars), s.ok.Sprint(renderResult(s.env, v)))
}

func (s *session) print(v ffi.Value) {
	fmt.Fprintln(s.out, s.ok.Sprint(v.String()))
}

func (s *session) report(err error) {
	var fe *ffi.Error
	if errors.As(err, &fe) {
		fmt.Fprintf(s.out, "%s %s\n", s.bad.Sprintf("%s error:", fe.Kind), fe.Msg)
		return
	}
	fmt.Fprintf(s.out, "%s %v\n", s.bad.Sprint("error:"), err)
}

// complete: открытые скобки в cdef означают продолжение на следующей строке.
func complete(src string) bool {
	if !strings.HasPrefix(strings.TrimSpace(src), "cdef") {
		return true
	}
	return strings.Count(src, "{") <= strings.Count(src, "}")
}

func runRepl(cmd *cobra.Command, args []string) error {
	histPath, err := cmd.Flags().GetString("history")
	if err != nil {
		return fmt.Errorf("failed to get history flag: %w", err)
	}
	if histPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			histPath = filepath.Join(home, ".cffi_history")
		}
	}

	env, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	out := cmd.OutOrStdout()
	if !quiet(cmd) {
		fmt.Fprintf(out, "%s\ntype help for commands\n", version.String(nativeStatus(native.Available)))
	}
	s := newSession(env, out, useColor(cmd, os.Stdout))

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	for {
		line, ok := readCommand(ln)
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(line, "\n", " "))
		if err := s.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.report(err)
		}
	}
}

func readCommand(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C сбрасывает недописанную команду
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if complete(b.String()) {
			return b.String(), true
		}
	}
}
