// Copyright 2024 The sob Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command sob builds and inspects set files.
//
//	sob build -o out.sob [-z none|lz4|zstd] [input]
//	sob dump file.sob
//	sob stats file.sob
//	sob gen -n 1000000 -max 1000000000
//
// build reads whitespace-separated integers, or inclusive lo-hi ranges,
// from input (stdin by default).
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/bpowers/sob"
)

const usage = `usage: sob [-v] <command> [args]

commands:
  build -o out.sob [-z compression] [input]   build a set file from integers
  dump file.sob                               print members, one per line
  stats file.sob                              print capacity, size and max
  gen [-n count] [-max bound]                 print random integers
`

func main() {
	flags := flag.NewFlagSet("sob", flag.ExitOnError)
	verbose := flags.Bool("v", false, "log debug output to stderr")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "build":
		err = build(args[1:], logger)
	case "dump":
		err = dump(args[1:], logger)
	case "stats":
		err = stats(args[1:], logger)
	case "gen":
		err = gen(args[1:])
	default:
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("sob "+args[0]+" failed", "err", err)
		os.Exit(1)
	}
}

func build(args []string, logger *slog.Logger) error {
	flags := flag.NewFlagSet("build", flag.ExitOnError)
	out := flags.String("o", "", "path of the set file to write")
	compression := flags.String("z", "none", "payload compression: none, lz4 or zstd")
	_ = flags.Parse(args)

	if *out == "" {
		return errors.New("-o is required")
	}
	c, err := sob.ParseCompression(*compression)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if flags.NArg() > 0 {
		f, err := os.Open(flags.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	s := sob.New()
	if err := readMembers(in, s); err != nil {
		return err
	}
	logger.Debug("read members", "len", s.Len(), "capacity", s.Capacity())

	return s.WriteFile(*out, sob.WithCompression(c), sob.WithLogger(logger))
}

func readMembers(r io.Reader, s *sob.Sob) error {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		token := scanner.Bytes()
		lo, hi, isRange := bytes.Cut(token, []byte{'-'})
		if !isRange {
			hi = lo
		}
		first, err := strconv.ParseUint(string(lo), 10, strconv.IntSize)
		if err != nil {
			return fmt.Errorf("bad member %q: %w", token, err)
		}
		last, err := strconv.ParseUint(string(hi), 10, strconv.IntSize)
		if err != nil {
			return fmt.Errorf("bad range %q: %w", token, err)
		}
		if last < first {
			return fmt.Errorf("bad range %q: end before start", token)
		}
		if last == math.MaxUint {
			return fmt.Errorf("bad member %q: must be below %d", token, uint64(math.MaxUint))
		}
		s.ReserveLen(uint(last) + 1)
		for v := first; ; v++ {
			s.Insert(uint(v))
			if v == last {
				break
			}
		}
	}
	return scanner.Err()
}

func openFile(args []string, logger *slog.Logger) (*sob.File, error) {
	if len(args) != 1 {
		return nil, errors.New("expected exactly one set file")
	}
	return sob.Open(args[0], sob.WithLogger(logger))
}

func dump(args []string, logger *slog.Logger) error {
	f, err := openFile(args, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(os.Stdout)
	var buf []byte
	for v := range f.All() {
		buf = strconv.AppendUint(buf[:0], uint64(v), 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

func stats(args []string, logger *slog.Logger) error {
	f, err := openFile(args, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	s, err := f.Load()
	if err != nil {
		return err
	}
	fmt.Printf("id:          %s\n", f.ID())
	fmt.Printf("compression: %s\n", f.Compression())
	fmt.Printf("capacity:    %d\n", s.Capacity())
	fmt.Printf("len:         %d\n", s.Len())
	if hi, ok := s.Max(); ok {
		fmt.Printf("max:         %d\n", hi)
	}
	return nil
}

func gen(args []string) error {
	flags := flag.NewFlagSet("gen", flag.ExitOnError)
	n := flags.Int("n", 1000000, "number of integers to print")
	bound := flags.Uint64("max", 1<<30, "exclusive upper bound on generated integers")
	_ = flags.Parse(args)

	if *bound == 0 {
		return errors.New("-max must be positive")
	}
	w := bufio.NewWriter(os.Stdout)
	var buf []byte
	for i := 0; i < *n; i++ {
		buf = strconv.AppendUint(buf[:0], rand.Uint64N(*bound), 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}
