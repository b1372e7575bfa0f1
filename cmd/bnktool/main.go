// This tool edits sound banks: it extracts embedded wems, replaces one wem
// with a file from disk and merges two banks into a new one. Edited banks
// are renamed after their output file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/wwise"
)

const usage = `usage:
  bnktool extract [-o dir] bank.bnk [id...]
  bnktool replace [-o out.bnk] bank.bnk id file.wem
  bnktool merge -o out.bnk first.bnk second.bnk`

var (
	errMissingCommand = errors.New("missing command")
	errUnknownCommand = errors.New("unknown command")
	errMissingArgs    = errors.New("missing arguments")
	errMissingOutput  = errors.New("missing -o output path")
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingCommand) || errors.Is(err, errUnknownCommand) || errors.Is(err, errMissingArgs) {
		fmt.Println(err)
		fmt.Println(usage)
		os.Exit(1)
	}

	log.Fatal(err)
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingCommand
	}

	switch args[0] {
	case "extract":
		return runExtract(args[1:], out)
	case "replace":
		return runReplace(args[1:], out)
	case "merge":
		return runMerge(args[1:], out)
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, args[0])
	}
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid wem id %q: %w", s, err)
	}

	return uint32(id), nil
}

func runExtract(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("extract", flag.ContinueOnError)
	flagSet.SetOutput(out)
	dir := flagSet.String("o", "", "output folder (defaults to <bank>_bnk next to the bank)")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() < 1 {
		return fmt.Errorf("%w: extract needs a bank", errMissingArgs)
	}

	path := flagSet.Arg(0)

	ids := make([]uint32, 0, flagSet.NArg()-1)
	for _, s := range flagSet.Args()[1:] {
		id, err := parseID(s)
		if err != nil {
			return err
		}

		ids = append(ids, id)
	}

	bnk, err := wwise.OpenBank(path)
	if err != nil {
		return err
	}

	if *dir == "" {
		base := filepath.Base(path)
		*dir = filepath.Join(filepath.Dir(path), base[:len(base)-len(filepath.Ext(base))]+"_bnk")
	}

	n, err := bnk.Extract(*dir, ids...)
	fmt.Fprintf(out, "Extracted %d wems to %s\n", n, *dir)

	return err
}

func runReplace(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("replace", flag.ContinueOnError)
	flagSet.SetOutput(out)
	output := flagSet.String("o", "", "output bank (defaults to overwriting the input)")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() < 3 {
		return fmt.Errorf("%w: replace needs a bank, a wem id and a wem file", errMissingArgs)
	}

	path := flagSet.Arg(0)

	id, err := parseID(flagSet.Arg(1))
	if err != nil {
		return err
	}

	wem, err := os.ReadFile(flagSet.Arg(2))
	if err != nil {
		return err
	}

	bnk, err := wwise.OpenBank(path)
	if err != nil {
		return err
	}

	if err := bnk.Replace(id, wem); err != nil {
		return err
	}

	if *output == "" {
		*output = path
	}

	if err := bnk.Save(*output); err != nil {
		return err
	}

	fmt.Fprintf(out, "Replaced wem %d (%d bytes), bank saved to %s\n", id, len(wem), *output)

	return nil
}

func runMerge(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("merge", flag.ContinueOnError)
	flagSet.SetOutput(out)
	output := flagSet.String("o", "", "output bank")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() < 2 {
		return fmt.Errorf("%w: merge needs two banks", errMissingArgs)
	}

	if *output == "" {
		return errMissingOutput
	}

	a, err := wwise.OpenBank(flagSet.Arg(0))
	if err != nil {
		return err
	}

	b, err := wwise.OpenBank(flagSet.Arg(1))
	if err != nil {
		return err
	}

	merged, err := wwise.Merge(a, b)
	if err != nil {
		return err
	}

	if err := merged.Save(*output); err != nil {
		return err
	}

	fmt.Fprintf(out, "Merged %d wems into %s\n", len(merged.WemIDs()), *output)

	return nil
}
