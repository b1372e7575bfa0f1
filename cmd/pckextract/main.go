// This tool unpacks the package archives (.pck) found under the passed paths.
// Every archive is written to a folder named after it, next to the archive or
// below -o. Archives whose folder already exists are skipped.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/cwbudde/wwise"
)

const missingPathMessage = "You must pass at least one .pck file or folder to unpack"

var (
	errMissingPath       = errors.New("missing path argument")
	errConflictingFilter = errors.New("-banks-only and -sounds-only are mutually exclusive")
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

type options struct {
	outDir      string
	onlyBanks   bool
	onlySounds  bool
	bankVersion uint
	prefix      string
	unpackBanks bool
}

type result struct {
	path     string
	dest     string
	skipped  bool
	written  int
	banks    int
	failures []*wwise.EntryError
	err      error
}

func run(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("pckextract", flag.ContinueOnError)
	flagSet.SetOutput(out)

	var opts options

	flagSet.StringVar(&opts.outDir, "o", "", "folder receiving one subfolder per archive (defaults to the archive's folder)")
	flagSet.BoolVar(&opts.onlyBanks, "banks-only", false, "only extract sound banks")
	flagSet.BoolVar(&opts.onlySounds, "sounds-only", false, "only extract .wem sounds")
	flagSet.UintVar(&opts.bankVersion, "bank-version", 0, "bank version to assume, 0 detects it from the first bank")
	flagSet.StringVar(&opts.prefix, "prefix", "", "leading folder added to every extracted name")
	flagSet.BoolVar(&opts.unpackBanks, "unpack-banks", false, "also write the wems of every extracted bank to <bank>_bnk/")
	workers := flagSet.Int("workers", runtime.NumCPU(), "number of archives unpacked concurrently")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if flagSet.NArg() == 0 {
		return errMissingPath
	}

	if opts.onlyBanks && opts.onlySounds {
		return errConflictingFilter
	}

	archives, err := findArchives(flagSet.Args())
	if err != nil {
		return err
	}

	if len(archives) == 0 {
		fmt.Fprintln(out, "No .pck files found")
		return nil
	}

	n := max(*workers, 1)
	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for path := range jobs {
				results <- unpack(path, opts)
			}
		}()
	}

	go func() {
		for _, a := range archives {
			jobs <- a
		}

		close(jobs)
		wg.Wait()
		close(results)
	}()

	var (
		done int
		errs []error
	)

	for r := range results {
		done++

		switch {
		case r.err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", r.path, r.err))
			fmt.Fprintf(out, "[%d/%d] %s: %v\n", done, len(archives), r.path, r.err)
		case r.skipped:
			fmt.Fprintf(out, "[%d/%d] %s: skipped, %s exists\n", done, len(archives), r.path, r.dest)
		default:
			fmt.Fprintf(out, "[%d/%d] %s: %d files written to %s\n", done, len(archives), r.path, r.written, r.dest)
		}

		if r.banks > 0 {
			fmt.Fprintf(out, "\t%d wems unpacked from banks\n", r.banks)
		}

		for _, f := range r.failures {
			fmt.Fprintf(out, "\tskipped %v\n", f)
		}
	}

	return errors.Join(errs...)
}

// findArchives walks every path and collects the .pck files in walk order.
func findArchives(paths []string) ([]string, error) {
	var archives []string

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pck") {
				archives = append(archives, path)
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return archives, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func destDir(path, outDir string) string {
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	return filepath.Join(outDir, stem(path))
}

func unpack(path string, opts options) result {
	res := result{path: path, dest: destDir(path, opts.outDir)}

	if _, err := os.Stat(res.dest); err == nil {
		res.skipped = true
		return res
	}

	p, err := wwise.OpenPackage(path)
	if err != nil {
		res.err = err
		return res
	}
	defer p.Close()

	p.BankVersion = uint32(opts.bankVersion)
	p.OnlyBanks = opts.onlyBanks
	p.OnlySounds = opts.onlySounds
	p.Prefix = opts.prefix

	res.written, res.err = p.WriteFiles(res.dest)
	res.failures = p.Failures

	if res.err != nil || !opts.unpackBanks {
		return res
	}

	entries, err := p.Entries()
	if err != nil {
		res.err = err
		return res
	}

	var errs []error

	for _, e := range entries {
		if e.Table != wwise.TableBanks {
			continue
		}

		n, err := unpackBank(filepath.Join(res.dest, filepath.FromSlash(e.Name)))
		res.banks += n

		// unreadable entries are already listed in the failures
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	res.err = errors.Join(errs...)

	return res
}

// unpackBank writes the wems of the bank at path to a sibling <stem>_bnk
// folder. Banks without embedded wems are left alone.
func unpackBank(path string) (int, error) {
	bnk, err := wwise.OpenBank(path)
	if err != nil {
		return 0, err
	}

	if bnk.Data() == nil || bnk.Index() == nil {
		return 0, nil
	}

	dir := filepath.Join(filepath.Dir(path), stem(path)+"_bnk")

	n, err := bnk.Extract(dir)
	if err != nil {
		return n, fmt.Errorf("failed to unpack %s: %w", path, err)
	}

	return n, nil
}
