// This tool prints the layout of the passed sound bank: its header, its
// chunks and the codec of every embedded wem.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/wwise"
)

const missingPathMessage = "You must pass the path of the bank to inspect"

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

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	bnk, err := wwise.OpenBank(args[0])
	if err != nil {
		return err
	}

	hdr := bnk.Header()
	fmt.Fprintf(out, "Version: %d\n", hdr.Version())
	fmt.Fprintf(out, "Bank ID: %#08x\n", hdr.BankID())

	fmt.Fprintln(out, "Chunks:")

	for _, c := range bnk.Chunks() {
		id := c.ChunkID()
		fmt.Fprintf(out, "\t%s: %d bytes\n", id[:], c.Len())
	}

	for _, s := range bnk.Skipped {
		fmt.Fprintf(out, "\t%s: %d bytes (skipped, chunk %d)\n", s.ID[:], s.Size, s.Order)
	}

	if h := bnk.Hierarchy(); h != nil {
		fmt.Fprintf(out, "Hierarchy objects: %d\n", h.Count)
	}

	if bnk.Data() == nil || bnk.Index() == nil {
		fmt.Fprintln(out, "No embedded wems")
		return nil
	}

	ids := bnk.WemIDs()
	fmt.Fprintf(out, "Wems: %d\n", len(ids))

	for _, id := range ids {
		wem, err := bnk.Wem(id)
		if err != nil {
			return err
		}

		info, err := wwise.ReadWemInfo(wem)
		if err != nil {
			fmt.Fprintf(out, "\t%d: %d bytes, unreadable header: %v\n", id, len(wem), err)
			continue
		}

		format := info.Format()
		fmt.Fprintf(out, "\t%d: %d bytes, %s, %d ch @ %d Hz\n",
			id, len(wem), info.Codec(), format.NumChannels, format.SampleRate)
	}

	return nil
}
