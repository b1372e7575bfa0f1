// Package wwise reads and edits Wwise audio containers.
//
// PackageReader unpacks AKPK package archives: it parses the language
// table and the bank, sound and external tables, names every entry after its
// ID and language, and returns the payloads keyed by output path. Packages
// older than bank version 62 have their sound extensions sniffed from the
// RIFF format tag of each entry.
//
// Bank is a decoded sound bank (BKHD, DIDX, DATA and HIRC chunks). The DATA
// payload is split into per-ID WEM blobs that can be extracted, replaced or
// merged with another bank:
//
//   - Extract(dir, ids...) writes <id>.wem files
//   - Replace(id, wem) swaps a blob and corrects the offsets
//   - Merge(a, b) unites two banks into a new one
//   - Save(path) writes the bank, renaming it after the file
//
// Chunks without a registered decoder are skipped on load and listed in
// Bank.Skipped. Registering RawChunkDecoder for a tag keeps it verbatim.
package wwise
