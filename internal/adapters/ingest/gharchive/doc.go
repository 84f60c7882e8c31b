// Package gharchive handles reading GH Archive hourly gzip files line-by-line
//
// Design choices:
// - Stream with bufio.Scanner but with a 32MB cap to reliably handle huge push payloads.
// - Lines that are not valid JSON are skipped and counted; the importer decides how to report them.
// - Keep payload as raw JSON until the projection stage to avoid a giant union type
package gharchive
