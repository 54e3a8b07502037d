// Package main provides the pdfdiff command.
//
// pdfdiff compares two PDF documents visually and prints True when they
// render identically, False otherwise. Given a third path it writes a
// side-by-side document highlighting every difference.
//
// Usage:
//
//	pdfdiff <docA.pdf> <docB.pdf> [<diff.pdf>]
//	pdfdiff history
//	pdfdiff version
//
// Exit status is 0 when the documents are equal, 1 when they differ and 2
// on error.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
