package app

import (
	"bufio"
	"io"
)

// newLineScanner accepts lines up to maxLineSizeInBytes. Longer lines end the input with
// bufio.ErrTooLong.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSizeInBytes)
	return scanner
}
