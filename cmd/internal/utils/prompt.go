package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prints the given question to out and reads a single answer line
// from in. Only "y" and "yes" (case-insensitive) are treated as consent,
// everything else including a closed input stream denies.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
