package main

import (
	"fmt"
	"os"

	"github.com/py2sqf/py2sqf/pkg/compiler"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: py2sqf <in.py> <out.sqf>")
		os.Exit(1)
	}
	inPath, outPath := os.Args[1], os.Args[2]

	src, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", inPath, err)
		os.Exit(1)
	}

	out, err := compiler.Translate(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		os.Exit(1)
	}

	// Output is written once, only after the whole pipeline succeeded.
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("%s -> %s\n", inPath, outPath)
}
