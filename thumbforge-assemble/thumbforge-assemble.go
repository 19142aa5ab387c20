// Command thumbforge-assemble assembles a stub script into raw Thumb
// machine code at a caller-supplied base address.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/geek1011/thumbforge/internal/hwdump"
	"github.com/geek1011/thumbforge/stubfile"
	_ "github.com/geek1011/thumbforge/stubfile/thumbyaml"
	"github.com/geek1011/thumbforge/thumbwriter"
	"github.com/spf13/pflag"
)

var version = "unknown"

func errexit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	os.Exit(1)
}

func main() {
	input := pflag.StringP("input", "i", "", "the stub script to assemble (required)")
	output := pflag.StringP("output", "o", "", "the file to write the assembled machine code to (will be overwritten if exists) (required)")
	base := pflag.StringP("base", "b", "0", "the base address to assemble at, decimal or 0x-prefixed hex")
	format := pflag.StringP("format", "f", "thumbyaml", fmt.Sprintf("the stub script format (one of: %s)", strings.Join(stubfile.GetFormats(), ",")))
	bufSize := pflag.IntP("buffer-size", "s", 4096, "the size of the output buffer to assemble into, in bytes")
	listing := pflag.BoolP("listing", "l", false, "print a halfword listing of the assembled code to stdout")
	verbose := pflag.BoolP("verbose", "v", false, "show verbose output while assembling")
	help := pflag.BoolP("help", "h", false, "show this help text")
	pflag.Parse()

	if *help || pflag.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "Usage: thumbforge-assemble [OPTIONS]\n")
		fmt.Fprintf(os.Stderr, "\nVersion: %s\n\nOptions:\n", version)
		pflag.PrintDefaults()
		os.Exit(1)
	}

	if *input == "" || *output == "" {
		errexit("Error: input and output flags are required. See --help for more info.\n")
	}

	if !sliceContains(stubfile.GetFormats(), *format) {
		errexit("Error: invalid format %s. See --help for more info.\n", *format)
	}

	baseAddr, err := strconv.ParseUint(*base, 0, 64)
	if err != nil {
		errexit("Error: could not parse base address %s: %v\n", *base, err)
	}

	if *verbose {
		stubfile.Log = func(format string, a ...interface{}) {
			fmt.Printf(format, a...)
		}
	} else {
		stubfile.Log = func(format string, a ...interface{}) {}
	}

	ss, err := stubfile.ReadFromFile(*format, *input)
	if err != nil {
		errexit("Error: could not read stub script: %v\n", err)
	}

	if err := ss.Validate(); err != nil {
		errexit("Error: could not validate stub script: %v\n", err)
	}

	buf := make([]byte, *bufSize)
	w := thumbwriter.New(buf, baseAddr)

	if err := ss.ApplyTo(w); err != nil {
		errexit("Error: could not assemble stub script: %v\n", err)
	}

	obuf := buf[:w.Offset()]

	f, err := os.Create(*output)
	if err != nil {
		errexit("Error: could not create output file: %v\n", err)
	}
	defer f.Close()

	n, err := f.Write(obuf)
	if err != nil {
		errexit("Error: could not write output file: %v\n", err)
	} else if n != len(obuf) {
		errexit("Error: could not write output file: could not finish writing all bytes to file\n")
	}

	if *listing {
		if err := hwdump.Write(os.Stdout, obuf, baseAddr); err != nil {
			errexit("Error: could not print listing: %v\n", err)
		}
	}

	fmt.Printf("Successfully assembled '%s' to '%s' (%d bytes at base 0x%X)\n", *input, *output, len(obuf), baseAddr)
}

func sliceContains(arr []string, v string) bool {
	for _, i := range arr {
		if i == v {
			return true
		}
	}
	return false
}
