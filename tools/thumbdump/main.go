// Command thumbdump prints an address-annotated halfword listing of a raw
// Thumb code blob, the encoder-side counterpart to symdump for eyeballing
// thumbforge-assemble output. It does not disassemble to mnemonics.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/geek1011/thumbforge/internal/hwdump"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "thumbdump prints an address-annotated halfword listing of a raw Thumb code blob")
		fmt.Fprintln(os.Stderr, "Usage: thumbdump BLOB_FILE BASE_ADDRESS (decimal, or hex with a 0x prefix)")
		os.Exit(1)
	}

	buf, err := ioutil.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read blob file: %v\n", err)
		os.Exit(1)
	}

	base, err := strconv.ParseUint(os.Args[2], 0, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not parse base address: %v\n", err)
		os.Exit(1)
	}

	if err := hwdump.Write(os.Stdout, buf, base); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not dump blob: %v\n", err)
		os.Exit(1)
	}
}
