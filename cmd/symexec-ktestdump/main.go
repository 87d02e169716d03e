// Command symexec-ktestdump prints a summary of a .ktest file: its
// argument vector, each concretized object's name and byte count, and
// any havoced locations recorded by a loop-invariant fixpoint search.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fkuehnel/symexec-core/ktest"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <file.ktest>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	if ok, err := ktest.IsKTestFile(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else if !ok {
		fmt.Fprintf(os.Stderr, "%s: not a .ktest file\n", path)
		os.Exit(1)
	}

	k, err := ktest.FromFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("version: %d\n", k.Version)
	fmt.Printf("args (%d):", len(k.Args))
	for _, a := range k.Args {
		fmt.Printf(" %q", a)
	}
	fmt.Println()
	fmt.Printf("symArgvs=%d symArgvLen=%d\n", k.SymArgvs, k.SymArgvLen)

	fmt.Printf("objects (%d, %d bytes total):\n", len(k.Objects), k.NumBytes())
	for _, o := range k.Objects {
		fmt.Printf("  %-20s %4d bytes\n", o.Name, len(o.Bytes))
	}

	if len(k.Havocs) > 0 {
		fmt.Printf("havoced locations (%d):\n", len(k.Havocs))
		for _, h := range k.Havocs {
			set := 0
			for _, m := range h.Mask {
				if m != 0 {
					set++
				}
			}
			fmt.Printf("  %-20s %4d bytes, %d masked\n", h.Name, len(h.Bytes), set)
		}
	}
}
