// Command segmatchctl is the operator CLI: catalog import, ad-hoc searches and cache maintenance.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(openBackend).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
