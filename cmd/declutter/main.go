// The main package for the declutter executable.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "declutter: %v\n", err)
		os.Exit(1)
	}
}
