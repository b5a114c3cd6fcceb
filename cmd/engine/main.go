// Command engine runs the TechFlow job engine: the control-plane API, the
// scheduler and one-off scrape runs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
