// Command darklens audits UI screenshots and live websites for dark patterns.
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/darklens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
