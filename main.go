// vizsync keeps network and table views in sync with their data.
//
// It loads network documents, builds views over them, and resolves which
// visual style governs each table column.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/vizsync/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
