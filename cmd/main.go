package main

import (
	"fmt"
	"os"

	graphragcli "github.com/oakmoss/graphrag/cmd/graphrag"
)

func main() {
	if err := graphragcli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if graphragcli.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
