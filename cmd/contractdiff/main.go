package main

import (
	"fmt"
	"os"

	"github.com/cptntrps/contract-v2-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
