package main

import (
	"fmt"
	"os"

	"github.com/citegap/citegap/cmd/handlers"
)

func main() {
	if err := handlers.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
