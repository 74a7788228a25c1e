// File: cmd/opskit/main.go
package main

import (
	"os"

	// Explicitly import provider implementations to ensure their init() functions run and they register themselves
	_ "opskit/pkg/storage/aws"
	_ "opskit/pkg/storage/gcp"
)

func main() {
	os.Exit(Execute(newRootCmd(os.Stdin, os.Stdout)))
}
