// Command taxctl is the operator tool of the property tax backend: schema
// migrations, offline tax quotes and import of legacy article exports.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
