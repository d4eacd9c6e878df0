// The main package for the frontier executable.
package main

import (
	"github.com/crawlkit/frontier/cmd"
)

func main() {
	cmd.Execute()
}
