// descvis decides which descriptors of a catalog are visible in a scope.
package main

import (
	"os"

	"github.com/hupe1980/descvis/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
