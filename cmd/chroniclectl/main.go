// chroniclectl is the operator CLI: it reads and mutates a chronicle
// installation's configuration, database, and image store directly.
package main

import (
	"os"

	"chronicle/internal/clicmd"
)

func main() {
	os.Exit(clicmd.Execute())
}
