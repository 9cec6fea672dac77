// Command dbexec runs validated SQL against configured database backends.
package main

import (
	"os"

	"github.com/satishbabariya/dbexec/cmd/dbexec/commands"
)

func main() {
	os.Exit(commands.Execute())
}
