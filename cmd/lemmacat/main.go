// Command lemmacat classifies e-mails and other short texts by keyword
// lemmas.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cognicore/lemmacat/cmd/lemmacat/cli"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cli.Execute()
}
