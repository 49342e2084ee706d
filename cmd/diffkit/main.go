package main

import (
	"errors"
	"log"
	"os"

	"github.com/interpretive-systems/diffkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var ee *cli.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.Code)
		}
		log.SetFlags(0)
		log.Fatal(err)
	}
}
