package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/genera/compass/internal/cli"
	"github.com/genera/compass/internal/model"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, model.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
