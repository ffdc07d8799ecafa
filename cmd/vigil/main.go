package main

import (
	"os"

	"github.com/arclight-dev/vigil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
