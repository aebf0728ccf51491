package main

import (
	"os"

	"github.com/niktheblak/waterlevel-uploader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
