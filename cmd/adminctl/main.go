package main

import (
	"os"

	"github.com/iliyamo/crowlee-bookings/cmd/adminctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
