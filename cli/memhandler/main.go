package main

import (
	"os"

	memhandlercmder "github.com/Sakibyash/infinoz-bot1/cmd/memhandler"
)

func main() {
	cmd := memhandlercmder.NewMemhandlerCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
