package main

import (
	"os"

	"github.com/wonderivan/logger"

	"github.com/prokas-nikos/mftp/cmd/mftpctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
