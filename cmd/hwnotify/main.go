package main

import (
	"os"

	"github.com/hitoshi/hwnotify/internal/app"
)

func main() {
	os.Exit(app.LogExit(app.Run(os.Stdout, os.Args[1:])))
}
