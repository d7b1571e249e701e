package main

import (
	"os"

	"horse.fit/agentwire/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
