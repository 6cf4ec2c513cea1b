package main

import (
	"os"

	"github.com/abhisek/lessonforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
