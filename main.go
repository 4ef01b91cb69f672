package main

import (
	"os"

	"github.com/abhisek/tutorflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
