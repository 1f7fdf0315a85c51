package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/tubeaudio/pkg/cli"
)

func main() {
	// .env is optional; variables may come from the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if err := cli.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
