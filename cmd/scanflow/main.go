package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/juakali/scanflow/internal/cli"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(cli.GetExitCode(err))
	}
}
