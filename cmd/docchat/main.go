package main

import (
	"github.com/joho/godotenv"

	"docchat/internal/cli"
)

func main() {
	// Optional .env for API keys; absence is fine.
	godotenv.Load()

	cli.Execute()
}
