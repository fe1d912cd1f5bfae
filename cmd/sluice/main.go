package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()
	Execute()
}
