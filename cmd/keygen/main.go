package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/osc-matching-api/pkg/auth"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env from project root
	_ = godotenv.Load("../.env")
	_ = godotenv.Load(".env")

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <userID>")
		os.Exit(1)
	}

	secret := os.Getenv("API_MASTER_SECRET")
	if secret == "" {
		fmt.Println("Error: API_MASTER_SECRET not found in .env")
		os.Exit(1)
	}

	userID := os.Args[1]
	key := auth.New("", secret).GenerateHMACKey(userID)
	fmt.Printf("Generated Key for %s:\n%s\n", userID, key)
}
