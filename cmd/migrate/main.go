package main

import (
	"log"

	"github.com/joho/godotenv"

	"tab-service/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	database.Connect()
	database.Migrate()
	log.Println("Migrations applied")
}
