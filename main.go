package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Set properties of the predefined Logger, including the log entry prefix.
	log.SetPrefix("fittrack/go-api: ")
	log.SetFlags(0)

	// .env is optional in deployed environments where config comes from the host.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	fmt.Println("Starting gin app...")

	pool := getDBPool()
	defer pool.Close()

	aiBaseURL := os.Getenv("DEEPSEEK_BASE_URL")
	if aiBaseURL == "" {
		aiBaseURL = "https://api.deepseek.com"
	}

	h := newHandler(pool, newPostgresStore(pool), aiBaseURL)

	router := gin.Default()
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	router.Run("localhost:" + port)
}
