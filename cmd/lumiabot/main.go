package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/m3rciful/lumiabot/core/cmd"
	"github.com/m3rciful/lumiabot/internal/app"
	"github.com/m3rciful/lumiabot/internal/config"
)

func main() {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
