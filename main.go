// @title TestWise Attempt API
// @version 1.0
// @description Timed test attempt engine for the TestWise learning platform.

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"testwise_attempt/internal/app"
	"testwise_attempt/internal/config"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding config.yaml")
	watch := flag.Bool("watch", true, "reload engine settings when config.yaml changes")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dir := *configDir
	if !*watch {
		dir = ""
	}
	application := app.NewApp(cfg, dir)
	application.Run()
}
