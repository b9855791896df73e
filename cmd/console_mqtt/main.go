package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/tracking_alignment/internal/app"
	"github.com/relabs-tech/tracking_alignment/internal/config"
)

func main() {
	configPath := flag.String("config", "./tracking_config.txt", "path to configuration file")
	showTracker := flag.Bool("tracker", false, "also print raw tracker states")
	flag.Parse()

	log.Println("starting tracking-alignment console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(*showTracker); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
