// ./cmd/placement/main.go
//
// Stores the tracker placement (its pose relative to the tracked object's
// origin) in the placement storage file read by the fusion runner.
//
// Run:
//
//	go run ./cmd/placement -y 0.05 -z -0.02 -yaw 90
//	go run ./cmd/placement -code AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAACAPw
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/relabs-tech/tracking_alignment/internal/app"
	"github.com/relabs-tech/tracking_alignment/internal/calibration"
	"github.com/relabs-tech/tracking_alignment/internal/config"
)

func main() {
	configPath := flag.String("config", "./tracking_config.txt", "path to configuration file")
	storage := flag.String("storage", "", "storage file (defaults to STORAGE_PATH)")
	key := flag.String("key", calibration.DefaultKey, "placement key")
	code := flag.String("code", "", "placement code to store as is")

	var in app.PlacementInput
	flag.Float64Var(&in.X, "x", 0, "tracker offset x (m)")
	flag.Float64Var(&in.Y, "y", 0, "tracker offset y (m)")
	flag.Float64Var(&in.Z, "z", 0, "tracker offset z (m)")
	flag.Float64Var(&in.Yaw, "yaw", 0, "tracker yaw (deg)")
	flag.Float64Var(&in.Pitch, "pitch", 0, "tracker pitch (deg)")
	flag.Float64Var(&in.Roll, "roll", 0, "tracker roll (deg)")
	flag.Parse()

	path := *storage
	if path == "" {
		if err := config.InitGlobal(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		path = config.Get().StoragePath
	}
	if path == "" {
		log.Fatal("no storage file: pass -storage or set STORAGE_PATH")
	}

	stored, err := app.RunPlacement(path, *key, *code, in)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	fmt.Printf("placement %q stored in %s: %s\n", *key, path, stored)
}
