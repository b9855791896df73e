// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/tracking_alignment/internal/app"
	"github.com/relabs-tech/tracking_alignment/internal/config"
)

func main() {
	configPath := flag.String("config", "./tracking_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting tracking-alignment fusion (sensor + tracker → aligned pose)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunFusion(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
