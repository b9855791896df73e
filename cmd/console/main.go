// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/tracking_alignment/internal/app"
)

func main() {
	tick := flag.Duration("tick", 10*time.Millisecond, "fusion tick interval")
	every := flag.Duration("print", 200*time.Millisecond, "print interval")
	latency := flag.Duration("latency", 30*time.Millisecond, "simulated tracker latency")
	flag.Parse()

	log.Println("starting tracking-alignment (mock console)")

	if err := app.RunMockConsole(*tick, *every, latency.Seconds()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
