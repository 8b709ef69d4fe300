// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command studio is the CLI client for the studio service: submit
// projects and tasks, and inspect their status over the HTTP API.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Client for the studio task automation service",
	Long: `Submit repository automation work to a running studio service and
inspect its progress.

Examples:
  studio project submit --name "Chess Game" --description "Build a browser chess game"
  studio project status <project-id>
  studio task submit --description "Add a score counter to the HUD"
  studio task status <task-id>
  studio health`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	defaultURL := os.Getenv("STUDIO_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL,
		"Base URL of the studio service")
}
