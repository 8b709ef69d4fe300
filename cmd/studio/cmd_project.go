// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halcyonworks/gamestudio/services/studio/datatypes"
)

var (
	projectName        string
	projectDescription string
	projectRepoURL     string
	projectRepoName    string
	projectKeyFiles    []string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Submit and inspect multi-task projects",
}

var projectSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a project for decomposition and execution",
	Long: `Submits a project description. The service breaks it into a
dependency graph of subtasks and executes them; all subtasks land on
one feature branch.

Example:
  studio project submit --name "Chess Game" \
    --description "Build a browser chess game with move validation" \
    --repo-url https://github.com/acme/chess --repo-name chess`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := datatypes.ProjectSubmission{
			ProjectName: projectName,
			Description: projectDescription,
			RepoURL:     projectRepoURL,
			RepoName:    projectRepoName,
			KeyFiles:    projectKeyFiles,
		}
		var resp datatypes.ProjectSubmissionResponse
		if err := postJSON("/api/projects", req, &resp); err != nil {
			return err
		}

		fmt.Printf("Project %s submitted with %d subtasks\n", resp.ProjectID, len(resp.SubtaskIDs))
		printJSON(resp)
		return nil
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show the live status of a project's subtasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var status datatypes.ProjectStatus
		if err := getJSON("/api/projects/"+args[0], &status); err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		var projects []datatypes.ProjectStatus
		if err := getJSON("/api/projects", &projects); err != nil {
			return err
		}
		printJSON(projects)
		return nil
	},
}

func init() {
	projectSubmitCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectSubmitCmd.Flags().StringVar(&projectDescription, "description", "", "Project description (required)")
	projectSubmitCmd.Flags().StringVar(&projectRepoURL, "repo-url", "", "Repository https URL")
	projectSubmitCmd.Flags().StringVar(&projectRepoName, "repo-name", "", "Repository name")
	projectSubmitCmd.Flags().StringSliceVar(&projectKeyFiles, "key-file", nil, "Key file for repository analysis (repeatable)")
	_ = projectSubmitCmd.MarkFlagRequired("name")
	_ = projectSubmitCmd.MarkFlagRequired("description")

	projectCmd.AddCommand(projectSubmitCmd, projectStatusCmd, projectListCmd)
	rootCmd.AddCommand(projectCmd)
}
