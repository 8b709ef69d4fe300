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
	taskDescription string
	taskDetails     string
	taskRepoURL     string
	taskRepoName    string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Submit and inspect single tasks",
}

var taskSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one ad-hoc task without decomposition",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := datatypes.TaskSubmission{
			TaskDescription:     taskDescription,
			DetailedDescription: taskDetails,
			RepoURL:             taskRepoURL,
			RepoName:            taskRepoName,
		}
		var resp datatypes.TaskSubmissionResponse
		if err := postJSON("/api/tasks", req, &resp); err != nil {
			return err
		}

		fmt.Printf("Task %s submitted\n", resp.TaskID)
		return nil
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the status of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var status datatypes.TaskStatus
		if err := getJSON("/api/tasks/"+args[0], &status); err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		var tasks []datatypes.TaskStatus
		if err := getJSON("/api/tasks", &tasks); err != nil {
			return err
		}
		printJSON(tasks)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check service health",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp map[string]string
		if err := getJSON("/api/health", &resp); err != nil {
			return err
		}
		fmt.Println(resp["status"])
		return nil
	},
}

func init() {
	taskSubmitCmd.Flags().StringVar(&taskDescription, "description", "", "Short task description (required)")
	taskSubmitCmd.Flags().StringVar(&taskDetails, "details", "", "Detailed instructions")
	taskSubmitCmd.Flags().StringVar(&taskRepoURL, "repo-url", "", "Repository https URL")
	taskSubmitCmd.Flags().StringVar(&taskRepoName, "repo-name", "", "Repository name")
	_ = taskSubmitCmd.MarkFlagRequired("description")

	taskCmd.AddCommand(taskSubmitCmd, taskStatusCmd, taskListCmd)
	rootCmd.AddCommand(taskCmd, healthCmd)
}
