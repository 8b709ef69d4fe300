// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halcyonworks/gamestudio/services/studio/handlers"
)

// SetupRoutes registers the studio API on router.
func SetupRoutes(router *gin.Engine, deps handlers.Deps) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)

		api.POST("/tasks", handlers.CreateTask(deps))
		api.GET("/tasks", handlers.ListTasks(deps))
		api.GET("/tasks/:taskId", handlers.GetTask(deps))

		projects := api.Group("/projects")
		{
			projects.POST("", handlers.CreateProject(deps))
			projects.GET("", handlers.ListProjects(deps))
			projects.GET("/:projectId", handlers.GetProject(deps))
		}
	}
}
