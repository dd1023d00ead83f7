package api

import (
	"net/http"

	"task_wallet/internal/catalog"
	"task_wallet/internal/middleware"

	"github.com/gin-gonic/gin"
)

// ListTasksHandler returns every task with the caller's progress
func ListTasksHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := d.Progress.Board(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// TaskHistoryHandler returns the caller's started and attempted tasks
func TaskHistoryHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := d.Progress.History(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": history})
	}
}

// StartTaskHandler marks a task as in progress
func StartTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := d.Progress.Start(c.Request.Context(), middleware.UserID(c), taskID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task started", "status": "in-progress"})
	}
}

// AttemptTaskHandler submits a started task for review
func AttemptTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := d.Progress.Attempt(c.Request.Context(), middleware.UserID(c), taskID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task attempted", "status": "completed"})
	}
}

// AdminListTasksHandler returns the raw catalog
func AdminListTasksHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := d.Catalog.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// GetTaskHandler returns one task
func GetTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		task, err := d.Catalog.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// CreateTaskHandler adds a task to the catalog
func CreateTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in catalog.Input
		if err := bindJSON(c, &in); err != nil {
			respondError(c, err)
			return
		}
		task, err := d.Catalog.Create(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"task": task})
	}
}

// UpdateTaskHandler replaces a task's editable fields
func UpdateTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		var in catalog.Input
		if err := bindJSON(c, &in); err != nil {
			respondError(c, err)
			return
		}
		task, err := d.Catalog.Update(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// DeleteTaskHandler removes a task from the catalog
func DeleteTaskHandler(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c, "id")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := d.Catalog.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	}
}
