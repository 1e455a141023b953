package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/tasky"
)

type statusRequest struct {
	Status string `json:"status"`
}

type breakdownRequest struct {
	Text string `json:"text"`
}

type createUserRequest struct {
	ID string `json:"id"`
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "pong",
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req tasky.GenerateRequest
	if !bind(c, &req) {
		return
	}

	tasks, err := s.app.Generate.Generate(c.Request.Context(), req)
	if err != nil {
		failErr(c, err, "Failed to generate tasks")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"tasks":   tasks,
	})
}

func (s *Server) handleBreakdown(c *gin.Context) {
	var req breakdownRequest
	if !bind(c, &req) {
		return
	}

	subtasks, err := s.app.Generate.Breakdown(c.Request.Context(), req.Text)
	if err != nil {
		failErr(c, err, "Failed to break down task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"subtasks": subtaskDrafts(subtasks),
		},
	})
}

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.app.Tasks.ListTasks(c.Request.Context(), c.Query("userId"))
	if err != nil {
		failErr(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tasks,
	})
}

func (s *Server) handleGetTask(c *gin.Context) {
	mt, err := s.app.Tasks.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, "Failed to fetch task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    mt,
	})
}

func (s *Server) handleUpdateTaskStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}

	mt, err := s.app.Tasks.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		failErr(c, err, "Failed to update task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task status updated successfully",
		"data":    mt,
	})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	mt, err := s.app.Tasks.DeleteTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task deleted successfully",
		"data":    mt,
	})
}

func (s *Server) handleUpdateSubtaskStatus(c *gin.Context) {
	var req statusRequest
	if !bind(c, &req) {
		return
	}

	res, err := s.app.Tasks.UpdateSubtaskStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		failErr(c, err, "Failed to update subtask status")
		return
	}

	body := gin.H{
		"success":         true,
		"message":         "Subtask status updated successfully",
		"data":            res.Subtask,
		"mainTaskUpdated": res.MainTaskUpdated,
	}
	if res.MainTask != nil {
		body["updatedMainTask"] = res.MainTask
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	// The body is optional; an empty request creates a user with a generated id.
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	u, err := s.app.Users.Create(c.Request.Context(), req.ID)
	if err != nil {
		failErr(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    u,
	})
}

func (s *Server) handleGetUser(c *gin.Context) {
	u, err := s.app.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err, "Failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    u,
	})
}

// bind decodes the JSON body into dst, writing a 400 on failure.
func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		_ = c.Error(err)
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// failErr writes err using the error taxonomy. Client errors carry their
// own message; server errors use fallback and add the detail.
func failErr(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	status := task.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		fail(c, status, task.UserMessage(err))
		return
	}

	msg := fallback
	if errors.Is(err, task.ErrMalformedOutput) {
		msg = task.UserMessage(err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"details": err.Error(),
	})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

type subtaskDraftJSON struct {
	Title    string      `json:"title"`
	Duration int         `json:"duration"`
	Status   task.Status `json:"status"`
}

func subtaskDrafts(in []task.SubtaskDraft) []subtaskDraftJSON {
	out := make([]subtaskDraftJSON, 0, len(in))
	for _, d := range in {
		out = append(out, subtaskDraftJSON{Title: d.Title, Duration: d.Duration, Status: d.Status})
	}
	return out
}
