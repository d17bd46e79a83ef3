package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/class"
)

// ListClasses returns all classes with teacher names and rosters.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.classes.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600, stale-while-revalidate=3600")
	c.JSON(http.StatusOK, classes)
}

// CreateClass inserts a new class.
func (h *Handler) CreateClass(c *gin.Context) {
	var req class.CreateInput
	if !h.bindJSON(c, &req) {
		return
	}

	cls, err := h.classes.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cls)
}

type enrollRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	ClassID   int64  `json:"classId" binding:"required"`
}

// EnrollStudent adds a student to a class.
func (h *Handler) EnrollStudent(c *gin.Context) {
	var req enrollRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.classes.Enroll(c.Request.Context(), req.StudentID, req.ClassID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Student %s enrolled in class %d.", req.StudentID, req.ClassID),
	})
}
