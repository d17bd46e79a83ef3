package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
)

// Recognize identifies the submitted face and marks attendance for the
// matched student in the given class.
func (h *Handler) Recognize(c *gin.Context) {
	classID, ok := h.formClassID(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.fail(c, apperr.Invalid("image file is required"))
		return
	}
	defer file.Close()

	result, err := h.faces.Recognize(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.gatewayFail(c, "Face recognition service failed: ", err)
		return
	}

	if err := h.attendance.Mark(c.Request.Context(), result.StudentID, classID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id": result.StudentID,
		"similarity": result.Similarity,
		"message":    fmt.Sprintf("Attendance marked for student %s", result.StudentID),
	})
}

// ListAttendance returns attendance records, optionally filtered by class
// and calendar date.
func (h *Handler) ListAttendance(c *gin.Context) {
	var filters attendance.Filters
	if v := c.Query("classId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(c, apperr.Invalid("invalid classId"))
			return
		}
		filters.ClassID = &id
	}
	filters.Date = c.Query("date")

	records, err := h.attendance.List(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// formClassID reads the classId field of a multipart form.
func (h *Handler) formClassID(c *gin.Context) (int64, bool) {
	classID, err := strconv.ParseInt(c.PostForm("classId"), 10, 64)
	if err != nil {
		h.fail(c, apperr.Invalid("classId is required"))
		return 0, false
	}
	return classID, true
}
