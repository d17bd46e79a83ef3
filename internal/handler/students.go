package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/student"
)

// CreateStudent inserts a new student record.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req student.CreateInput
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// ListStudents returns all students with their class names.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300, stale-while-revalidate=300")
	c.JSON(http.StatusOK, students)
}

// GetStudent returns one student by id.
func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpdateStudent applies a partial patch to a student.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req student.UpdateInput
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.students.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DeleteStudent removes a student; face cleanup on the recognition service
// is best effort.
func (h *Handler) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Student with ID %s successfully deleted.", id)})
}

// AddStudentFace enrolls an additional face image for an existing student.
func (h *Handler) AddStudentFace(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.fail(c, apperr.Invalid("image file is required"))
		return
	}
	defer file.Close()

	message, err := h.students.AddFace(c.Request.Context(), c.Param("id"), file, header.Filename)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// RegisterFace captures an unmatched face on the recognition service and
// records it locally as pending assignment.
func (h *Handler) RegisterFace(c *gin.Context) {
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

	result, err := h.faces.RegisterFace(c.Request.Context(), classID, file, header.Filename)
	if err != nil {
		h.gatewayFail(c, "Face registration service failed: ", err)
		return
	}

	if err := h.pending.Add(c.Request.Context(), result.FaceID, classID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"face_id": result.FaceID, "message": result.Message})
}

type commitFaceRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	FaceID    string `json:"faceId" binding:"required"`
}

// CommitFace binds a pending face to a student on the recognition service,
// then drops the local pending record. The two steps are not transactional;
// a failure after the commit leaves a stale pending row to reconcile by hand.
func (h *Handler) CommitFace(c *gin.Context) {
	var req commitFaceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.faces.CommitFace(c.Request.Context(), req.StudentID, req.FaceID)
	if err != nil {
		h.gatewayFail(c, "Face commit service failed: ", err)
		return
	}

	if err := h.pending.Remove(c.Request.Context(), req.FaceID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": result.Message})
}

type assignFaceRequest struct {
	student.CreateInput
	FaceID string `json:"faceId" binding:"required"`
}

// AssignFace creates a new student and binds a pending face to it, the
// create-then-commit composition done in one call. A gateway failure after
// the insert leaves the student without a face; the student is kept so the
// commit can be retried on its own.
func (h *Handler) AssignFace(c *gin.Context) {
	var req assignFaceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	st, err := h.students.Create(c.Request.Context(), req.CreateInput)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.faces.CommitFace(c.Request.Context(), st.ID, req.FaceID)
	if err != nil {
		h.gatewayFail(c, "Face commit service failed: ", err)
		return
	}

	if err := h.pending.Remove(c.Request.Context(), req.FaceID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": st, "message": result.Message})
}

// ListUnregisteredFaces returns the pending reconciliation queue.
func (h *Handler) ListUnregisteredFaces(c *gin.Context) {
	faces, err := h.pending.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, faces)
}

// DeleteUnregisteredFace discards a pending face, gateway first.
func (h *Handler) DeleteUnregisteredFace(c *gin.Context) {
	if err := h.pending.Delete(c.Request.Context(), c.Param("faceId")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unregistered face deleted successfully."})
}

// UnregisteredFaceImage proxies the stored image of a pending face.
func (h *Handler) UnregisteredFaceImage(c *gin.Context) {
	img, err := h.faces.UnregisteredImage(c.Request.Context(), c.Param("faceId"))
	if err != nil {
		h.fail(c, apperr.NotFound("Image not found."))
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
