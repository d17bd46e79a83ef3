// Package handler binds HTTP routes to the domain services and maps typed
// service errors onto HTTP statuses with a uniform {message} body.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/class"
	"rollcall/internal/config"
	"rollcall/internal/faceclient"
	"rollcall/internal/store"
	"rollcall/internal/student"
	"rollcall/internal/unregistered"
	"rollcall/internal/user"
)

// Handler carries the services behind the REST surface.
type Handler struct {
	cfg        config.App
	users      *user.Service
	students   *student.Service
	classes    *class.Service
	attendance *attendance.Service
	pending    *unregistered.Service
	faces      *faceclient.Client
	redis      *store.Redis
	log        zerolog.Logger
}

// New wires a handler from its collaborators.
func New(
	cfg config.App,
	users *user.Service,
	students *student.Service,
	classes *class.Service,
	att *attendance.Service,
	pending *unregistered.Service,
	faces *faceclient.Client,
	redis *store.Redis,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		cfg:        cfg,
		users:      users,
		students:   students,
		classes:    classes,
		attendance: att,
		pending:    pending,
		faces:      faces,
		redis:      redis,
		log:        log,
	}
}

// Routes registers the API surface on the router.
func (h *Handler) Routes(r *gin.Engine) {
	sessionAuth := auth.SessionAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer)

	api := r.Group("/api")
	api.GET("/healthz", h.Healthz)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)

	users := api.Group("/users", sessionAuth)
	users.GET("", h.ListUsers)
	users.GET("/me", h.Me)
	users.POST("", h.CreateUser)
	users.PATCH("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	att := api.Group("/attendance")
	att.POST("/recognize", h.Recognize)
	att.GET("", sessionAuth, h.ListAttendance)

	students := api.Group("/students")
	students.POST("", h.CreateStudent)
	students.GET("", h.ListStudents)
	students.GET("/unregistered", h.ListUnregisteredFaces)
	students.GET("/unregistered/image/:faceId", h.UnregisteredFaceImage)
	students.DELETE("/unregistered/:faceId", h.DeleteUnregisteredFace)
	students.POST("/register-face", h.RegisterFace)
	students.POST("/commit-face", h.CommitFace)
	students.POST("/assign-face", h.AssignFace)
	students.GET("/:id", h.GetStudent)
	students.PATCH("/:id", h.UpdateStudent)
	students.DELETE("/:id", h.DeleteStudent)
	students.POST("/:id/face", h.AddStudentFace)

	classes := api.Group("/classes")
	classes.GET("", h.ListClasses)
	classes.POST("", h.CreateClass)
	classes.POST("/enroll", h.EnrollStudent)
}

// Healthz reports liveness of the store's collaborators.
func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.redis != nil {
		body["redis"] = h.redis.Healthy(c.Request.Context())
	}
	c.JSON(http.StatusOK, body)
}

// fail maps a service error onto an HTTP status with a {message} body.
func (h *Handler) fail(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal("An unexpected error occurred.", err)
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindInvalid:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"message": e.Message})
}

// gatewayFail wraps a recognition-service error as an internal failure
// carrying the upstream detail.
func (h *Handler) gatewayFail(c *gin.Context, prefix string, err error) {
	var ue *faceclient.UpstreamError
	detail := err.Error()
	if errors.As(err, &ue) {
		detail = ue.Detail
	}
	h.fail(c, apperr.Internal(prefix+detail, err))
}

func (h *Handler) bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return false
	}
	return true
}
