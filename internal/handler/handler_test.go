package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

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

// fakeFaceService mimics the recognition service for handler tests.
func fakeFaceService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/recognize", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"student_id":"S100","similarity":0.95}`))
	})
	mux.HandleFunc("/register_face", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"face_id":"face-1","message":"Face captured successfully."}`))
	})
	mux.HandleFunc("/commit_face", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Face for student S100 has been successfully registered."}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testAPI struct {
	router *gin.Engine
	cfg    config.App
	users  *user.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Load()
	cfg.JWTSigningKey = "test-secret"
	cfg.JWTIssuer = "rollcall-test"

	faces := faceclient.New(fakeFaceService(t).URL, time.Second)
	log := zerolog.Nop()
	users := user.NewService(user.NewRepository(db.Client))

	h := New(
		cfg,
		users,
		student.NewService(student.NewRepository(db.Client), faces, log),
		class.NewService(class.NewRepository(db.Client)),
		attendance.NewService(attendance.NewRepository(db.Client)),
		unregistered.NewService(unregistered.NewRepository(db.Client), faces),
		faces,
		nil,
		log,
	)

	r := gin.New()
	h.Routes(r)
	return &testAPI{router: r, cfg: cfg, users: users}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r *gin.Engine, path string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("not-really-a-jpeg"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionToken(t *testing.T, cfg config.App) string {
	t.Helper()
	token, _, err := auth.Issue(1, "admin", cfg.JWTIssuer, cfg.JWTSigningKey, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestRecognizeMarksAttendance(t *testing.T) {
	api := newTestAPI(t)
	r, cfg := api.router, api.cfg

	w := doJSON(t, r, http.MethodPost, "/api/classes", gin.H{"name": "Algebra 1", "teacher_id": 7}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create class: %d %s", w.Code, w.Body.String())
	}
	var cls struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &cls)

	w = doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"id": "S100", "first_name": "Ann", "last_name": "Lee", "class_id": cls.ID,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create student: %d %s", w.Code, w.Body.String())
	}

	w = doMultipart(t, r, "/api/attendance/recognize", map[string]string{"classId": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("recognize: %d %s", w.Code, w.Body.String())
	}
	var rec struct {
		StudentID  string  `json:"student_id"`
		Similarity float64 `json:"similarity"`
		Message    string  `json:"message"`
	}
	decode(t, w, &rec)
	if rec.StudentID != "S100" || rec.Similarity != 0.95 || rec.Message == "" {
		t.Fatalf("unexpected recognize response: %+v", rec)
	}

	// Listing requires a session; marking above did not.
	w = doJSON(t, r, http.MethodGet, "/api/attendance?classId=1", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/attendance?classId=1", nil, sessionToken(t, cfg))
	if w.Code != http.StatusOK {
		t.Fatalf("list attendance: %d %s", w.Code, w.Body.String())
	}
	var records []attendance.Record
	decode(t, w, &records)
	if len(records) != 1 || records[0].StudentID != "S100" || records[0].ClassName != "Algebra 1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestRecognizeUnknownStudentIs404(t *testing.T) {
	r := newTestAPI(t).router

	w := doJSON(t, r, http.MethodPost, "/api/classes", gin.H{"name": "Algebra 1"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create class: %d", w.Code)
	}

	// The face service matches S100, but no such student exists locally.
	w = doMultipart(t, r, "/api/attendance/recognize", map[string]string{"classId": "1"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	decode(t, w, &body)
	if !strings.Contains(body.Message, "S100") {
		t.Fatalf("expected message naming the student, got %q", body.Message)
	}
}

func TestDuplicateStudentIs409(t *testing.T) {
	r := newTestAPI(t).router

	doJSON(t, r, http.MethodPost, "/api/classes", gin.H{"name": "Algebra 1"}, "")
	payload := gin.H{"id": "S100", "first_name": "Ann", "last_name": "Lee", "class_id": 1}

	if w := doJSON(t, r, http.MethodPost, "/api/students", payload, ""); w.Code != http.StatusCreated {
		t.Fatalf("create student: %d", w.Code)
	}
	w := doJSON(t, r, http.MethodPost, "/api/students", payload, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}
}

func TestCommitFlowRemovesPendingFace(t *testing.T) {
	r := newTestAPI(t).router

	doJSON(t, r, http.MethodPost, "/api/classes", gin.H{"name": "Algebra 1"}, "")
	doJSON(t, r, http.MethodPost, "/api/students", gin.H{
		"id": "S100", "first_name": "Ann", "last_name": "Lee", "class_id": 1,
	}, "")

	w := doMultipart(t, r, "/api/students/register-face", map[string]string{"classId": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("register face: %d %s", w.Code, w.Body.String())
	}
	var reg struct {
		FaceID string `json:"face_id"`
	}
	decode(t, w, &reg)
	if reg.FaceID != "face-1" {
		t.Fatalf("unexpected face id %q", reg.FaceID)
	}

	w = doJSON(t, r, http.MethodGet, "/api/students/unregistered", nil, "")
	var pending []unregistered.Face
	decode(t, w, &pending)
	if len(pending) != 1 || pending[0].FaceID != "face-1" {
		t.Fatalf("expected pending face, got %+v", pending)
	}

	w = doJSON(t, r, http.MethodPost, "/api/students/commit-face", gin.H{
		"studentId": "S100", "faceId": "face-1",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("commit face: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/students/unregistered", nil, "")
	decode(t, w, &pending)
	if len(pending) != 0 {
		t.Fatalf("expected committed face gone from the queue, got %+v", pending)
	}
}

func TestAssignFaceCreatesStudentAndCommits(t *testing.T) {
	r := newTestAPI(t).router

	doJSON(t, r, http.MethodPost, "/api/classes", gin.H{"name": "Algebra 1"}, "")

	w := doMultipart(t, r, "/api/students/register-face", map[string]string{"classId": "1"})
	if w.Code != http.StatusOK {
		t.Fatalf("register face: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/students/assign-face", gin.H{
		"id": "S200", "first_name": "Ben", "last_name": "Okafor", "class_id": 1,
		"faceId": "face-1",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("assign face: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/students/S200", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("created student missing: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/students/unregistered", nil, "")
	var pending []unregistered.Face
	decode(t, w, &pending)
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after assign, got %+v", pending)
	}
}

func TestLoginSetsCookieAndMe(t *testing.T) {
	api := newTestAPI(t)
	r := api.router

	if w := doJSON(t, r, http.MethodPost, "/api/users", gin.H{}, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("users should be session-gated, got %d", w.Code)
	}

	// Bootstrap an account directly, then exercise the login endpoint.
	_, err := api.users.Create(context.Background(), user.CreateInput{
		Email:     "tina@example.com",
		Username:  "tina",
		Password:  "correct horse",
		FirstName: "Tina",
		LastName:  "Cho",
		Role:      user.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"email": "tina@example.com", "password": "wrong",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", gin.H{
		"email": "tina@example.com", "password": "correct horse",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}

	var cookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c.Value
			if !c.HttpOnly {
				t.Fatal("session cookie must be httponly")
			}
		}
	}
	if cookie == "" {
		t.Fatal("login did not set a session cookie")
	}

	w = doJSON(t, r, http.MethodGet, "/api/users/me", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var me struct {
		User user.User `json:"user"`
	}
	decode(t, w, &me)
	if me.User.Email != "tina@example.com" || me.User.Role != user.RoleTeacher {
		t.Fatalf("unexpected account: %+v", me.User)
	}
}
