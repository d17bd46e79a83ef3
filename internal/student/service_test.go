package student

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rollcall/internal/apperr"
	"rollcall/internal/faceclient"
	"rollcall/internal/store"
)

func newTestService(t *testing.T, faceHandler http.HandlerFunc) (*Service, *store.DB) {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if faceHandler == nil {
		faceHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message":"ok"}`))
		}
	}
	srv := httptest.NewServer(faceHandler)
	t.Cleanup(srv.Close)

	gateway := faceclient.New(srv.URL, time.Second)
	svc := NewService(NewRepository(db.Client), gateway, zerolog.Nop())

	if _, err := db.Client.Exec(`INSERT INTO classes (id, name) VALUES (1, 'Algebra 1')`); err != nil {
		t.Fatalf("seed class: %v", err)
	}
	return svc, db
}

func TestCreateDuplicate(t *testing.T) {
	svc, db := newTestService(t, nil)
	in := CreateInput{ID: "S100", FirstName: "Ann", LastName: "Lee", ClassID: 1}

	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(context.Background(), in)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	var n int
	if err := db.Client.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected store unchanged with 1 student, got %d", n)
	}
}

func TestGetMissing(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Get(context.Background(), "nope")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdatePartialPatch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Create(context.Background(), CreateInput{ID: "S100", FirstName: "Ann", LastName: "Lee", ClassID: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	first := "Anna"
	st, err := svc.Update(context.Background(), "S100", UpdateInput{FirstName: &first})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if st.FirstName != "Anna" {
		t.Fatalf("expected patched first name, got %q", st.FirstName)
	}
	if st.LastName != "Lee" || st.ClassID != 1 {
		t.Fatalf("expected untouched fields to keep previous values: %+v", st)
	}
}

func TestListJoinsClassName(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Create(context.Background(), CreateInput{ID: "S100", FirstName: "Ann", LastName: "Lee", ClassID: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{ID: "S200", FirstName: "Bob", LastName: "Orr", ClassID: 42}); err != nil {
		t.Fatalf("create: %v", err)
	}

	students, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byID := map[string]WithClass{}
	for _, st := range students {
		byID[st.ID] = st
	}
	if got := byID["S100"].ClassName; got == nil || *got != "Algebra 1" {
		t.Fatalf("expected class name Algebra 1, got %v", got)
	}
	// Class 42 does not exist; the left join leaves the name null.
	if got := byID["S200"].ClassName; got != nil {
		t.Fatalf("expected nil class name for orphan, got %q", *got)
	}
}

func TestDeleteSurvivesGatewayFailure(t *testing.T) {
	svc, db := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})
	if _, err := svc.Create(context.Background(), CreateInput{ID: "S100", FirstName: "Ann", LastName: "Lee", ClassID: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), "S100"); err != nil {
		t.Fatalf("delete should swallow gateway failure, got %v", err)
	}

	var n int
	if err := db.Client.QueryRow(`SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected student removed, %d rows remain", n)
	}
}

func TestDeleteMissing(t *testing.T) {
	svc, _ := newTestService(t, nil)
	err := svc.Delete(context.Background(), "nope")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddFaceRequiresStudent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.AddFace(context.Background(), "nope", strings.NewReader("img"), "face.jpg")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddFaceWrapsUpstreamDetail(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"No face detected in the image."}`))
	})
	if _, err := svc.Create(context.Background(), CreateInput{ID: "S100", FirstName: "Ann", LastName: "Lee", ClassID: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.AddFace(context.Background(), "S100", strings.NewReader("img"), "face.jpg")
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "No face detected") {
		t.Fatalf("expected upstream detail in error, got %v", err)
	}
}
