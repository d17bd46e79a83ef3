// Package faceclient talks to the external face recognition service.
// Every operation is a single HTTP call; failures are never retried here,
// callers re-invoke the whole operation when they want resilience.
package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client calls the face recognition microservice.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// RecognizeResult is the identity match for a submitted image.
type RecognizeResult struct {
	StudentID  string  `json:"student_id"`
	Similarity float64 `json:"similarity"`
}

// RegisterResult identifies a captured face pending human assignment.
type RegisterResult struct {
	FaceID  string `json:"face_id"`
	Message string `json:"message"`
}

// MessageResult is the generic acknowledgement body.
type MessageResult struct {
	Message string `json:"message"`
}

// Image holds proxied image bytes with their content type.
type Image struct {
	Data        []byte
	ContentType string
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second // face processing can take time
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Recognize submits an image and returns the matched student identity.
func (c *Client) Recognize(ctx context.Context, image io.Reader, filename string) (*RecognizeResult, error) {
	body, contentType, err := multipartForm(nil, "file", filename, image)
	if err != nil {
		return nil, err
	}
	var out RecognizeResult
	if err := c.post(ctx, "/recognize", contentType, body, "Face recognition failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddFace binds an image directly to a known student identity.
func (c *Client) AddFace(ctx context.Context, studentID string, image io.Reader, filename string) (*MessageResult, error) {
	body, contentType, err := multipartForm(map[string]string{"student_id": studentID}, "file", filename, image)
	if err != nil {
		return nil, err
	}
	var out MessageResult
	if err := c.post(ctx, "/add_face", contentType, body, "Face addition failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterFace captures an unmatched face and returns its opaque id.
func (c *Client) RegisterFace(ctx context.Context, classID int64, image io.Reader, filename string) (*RegisterResult, error) {
	body, contentType, err := multipartForm(map[string]string{"class_id": fmt.Sprintf("%d", classID)}, "file", filename, image)
	if err != nil {
		return nil, err
	}
	var out RegisterResult
	if err := c.post(ctx, "/register_face", contentType, body, "Face registration failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CommitFace binds a previously captured face to a known student.
func (c *Client) CommitFace(ctx context.Context, studentID, faceID string) (*MessageResult, error) {
	body, contentType, err := multipartForm(map[string]string{"student_id": studentID, "face_id": faceID}, "", "", nil)
	if err != nil {
		return nil, err
	}
	var out MessageResult
	if err := c.post(ctx, "/commit_face", contentType, body, "Face commit failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFace removes all committed face bindings for a student.
func (c *Client) DeleteFace(ctx context.Context, studentID string) (*MessageResult, error) {
	var out MessageResult
	if err := c.del(ctx, "/delete_face/"+studentID, "Face deletion failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnregisterFace discards a pending (uncommitted) face.
func (c *Client) UnregisterFace(ctx context.Context, faceID string) (*MessageResult, error) {
	var out MessageResult
	if err := c.del(ctx, "/unregister_face/"+faceID, "Unregistered face deletion failed", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnregisteredImage fetches the stored image of a pending face.
func (c *Client) UnregisteredImage(ctx context.Context, faceID string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/unregistered_face/"+faceID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req, "unregistered_face")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, upstreamError(resp, "Image not found")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("face service read image: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &Image{Data: data, ContentType: contentType}, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.roundTrip(req, opName(path), fallback, out)
}

func (c *Client) del(ctx context.Context, path, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.roundTrip(req, opName(path), fallback, out)
}

func (c *Client) roundTrip(req *http.Request, op, fallback string, out any) error {
	resp, err := c.do(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return upstreamError(resp, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("face service decode response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observe(op, resp, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	return resp, nil
}

// upstreamError extracts the service's `detail` field when the body parses
// as JSON, otherwise falls back to the per-operation default message.
func upstreamError(resp *http.Response, fallback string) error {
	var body struct {
		Detail string `json:"detail"`
	}
	detail := fallback
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Detail != "" {
		detail = body.Detail
	}
	return &UpstreamError{Status: resp.StatusCode, Detail: detail}
}

// UpstreamError carries a non-success status from the face service.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("face service error %d: %s", e.Status, e.Detail)
}

// opName strips any trailing path parameter so metric labels stay bounded.
func opName(path string) string {
	p := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// multipartForm builds a multipart body with optional fields plus one file part.
func multipartForm(fields map[string]string, fileField, filename string, file io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(fw, file); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
