package enhancements

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-enhancer/internal/llm"
	"resume-enhancer/internal/shared/server/middleware"
)

func setupEnhancementRouter(t *testing.T, client llm.Client) (*gin.Engine, *Service, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, repo := newTestService(client)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Owner(), middleware.Recovery())
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router, svc, repo
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestCreateEnhancementWait(t *testing.T) {
	router, _, _ := setupEnhancementRouter(t, staticLLM(`{"enhanced_content":"Polished","score":9}`))

	resp := postJSON(t, router, "/api/v1/enhancements?wait=true", map[string]string{
		"sourceDocumentId": "doc-1",
		"ownerId":          "owner-1",
		"content":          "Rough resume",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", rec.Status)
	}
	if rec.EnhancedContent != "Polished" || rec.Score != 9 {
		t.Fatalf("unexpected result: %+v", rec.Result)
	}
	if len(rec.Suggestions) != 1 {
		t.Fatalf("expected placeholder suggestion, got %v", rec.Suggestions)
	}
}

func TestCreateEnhancementAsync(t *testing.T) {
	router, svc, repo := setupEnhancementRouter(t, staticLLM(`{"score":4}`))

	resp := postJSON(t, router, "/api/v1/enhancements", map[string]string{
		"sourceDocumentId": "doc-1",
		"ownerId":          "owner-1",
		"content":          "Rough resume",
	})
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", resp.Code)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || created.Status != StatusProcessing {
		t.Fatalf("unexpected create response: %+v", created)
	}
	if got := resp.Header().Get("Location"); got != "/api/v1/enhancements/"+created.ID {
		t.Fatalf("expected Location of the record, got %q", got)
	}

	svc.Wait()
	rec, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Status != StatusCompleted || rec.Score != 4 {
		t.Fatalf("unexpected stored record: status=%s score=%v", rec.Status, rec.Score)
	}
}

func TestCreateEnhancementUsesOwnerHeader(t *testing.T) {
	router, _, repo := setupEnhancementRouter(t, staticLLM("{}"))

	body, _ := json.Marshal(map[string]string{"sourceDocumentId": "doc-1", "content": "text"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhancements?wait=1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OwnerHeader, "owner-h")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	recs, err := repo.ListByOwner(context.Background(), "owner-h", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record for header owner, got %d", len(recs))
	}
}

func TestCreateEnhancementValidation(t *testing.T) {
	router, _, _ := setupEnhancementRouter(t, staticLLM("{}"))

	cases := []map[string]string{
		{"ownerId": "owner-1", "content": "text"},
		{"sourceDocumentId": "doc-1", "content": "text"},
		{"sourceDocumentId": "doc-1", "ownerId": "owner-1", "content": "   "},
	}
	for _, payload := range cases {
		resp := postJSON(t, router, "/api/v1/enhancements", payload)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: expected 400, got %d", payload, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "validation_error") {
			t.Fatalf("expected validation_error code, got %s", resp.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhancements", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", resp.Code)
	}
}

func TestCreateEnhancementFailedRunStillReturnsRecord(t *testing.T) {
	router, _, _ := setupEnhancementRouter(t, failingLLM(&llm.NetworkError{StatusCode: 502}))

	resp := postJSON(t, router, "/api/v1/enhancements?wait=true", map[string]string{
		"sourceDocumentId": "doc-1",
		"ownerId":          "owner-1",
		"content":          "Rough resume",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Status != StatusFailed || rec.Score != 0 || rec.EnhancedContent != "Rough resume" {
		t.Fatalf("unexpected failed record: %+v", rec)
	}
}

func TestCreateEnhancementFromUpload(t *testing.T) {
	var got string
	router, _, _ := setupEnhancementRouter(t, llm.ClientFunc(func(ctx context.Context, content string) (string, error) {
		got = content
		return "{}", nil
	}))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("sourceDocumentId", "doc-9")
	_ = writer.WriteField("ownerId", "owner-1")
	fileWriter, err := writer.CreateFormFile("file", "resume.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("Jane Doe\nGo developer\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhancements?wait=true", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got != "Jane Doe\nGo developer" {
		t.Fatalf("unexpected content sent upstream: %q", got)
	}
}

func TestCreateEnhancementRejectsUnsupportedUpload(t *testing.T) {
	router, _, _ := setupEnhancementRouter(t, staticLLM("{}"))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("sourceDocumentId", "doc-9")
	_ = writer.WriteField("ownerId", "owner-1")
	fileWriter, _ := writer.CreateFormFile("file", "photo.png")
	_, _ = fileWriter.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhancements", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGetAndListEnhancements(t *testing.T) {
	router, svc, _ := setupEnhancementRouter(t, staticLLM("{}"))
	ctx := context.Background()

	first, err := svc.Enhance(ctx, "doc-1", "owner-1", "one")
	if err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if _, err := svc.Enhance(ctx, "doc-1", "owner-1", "two"); err != nil {
		t.Fatalf("enhance: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/enhancements/"+first.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got Record
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != first.ID || got.OriginalContent != "one" {
		t.Fatalf("unexpected record: %+v", got)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/enhancements/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/enhancements?ownerId=owner-1&limit=1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 || page.Limit != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/enhancements", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without owner, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/enhancements", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var bySource listResponse
	if err := json.NewDecoder(resp.Body).Decode(&bySource); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bySource.Items) != 2 {
		t.Fatalf("expected 2 records for source, got %d", len(bySource.Items))
	}
}

func TestCreateEnhancementUploadDefaultsSourceToFileName(t *testing.T) {
	router, _, repo := setupEnhancementRouter(t, staticLLM("{}"))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("ownerId", "owner-1")
	fileWriter, _ := writer.CreateFormFile("file", "My Resume.md")
	_, _ = fileWriter.Write([]byte("# Jane Doe"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhancements?wait=true", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	recs, err := repo.ListBySource(context.Background(), "My-Resume.md")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected record under derived source id, got %d", len(recs))
	}
}
