package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kynth65/ai-invoice-management/constants"
	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
	"github.com/kynth65/ai-invoice-management/internal/export"
	"github.com/kynth65/ai-invoice-management/internal/extractor"
	"github.com/kynth65/ai-invoice-management/internal/llm"
	"github.com/kynth65/ai-invoice-management/internal/processor"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

type stubFields struct{ fields llm.InvoiceFields }

func (s *stubFields) ExtractInvoiceData(context.Context, string, []string) llm.InvoiceFields {
	return s.fields
}

type stubDupes struct{ verdict llm.DuplicateVerdict }

func (s *stubDupes) DetectDuplicates(context.Context, llm.InvoiceSummary, []llm.InvoiceSummary) llm.DuplicateVerdict {
	return s.verdict
}

type testEnv struct {
	router   *gin.Engine
	invoices repository.InvoiceRepository
	tasks    repository.TaskRepository
	vendors  repository.VendorRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)

	cfg := &common.Config{}
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.MaxFileSize = 1 << 20
	cfg.Queue.MaxTasks = 10
	cfg.Queue.CronSchedule = "@every 1m"

	invoices := repository.NewInvoiceRepository(db)
	tasks := repository.NewTaskRepository(db)
	vendors := repository.NewVendorRepository(db)

	proc := processor.New(tasks, invoices, vendors, extractor.New(nil),
		&stubFields{fields: llm.DefaultInvoiceFields()}, &stubDupes{}, "test-model", nil)
	runner := processor.NewRunner(tasks, proc, nil)
	exportSvc := export.NewService(invoices, nil)

	srv := New(cfg, invoices, tasks, vendors, runner, exportSvc, nil)
	return &testEnv{
		router:   srv.Router(),
		invoices: invoices,
		tasks:    tasks,
		vendors:  vendors,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func uploadBody(t *testing.T, userID, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("user_id", userID))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUploadQueuesExtractionTask(t *testing.T) {
	env := newTestEnv(t)
	userID := uuid.New().String()

	body, ct := uploadBody(t, userID, "invoice.txt", "INVOICE #1\nTotal: $10")
	w := env.do(t, http.MethodPost, "/api/v1/invoices/upload", body, ct)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Invoice entity.Invoice `json:"invoice"`
		TaskID  uuid.UUID      `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, userID, resp.Invoice.UserID.String())
	require.Equal(t, ".txt", resp.Invoice.FileType)

	task, err := env.tasks.GetByID(context.Background(), resp.TaskID)
	require.NoError(t, err)
	require.Equal(t, constants.TaskDataExtraction, task.TaskType)
	require.Equal(t, constants.TaskStatusPending, task.Status)
	require.Equal(t, resp.Invoice.ID, task.InvoiceID)
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	body, ct := uploadBody(t, uuid.New().String(), "invoice.exe", "MZ")
	w := env.do(t, http.MethodPost, "/api/v1/invoices/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "UNSUPPORTED_FORMAT")
}

func TestUploadRejectsBadUserID(t *testing.T) {
	env := newTestEnv(t)
	body, ct := uploadBody(t, "not-a-uuid", "invoice.txt", "x")
	w := env.do(t, http.MethodPost, "/api/v1/invoices/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoiceNotFound(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/invoices/"+uuid.New().String(), nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkInvoicePaid(t *testing.T) {
	env := newTestEnv(t)
	inv := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, env.invoices.Create(context.Background(), inv))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/mark-paid", inv.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, constants.InvoicePaid, got.Status)
}

func TestMarkInvoiceDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	original := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, env.invoices.Create(ctx, original))
	dup := &entity.Invoice{UserID: original.UserID}
	require.NoError(t, env.invoices.Create(ctx, dup))

	path := fmt.Sprintf("/api/v1/invoices/%s/mark-duplicate?duplicate_of=%s", dup.ID, original.ID)
	w := env.do(t, http.MethodPost, path, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.invoices.GetByID(ctx, dup.ID)
	require.NoError(t, err)
	require.True(t, got.IsDuplicate)
	require.Equal(t, constants.InvoiceDuplicate, got.Status)
	require.NotNil(t, got.DuplicateOfID)
	require.Equal(t, original.ID, *got.DuplicateOfID)
}

func TestProcessInvoiceQueuesBothTasks(t *testing.T) {
	env := newTestEnv(t)
	inv := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, env.invoices.Create(context.Background(), inv))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%s/process", inv.ID), nil, "")
	require.Equal(t, http.StatusAccepted, w.Code)

	stats, err := env.tasks.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Pending)
}

func TestTaskStatsAndQueueStatus(t *testing.T) {
	env := newTestEnv(t)
	inv := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, env.invoices.Create(context.Background(), inv))
	require.NoError(t, env.tasks.Create(context.Background(), &entity.ProcessingTask{
		InvoiceID: inv.ID, TaskType: constants.TaskDataExtraction,
	}))

	w := env.do(t, http.MethodGet, "/api/v1/tasks/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats repository.TaskStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.Pending)

	w = env.do(t, http.MethodGet, "/api/v1/tasks/queue-status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"pending":1`)
}

func TestRetryTaskConflict(t *testing.T) {
	env := newTestEnv(t)
	inv := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, env.invoices.Create(context.Background(), inv))
	task := &entity.ProcessingTask{InvoiceID: inv.ID, TaskType: constants.TaskDataExtraction}
	require.NoError(t, env.tasks.Create(context.Background(), task))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/retry", task.ID), nil, "")
	require.Equal(t, http.StatusConflict, w.Code, "pending tasks cannot be retried")
}

func TestRunQueueEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/tasks/run", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"attempted":0`)
}

func TestExportInvoices(t *testing.T) {
	env := newTestEnv(t)
	inv := &entity.Invoice{UserID: uuid.New(), InvoiceNumber: "INV-1"}
	require.NoError(t, env.invoices.Create(context.Background(), inv))

	w := env.do(t, http.MethodGet, "/api/v1/invoices/export", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "invoices-")
	require.NotEmpty(t, w.Body.Bytes())
}

func TestTopVendors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vendor := &entity.Vendor{Name: "Acme Inc"}
	require.NoError(t, env.vendors.Create(ctx, vendor))
	require.NoError(t, env.invoices.Create(ctx, &entity.Invoice{UserID: uuid.New(), VendorID: &vendor.ID}))

	w := env.do(t, http.MethodGet, "/api/v1/vendors/top", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Acme Inc")
}
