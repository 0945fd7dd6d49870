package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kynth65/ai-invoice-management/constants"
	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
	"github.com/kynth65/ai-invoice-management/internal/repository"
)

// uploadInvoice stores the document, creates the invoice record, and
// queues a data_extraction task for it. The AI pipeline picks the task
// up on the next runner tick; nothing here blocks on the model.
func (s *Server) uploadInvoice(c *gin.Context) {
	userID, err := uuid.Parse(c.PostForm("user_id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_USER_ID", "user_id must be a valid UUID", common.ErrInvalidInput))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, common.NewAppError("FILE_REQUIRED", "multipart field 'file' is required", common.ErrInvalidInput))
		return
	}
	if file.Size > s.cfg.Storage.MaxFileSize {
		s.respondError(c, common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.Storage.MaxFileSize), common.ErrInvalidInput))
		return
	}
	if !constants.IsSupportedFile(file.Filename) {
		s.respondError(c, common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("unsupported file format: %s", constants.FileExt(file.Filename)), common.ErrInvalidInput))
		return
	}

	ext := constants.FileExt(file.Filename)
	if err := os.MkdirAll(s.cfg.Storage.UploadDir, 0o755); err != nil {
		s.respondError(c, common.WrapError(err, "create upload dir"))
		return
	}
	dest := filepath.Join(s.cfg.Storage.UploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, dest); err != nil {
		s.respondError(c, common.WrapError(err, "store upload"))
		return
	}

	inv := &entity.Invoice{
		UserID:   userID,
		FilePath: dest,
		FileType: ext,
		FileSize: file.Size,
	}
	if err := s.invoices.Create(c.Request.Context(), inv); err != nil {
		s.respondError(c, err)
		return
	}

	task := &entity.ProcessingTask{
		InvoiceID: inv.ID,
		TaskType:  constants.TaskDataExtraction,
	}
	if err := s.tasks.Create(c.Request.Context(), task); err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info("invoice.uploaded",
		"invoice_id", inv.ID,
		"user_id", userID,
		"file", file.Filename,
		"task_id", task.ID,
	)
	c.JSON(http.StatusCreated, gin.H{"invoice": inv, "task_id": task.ID})
}

func (s *Server) listInvoices(c *gin.Context) {
	filter := repository.InvoiceFilter{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(c, common.NewAppError("INVALID_USER_ID", "user_id must be a valid UUID", common.ErrInvalidInput))
			return
		}
		filter.UserID = id
	}

	invoices, err := s.invoices.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices, "count": len(invoices)})
}

func (s *Server) getInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	inv, err := s.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// processInvoice queues a fresh extraction plus a duplicate check for an
// existing invoice, e.g. after its file was replaced or the first pass
// failed terminally.
func (s *Server) processInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	inv, err := s.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	queued := make([]uuid.UUID, 0, 2)
	for _, taskType := range []constants.TaskType{constants.TaskDataExtraction, constants.TaskDuplicateDetection} {
		task := &entity.ProcessingTask{InvoiceID: inv.ID, TaskType: taskType}
		if err := s.tasks.Create(c.Request.Context(), task); err != nil {
			s.respondError(c, err)
			return
		}
		queued = append(queued, task.ID)
	}

	c.JSON(http.StatusAccepted, gin.H{"invoice_id": inv.ID, "task_ids": queued})
}

func (s *Server) markInvoicePaid(c *gin.Context) {
	s.setInvoiceStatus(c, constants.InvoicePaid)
}

func (s *Server) markInvoiceDuplicate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	inv, err := s.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	inv.IsDuplicate = true
	inv.Status = constants.InvoiceDuplicate
	if raw := c.Query("duplicate_of"); raw != "" {
		dupID, perr := uuid.Parse(raw)
		if perr != nil {
			s.respondError(c, common.NewAppError("INVALID_ID", "duplicate_of must be a valid UUID", common.ErrInvalidInput))
			return
		}
		inv.DuplicateOfID = &dupID
	}
	if err := s.invoices.Save(c.Request.Context(), inv); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) setInvoiceStatus(c *gin.Context, status constants.InvoiceStatus) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewAppError("INVALID_ID", "id must be a valid UUID", common.ErrInvalidInput))
		return
	}
	inv, err := s.invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	inv.Status = status
	if err := s.invoices.Save(c.Request.Context(), inv); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) exportInvoices(c *gin.Context) {
	filter := repository.InvoiceFilter{Status: c.Query("status")}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(c, common.NewAppError("INVALID_USER_ID", "user_id must be a valid UUID", common.ErrInvalidInput))
			return
		}
		filter.UserID = id
	}

	data, err := s.export.InvoicesXLSX(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := s.export.Filename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
