package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/constants"
)

// ProcessingTask is one persisted unit of AI work bound to one invoice.
// Rows are created by the upload hook or batch commands, mutated only by
// the task processor, and removed only by the retention cleanup sweep.
type ProcessingTask struct {
	ID        uuid.UUID            `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	InvoiceID uuid.UUID            `gorm:"column:invoice_id;index:idx_tasks_invoice_type;not null" json:"invoice_id"`
	TaskType  constants.TaskType   `gorm:"column:task_type;type:varchar(30);index:idx_tasks_invoice_type;not null" json:"task_type"`
	Status    constants.TaskStatus `gorm:"column:status;type:varchar(20);default:'pending';index:idx_tasks_status_created" json:"status"`

	InputData       datatypes.JSON `gorm:"column:input_data" json:"input_data,omitempty"`
	OutputData      datatypes.JSON `gorm:"column:output_data" json:"output_data,omitempty"`
	ConfidenceScore float64        `gorm:"column:confidence_score;default:0" json:"confidence_score"`

	ErrorMessage string `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	RetryCount   int    `gorm:"column:retry_count;default:0" json:"retry_count"`
	MaxRetries   int    `gorm:"column:max_retries;default:3" json:"max_retries"`

	StartedAt            *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt          *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ProcessingDurationMs *int64     `gorm:"column:processing_duration_ms" json:"processing_duration_ms,omitempty"`

	ModelVersion   string `gorm:"column:ai_model_version;type:varchar(50)" json:"ai_model_version,omitempty"`
	ProcessingNode string `gorm:"column:processing_node;type:varchar(100)" json:"processing_node,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_tasks_status_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProcessingTask) TableName() string { return "processing_tasks" }

func (t *ProcessingTask) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = constants.DefaultMaxRetries
	}
	if t.Status == "" {
		t.Status = constants.TaskStatusPending
	}
	return nil
}

// SetOutput marshals a typed result into the task's output payload.
// Each task type stores its own result shape; callers pass the struct,
// never an untyped map.
func (t *ProcessingTask) SetOutput(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.OutputData = datatypes.JSON(b)
	return nil
}

// DecodeOutput unmarshals the output payload into the given struct.
func (t *ProcessingTask) DecodeOutput(v any) error {
	if len(t.OutputData) == 0 {
		return nil
	}
	return json.Unmarshal(t.OutputData, v)
}
