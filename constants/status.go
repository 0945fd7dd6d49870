package constants

// TaskType identifies the kind of AI work a processing task performs.
type TaskType string

const (
	TaskDataExtraction     TaskType = "data_extraction"
	TaskCategorization     TaskType = "categorization"
	TaskDuplicateDetection TaskType = "duplicate_detection"
	TaskSummaryGeneration  TaskType = "summary_generation"
	TaskVendorExtraction   TaskType = "vendor_extraction"
)

// TaskTypes holds every recognized task type, in declaration order.
var TaskTypes = []TaskType{
	TaskDataExtraction,
	TaskCategorization,
	TaskDuplicateDetection,
	TaskSummaryGeneration,
	TaskVendorExtraction,
}

// IsValidTaskType reports whether t is one of the enumerated task types.
func IsValidTaskType(t TaskType) bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TaskStatus is the canonical status for rows in processing_tasks.
type TaskStatus string

// Stable values (store these exact strings in DB).
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusRetrying   TaskStatus = "retrying"
)

// InvoiceStatus is the human workflow status of an invoice.
type InvoiceStatus string

const (
	InvoicePending    InvoiceStatus = "pending"
	InvoiceProcessing InvoiceStatus = "processing"
	InvoiceProcessed  InvoiceStatus = "processed"
	InvoiceApproved   InvoiceStatus = "approved"
	InvoicePaid       InvoiceStatus = "paid"
	InvoiceRejected   InvoiceStatus = "rejected"
	InvoiceDuplicate  InvoiceStatus = "duplicate"
)

// AI pipeline state on the invoice itself, separate from the human workflow status.
const (
	AIStatusPending    = "pending"
	AIStatusProcessing = "processing"
	AIStatusCompleted  = "completed"
	AIStatusFailed     = "failed"
)

// DefaultMaxRetries bounds how many times a failed task may be re-queued.
const DefaultMaxRetries = 3
