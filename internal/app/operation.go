package app

import "ddbackup/internal/journal"

// Operation tracks one CLI invocation. Its ID tags every log line written
// while the invocation runs.
type Operation struct {
	ID        string
	Operation string
	Status    string // "success" or "error"
}

// NewOperation creates an operation with a fresh ID from idgen.
func NewOperation(operation string, idgen journal.IDGenerator) *Operation {
	return &Operation{
		ID:        idgen.New(),
		Operation: operation,
		Status:    "success",
	}
}

// Fail marks the operation as failed. A nil err leaves it unchanged.
func (op *Operation) Fail(err error) {
	if err != nil {
		op.Status = "error"
	}
}

// Failed returns true if any step of the operation failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
