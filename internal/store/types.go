package store

import (
	"time"

	"github.com/abramin/launchargs/internal/model"
)

// ResolutionID is a type-safe identifier for resolutions.
type ResolutionID string

// Resolution is one recorded resolution attempt.
type Resolution struct {
	ID          ResolutionID    `json:"id"`
	Project     string          `json:"project,omitempty"`
	Level       model.TestLevel `json:"level"`
	Kind        model.TestKind  `json:"kind"`
	TestNames   []string        `json:"test_names"`
	MainClass   string          `json:"main_class,omitempty"`
	ProgramArgs []string        `json:"program_args,omitempty"`
	Error       string          `json:"error,omitempty"` // Empty on success
	CreatedAt   time.Time       `json:"created_at"`
}

// Failed reports whether the attempt produced no arguments.
func (r *Resolution) Failed() bool {
	return r.Error != ""
}
