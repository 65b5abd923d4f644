package entity

import (
	"time"

	"appforge/internal/types"
)

// Status is the lifecycle state of a GenerationRecord.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
)

// Draft placeholders used until the analyzer reports a name.
const (
	DraftAppName     = "Generating..."
	FallbackAppName  = "AI Generated App"
	FallbackAppDescr = "An AI-powered application"
)

// GenerationRecord is the persisted outcome of one run.
type GenerationRecord struct {
	ID                     int64              `json:"id"`
	Prompt                 string             `json:"prompt"`
	AppName                string             `json:"appName"`
	Description            string             `json:"description"`
	Files                  []types.FileBundle `json:"files"`
	EnvVars                []types.EnvVarSpec `json:"envVars"`
	DeploymentInstructions string             `json:"deploymentInstructions"`
	Status                 Status             `json:"status"`
	CreatedAt              time.Time          `json:"createdAt"`
}

// NewDraft returns the record a run starts from before anything is persisted.
func NewDraft(prompt string) GenerationRecord {
	return GenerationRecord{
		Prompt:  prompt,
		AppName: DraftAppName,
		Files:   []types.FileBundle{},
		EnvVars: []types.EnvVarSpec{},
		Status:  StatusGenerating,
	}
}

// Normalize replaces nil slices so records always encode files and envVars as arrays.
func (r GenerationRecord) Normalize() GenerationRecord {
	if r.Files == nil {
		r.Files = []types.FileBundle{}
	}
	if r.EnvVars == nil {
		r.EnvVars = []types.EnvVarSpec{}
	}
	if r.Status == "" {
		r.Status = StatusGenerating
	}
	return r
}
