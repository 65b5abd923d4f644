// Package run bridges generation events to a client stream and persists the
// run's record as events arrive.
package run

import (
	"bytes"

	"appforge/internal/gateway/entity"
	"appforge/internal/types"
	"appforge/internal/util/jsonutil"
)

type FrameType string

const (
	FrameStatus                 FrameType = "status"
	FrameAppInfo                FrameType = "appInfo"
	FrameFiles                  FrameType = "files"
	FrameEnvVars                FrameType = "envVars"
	FrameDeploymentInstructions FrameType = "deploymentInstructions"
	FrameComplete               FrameType = "complete"
	FrameError                  FrameType = "error"
)

// Frame is one unit of the outbound stream.
type Frame struct {
	Type FrameType `json:"type"`

	Step      string `json:"step,omitempty"`
	Completed string `json:"completed,omitempty"`

	AppName     string `json:"appName,omitempty"`
	Description string `json:"description,omitempty"`
	AppID       int64  `json:"appId,omitempty"`

	Files        []types.FileBundle `json:"files,omitempty"`
	EnvVars      []types.EnvVarSpec `json:"envVars,omitempty"`
	Instructions string             `json:"instructions,omitempty"`

	App *entity.GenerationRecord `json:"app,omitempty"`

	Message string `json:"message,omitempty"`
}

// Terminal reports whether no frame follows f.
func (f Frame) Terminal() bool {
	return f.Type == FrameComplete || f.Type == FrameError
}

// EncodeSSE renders f as a "data: <json>" line followed by a blank line.
func EncodeSSE(f Frame) ([]byte, error) {
	payload, err := jsonutil.MarshalNoEscape(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
