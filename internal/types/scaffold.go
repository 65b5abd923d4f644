package types

import (
	"regexp"
	"strings"
)

// FieldType tags a data model field. Unknown tags decode to FieldString.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
)

// ParseFieldType maps a raw type tag to a FieldType, defaulting to string.
func ParseFieldType(raw string) FieldType {
	switch FieldType(strings.ToLower(strings.TrimSpace(raw))) {
	case FieldNumber:
		return FieldNumber
	case FieldBoolean:
		return FieldBoolean
	case FieldDate:
		return FieldDate
	default:
		return FieldString
	}
}

type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description"`
}

type DataModel struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// AppStructure is the analyzed description of the requested app.
// Every field is populated; the analyzer substitutes defaults for gaps.
type AppStructure struct {
	AppName       string      `json:"appName"`
	Description   string      `json:"description"`
	CoreFeature   string      `json:"coreFeature"`
	ExamplePrompt string      `json:"examplePrompt"`
	DataModels    []DataModel `json:"dataModels"`
}

const (
	DefaultAppName       = "AI App"
	DefaultDescription   = "An AI-powered application"
	DefaultCoreFeature   = "AI text generation"
	DefaultExamplePrompt = "Generate something creative"
)

// DefaultAppStructure is returned whenever the analyzer cannot use the model reply.
func DefaultAppStructure() AppStructure {
	return AppStructure{
		AppName:       DefaultAppName,
		Description:   DefaultDescription,
		CoreFeature:   DefaultCoreFeature,
		ExamplePrompt: DefaultExamplePrompt,
		DataModels:    []DataModel{},
	}
}

// FileBundle is one generated source file.
type FileBundle struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

type EnvVarSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Example     string `json:"example,omitempty"`
}

var (
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slug lowercases name, joins whitespace runs with "-" and drops anything
// outside [a-z0-9-]. "My Cool App!" becomes "my-cool-app".
func Slug(name string) string {
	s := strings.ToLower(name)
	s = slugSpaces.ReplaceAllString(s, "-")
	return slugInvalid.ReplaceAllString(s, "")
}
