package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"appforge/internal/llm"
	llmclient "appforge/internal/llm/client"
	"appforge/internal/types"
	"appforge/internal/util/jsonutil"
)

// SectionGenerator produces one group of files. Generate never fails; an
// unusable completion is replaced by the section's static fallback.
type SectionGenerator interface {
	Section() string
	Generate(ctx context.Context, app types.AppStructure, prompt string) []types.FileBundle
}

// ---- schema

// SchemaGenerator derives the drizzle schema from the data models. No model call.
type SchemaGenerator struct{}

func NewSchemaGenerator() *SchemaGenerator { return &SchemaGenerator{} }

func (SchemaGenerator) Section() string { return SectionSchema }

func (SchemaGenerator) Generate(_ context.Context, app types.AppStructure, _ string) []types.FileBundle {
	return []types.FileBundle{
		{Path: "shared/schema.ts", Content: render("schema.ts", schemaViewOf(app.DataModels)), Language: "typescript"},
		{Path: "server/db.ts", Content: render("db.ts", nil), Language: "typescript"},
	}
}

// reservedTables are always present in the generated schema.
var reservedTables = map[string]bool{"users": true, "settings": true}

func schemaViewOf(models []types.DataModel) schemaView {
	v := schemaView{Tables: []tableView{}}
	taken := map[string]bool{}
	for _, m := range models {
		name := strings.ToLower(m.Name) + "s"
		if reservedTables[name] || taken[name] {
			continue
		}
		taken[name] = true
		t := tableView{Name: name}
		for _, f := range m.Fields {
			t.Columns = append(t.Columns, columnView{Name: f.Name, Type: columnType(f.Type)})
		}
		v.Tables = append(v.Tables, t)
	}
	return v
}

func columnType(t types.FieldType) string {
	switch t {
	case types.FieldNumber:
		return "integer"
	case types.FieldBoolean:
		return "boolean"
	default:
		return "text"
	}
}

// ---- completion backed sections

type completionSection struct {
	section   string
	phase     string
	maxTokens int
	client    llmclient.CompletionClient
	log       zerolog.Logger
	obs       Observer

	instruction func(app types.AppStructure) string
	userPrompt  func(prompt string) string
	fallback    func(app types.AppStructure) []types.FileBundle
}

func (g *completionSection) Section() string { return g.section }

// Generate asks the model for the first bundle of the fallback set and keeps
// the remaining support files as they are.
func (g *completionSection) Generate(ctx context.Context, app types.AppStructure, prompt string) []types.FileBundle {
	files := g.fallback(app)
	out, err := g.client.Complete(llm.WithPhase(ctx, g.phase), llmclient.Request{
		Messages: []llmclient.Message{
			{Role: llmclient.RoleSystem, Content: g.instruction(app)},
			{Role: llmclient.RoleUser, Content: g.userPrompt(prompt)},
		},
		MaxTokens: g.maxTokens,
	})
	if err == nil {
		out = jsonutil.UnwrapCodeFence(out)
		if out == "" {
			err = llmclient.ErrEmptyCompletion
		}
	}
	if err != nil {
		g.log.Warn().Err(err).Str("section", g.section).Str("path", files[0].Path).Msg("using fallback bundle")
		g.obs.ObserveFallback(g.section)
		return files
	}
	files[0].Content = out
	return files
}

// ---- frontend

const frontendMaxTokens = 2048

func NewFrontendGenerator(d Deps) SectionGenerator {
	d = d.withDefaults()
	return &completionSection{
		section:     SectionFrontend,
		phase:       llm.PhaseFrontend,
		maxTokens:   frontendMaxTokens,
		client:      d.Client,
		log:         d.Logger,
		obs:         d.Observer,
		instruction: frontendInstruction,
		userPrompt:  func(p string) string { return "Create the main page component for: " + p },
		fallback:    FrontendFallback,
	}
}

func frontendInstruction(app types.AppStructure) string {
	return fmt.Sprintf(`You are an expert React developer. Generate the main React component for this app.
App: %s
Description: %s
Core Feature: %s

Generate a SINGLE React component that:
1. Has a clean, modern UI with Tailwind CSS
2. Includes an input/textarea for the AI prompt
3. Has a submit button
4. Shows loading state while processing
5. Displays the AI response beautifully
6. Handles errors gracefully
7. Includes payment check - if user hasn't paid, shows upgrade prompt

Output ONLY the React component code, no markdown, no explanation.
Use modern React with hooks. Import from "react".
Use fetch to call "/api/generate" endpoint.
Check "/api/access" to verify payment status.`, app.AppName, app.Description, app.CoreFeature)
}

// FrontendFallback is the complete frontend bundle used when the model output is unusable.
func FrontendFallback(app types.AppStructure) []types.FileBundle {
	v := viewOf(app)
	return []types.FileBundle{
		{Path: "client/src/pages/Home.tsx", Content: render("home_fallback.tsx", v), Language: "tsx"},
		{Path: "client/src/App.tsx", Content: render("app.tsx", v), Language: "tsx"},
		{Path: "client/src/main.tsx", Content: render("main.tsx", v), Language: "tsx"},
		{Path: "client/index.html", Content: render("index.html", v), Language: "html"},
		{Path: "client/src/index.css", Content: render("index.css", v), Language: "css"},
	}
}

// ---- backend

const backendMaxTokens = 1500

func NewBackendGenerator(d Deps) SectionGenerator {
	d = d.withDefaults()
	return &completionSection{
		section:     SectionBackend,
		phase:       llm.PhaseBackend,
		maxTokens:   backendMaxTokens,
		client:      d.Client,
		log:         d.Logger,
		obs:         d.Observer,
		instruction: backendInstruction,
		userPrompt:  func(p string) string { return "Create the AI generation endpoint for: " + p },
		fallback:    BackendFallback,
	}
}

func backendInstruction(app types.AppStructure) string {
	return fmt.Sprintf(`You are an expert Node.js/Express developer. Generate the AI generation endpoint.
App: %s
Core Feature: %s
AI Prompt Example: %s

Generate an Express route handler for POST /api/generate that:
1. Takes user input from request body
2. Calls OpenAI API using chat.completions.create with gpt-4o-mini model
3. Returns clean plain-text output from response.choices[0].message.content
4. Implements token limits (max_tokens: 2048)
5. Handles errors gracefully
6. Checks payment status before processing

Output ONLY the route handler code, no markdown.
Use modern ES modules. Import OpenAI from "openai".`, app.AppName, app.CoreFeature, app.ExamplePrompt)
}

// BackendFallback is the complete backend bundle used when the model output is unusable.
func BackendFallback(app types.AppStructure) []types.FileBundle {
	v := viewOf(app)
	return []types.FileBundle{
		{Path: "server/routes/generate.ts", Content: render("generate_fallback.ts", v), Language: "typescript"},
		{Path: "server/index.ts", Content: render("server_index.ts", v), Language: "typescript"},
		{Path: "server/routes/payments.ts", Content: render("payments.ts", v), Language: "typescript"},
		{Path: "server/routes/access.ts", Content: render("access.ts", v), Language: "typescript"},
		{Path: "server/routes/settings.ts", Content: render("settings.ts", v), Language: "typescript"},
		{Path: "server/middleware/auth.ts", Content: render("auth.ts", v), Language: "typescript"},
		{Path: "server/lib/stripe.ts", Content: render("stripe.ts", v), Language: "typescript"},
		{Path: "server/lib/openai.ts", Content: render("openai.ts", v), Language: "typescript"},
	}
}
