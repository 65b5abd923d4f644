package generator

import (
	"context"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"appforge/internal/llm"
	llmclient "appforge/internal/llm/client"
	"appforge/internal/types"
	"appforge/internal/util/jsonutil"
)

const analyzerMaxTokens = 1024

const analyzerInstruction = `You are an expert app architect. Analyze the user's app idea and output a JSON structure.
Return ONLY valid JSON with this exact structure:
{
  "appName": "string - concise, catchy name for the app",
  "description": "string - one sentence description",
  "coreFeature": "string - the main AI-powered feature users interact with",
  "aiPromptExample": "string - example prompt a user might enter in this app",
  "dataModels": [
    {
      "name": "string - model name in PascalCase",
      "fields": [
        { "name": "string", "type": "string|number|boolean|date", "description": "string" }
      ]
    }
  ]
}`

// Analyzer turns a free-text prompt into an AppStructure.
type Analyzer struct {
	client llmclient.CompletionClient
	log    zerolog.Logger
	obs    Observer
}

func NewAnalyzer(d Deps) *Analyzer {
	d = d.withDefaults()
	return &Analyzer{client: d.Client, log: d.Logger, obs: d.Observer}
}

// Analyze never fails: a failed call or unusable reply yields DefaultAppStructure.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) types.AppStructure {
	out, err := a.client.Complete(llm.WithPhase(ctx, llm.PhaseAnalyze), llmclient.Request{
		Messages: []llmclient.Message{
			{Role: llmclient.RoleSystem, Content: analyzerInstruction},
			{Role: llmclient.RoleUser, Content: prompt},
		},
		MaxTokens: analyzerMaxTokens,
	})
	if err != nil {
		a.log.Warn().Err(err).Str("section", SectionAnalyze).Msg("analyzer call failed, using defaults")
		a.obs.ObserveFallback(SectionAnalyze)
		return types.DefaultAppStructure()
	}
	app, ok := DecodeAppStructure(out)
	if !ok {
		a.log.Warn().Str("section", SectionAnalyze).Int("bytes", len(out)).Msg("analyzer reply unparseable, using defaults")
		a.obs.ObserveFallback(SectionAnalyze)
	}
	return app
}

// DecodeAppStructure leniently decodes a model reply. Fields that are absent,
// blank or wrong-typed take their default. ok is false when the reply is not a
// JSON object at all, in which case the full default structure is returned.
func DecodeAppStructure(raw string) (types.AppStructure, bool) {
	def := types.DefaultAppStructure()
	cleaned := jsonutil.StripCodeFences(raw)
	if !gjson.Valid(cleaned) {
		return def, false
	}
	root := gjson.Parse(cleaned)
	if !root.IsObject() {
		return def, false
	}

	out := types.AppStructure{
		AppName:       displayOr(root.Get("appName"), def.AppName),
		Description:   displayOr(root.Get("description"), def.Description),
		CoreFeature:   stringOr(root.Get("coreFeature"), def.CoreFeature),
		ExamplePrompt: displayOr(firstPresent(root, "examplePrompt", "aiPromptExample"), def.ExamplePrompt),
		DataModels:    def.DataModels,
	}
	if models := root.Get("dataModels"); models.IsArray() {
		out.DataModels = decodeModels(models)
	}
	return out, true
}

func firstPresent(root gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := root.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func stringOr(r gjson.Result, def string) string {
	if r.Type != gjson.String {
		return def
	}
	if s := strings.TrimSpace(r.Str); s != "" {
		return s
	}
	return def
}

// displayOr is stringOr for text rendered into HTML, JSX and markdown. It
// drops markup and quoting characters and folds whitespace runs.
func displayOr(r gjson.Result, def string) string {
	s := strings.Map(func(c rune) rune {
		switch {
		case strings.ContainsRune("<>{}\"`\\", c):
			return -1
		case unicode.IsSpace(c):
			return ' '
		case unicode.IsControl(c):
			return -1
		}
		return c
	}, stringOr(r, ""))
	if s = strings.Join(strings.Fields(s), " "); s != "" {
		return s
	}
	return def
}

func decodeModels(arr gjson.Result) []types.DataModel {
	models := []types.DataModel{}
	seen := map[string]bool{}
	for _, m := range arr.Array() {
		if !m.IsObject() {
			continue
		}
		name := identifier(stringOr(m.Get("name"), ""))
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		models = append(models, types.DataModel{Name: name, Fields: decodeFields(m.Get("fields"))})
	}
	return models
}

func decodeFields(arr gjson.Result) []types.Field {
	fields := []types.Field{}
	if !arr.IsArray() {
		return fields
	}
	seen := map[string]bool{}
	for _, f := range arr.Array() {
		if !f.IsObject() {
			continue
		}
		name := identifier(stringOr(f.Get("name"), ""))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, types.Field{
			Name:        name,
			Type:        types.ParseFieldType(stringOr(f.Get("type"), "")),
			Description: stringOr(f.Get("description"), ""),
		})
	}
	return fields
}

// identifier keeps ASCII letters, digits and underscores, and prefixes a
// leading digit with "_". "Recipe Item" becomes "RecipeItem".
func identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
