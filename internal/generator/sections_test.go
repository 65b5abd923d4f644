package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/llm"
	"appforge/internal/types"
)

type countingObserver struct {
	stages    []Stage
	fallbacks map[string]int
}

func (c *countingObserver) ObserveStage(s Stage, _ time.Duration) { c.stages = append(c.stages, s) }
func (c *countingObserver) ObserveFallback(section string) {
	if c.fallbacks == nil {
		c.fallbacks = map[string]int{}
	}
	c.fallbacks[section]++
}

func sampleApp() types.AppStructure {
	return types.AppStructure{
		AppName:       "Recipe Box",
		Description:   "Share recipes",
		CoreFeature:   "Recipe suggestions",
		ExamplePrompt: "Suggest a vegan dinner",
		DataModels: []types.DataModel{
			{Name: "Recipe", Fields: []types.Field{
				{Name: "title", Type: types.FieldString},
				{Name: "votes", Type: types.FieldNumber},
				{Name: "isPublic", Type: types.FieldBoolean},
				{Name: "cookedAt", Type: types.FieldDate},
			}},
			{Name: "User", Fields: []types.Field{{Name: "nickname", Type: types.FieldString}}},
		},
	}
}

func paths(files []types.FileBundle) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

func TestFrontendGenerator_FallbackOnFailure(t *testing.T) {
	app := sampleApp()
	obs := &countingObserver{}
	fake := llm.NewFakeClient().Fail(llm.PhaseFrontend, errors.New("timeout"))

	got := NewFrontendGenerator(Deps{Client: fake, Observer: obs}).Generate(context.Background(), app, "recipes")
	assert.Equal(t, FrontendFallback(app), got)
	assert.Equal(t, 1, obs.fallbacks[SectionFrontend])
}

func TestFrontendGenerator_FallbackOnEmpty(t *testing.T) {
	app := sampleApp()
	fake := llm.NewFakeClient().Reply(llm.PhaseFrontend, "```tsx\n\n```")

	got := NewFrontendGenerator(Deps{Client: fake}).Generate(context.Background(), app, "recipes")
	assert.Equal(t, FrontendFallback(app), got)
}

func TestFrontendGenerator_UsesModelOutput(t *testing.T) {
	app := sampleApp()
	fake := llm.NewFakeClient().Reply(llm.PhaseFrontend, "```tsx\nexport default function Home() { return null }\n```")

	got := NewFrontendGenerator(Deps{Client: fake}).Generate(context.Background(), app, "recipes")
	fallback := FrontendFallback(app)
	require.Len(t, got, len(fallback))
	assert.Equal(t, "export default function Home() { return null }", got[0].Content)
	assert.Equal(t, fallback[1:], got[1:])

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 2048, calls[0].Request.MaxTokens)
	assert.Contains(t, calls[0].Request.Messages[0].Content, "App: Recipe Box")
	assert.Equal(t, "Create the main page component for: recipes", calls[0].Request.Messages[1].Content)
}

func TestBackendGenerator_KeepsInteriorFences(t *testing.T) {
	app := sampleApp()
	body := "export const help = `Run:\n```bash\nnpm run dev\n```\n`;"
	fake := llm.NewFakeClient().Reply(llm.PhaseBackend, "```ts\n"+body+"\n```")

	got := NewBackendGenerator(Deps{Client: fake}).Generate(context.Background(), app, "recipes")
	require.NotEmpty(t, got)
	assert.Equal(t, body, got[0].Content)
}

func TestFrontendFallback_Content(t *testing.T) {
	files := FrontendFallback(sampleApp())
	assert.Equal(t, []string{
		"client/src/pages/Home.tsx",
		"client/src/App.tsx",
		"client/src/main.tsx",
		"client/index.html",
		"client/src/index.css",
	}, paths(files))
	assert.Contains(t, files[0].Content, `placeholder="Suggest a vegan dinner"`)
	assert.Contains(t, files[3].Content, "<title>Recipe Box</title>")
	assert.Equal(t, "@tailwind base;\n@tailwind components;\n@tailwind utilities;", files[4].Content)
}

func TestBackendGenerator_FallbackAndBudget(t *testing.T) {
	app := sampleApp()
	fake := llm.NewFakeClient().Fail(llm.PhaseBackend, errors.New("401"))

	got := NewBackendGenerator(Deps{Client: fake}).Generate(context.Background(), app, "recipes")
	assert.Equal(t, BackendFallback(app), got)
	assert.Equal(t, []string{
		"server/routes/generate.ts",
		"server/index.ts",
		"server/routes/payments.ts",
		"server/routes/access.ts",
		"server/routes/settings.ts",
		"server/middleware/auth.ts",
		"server/lib/stripe.ts",
		"server/lib/openai.ts",
	}, paths(got))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1500, calls[0].Request.MaxTokens)
	assert.Contains(t, calls[0].Request.Messages[0].Content, "AI Prompt Example: Suggest a vegan dinner")
	assert.Contains(t, got[0].Content, "checkPayment")
	assert.Contains(t, got[1].Content, "console.log(`Server running on port ${PORT}`);")
}

func TestSchemaGenerator(t *testing.T) {
	files := NewSchemaGenerator().Generate(context.Background(), sampleApp(), "")
	require.Equal(t, []string{"shared/schema.ts", "server/db.ts"}, paths(files))

	schema := files[0].Content
	assert.Contains(t, schema, `export const users = pgTable("users", {`)
	assert.Contains(t, schema, `export const settings = pgTable("settings", {`)
	assert.Contains(t, schema, `export const recipes = pgTable("recipes", {
  id: serial("id").primaryKey(),
  title: text("title"),
  votes: integer("votes"),
  isPublic: boolean("isPublic"),
  cookedAt: text("cookedAt"),
  createdAt: timestamp("created_at").default(sql`+"`CURRENT_TIMESTAMP`"+`).notNull(),
});`)
	// the User model collides with the built-in users table
	assert.Equal(t, 1, strings.Count(schema, "export const users"))
	assert.NotContains(t, schema, "nickname")
}

func TestSchemaGenerator_NoModels(t *testing.T) {
	files := NewSchemaGenerator().Generate(context.Background(), types.DefaultAppStructure(), "")
	assert.Equal(t, 2, strings.Count(files[0].Content, "pgTable("))
}
