package generator

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"appforge/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// JSX sources use {{ }} for inline objects, so templates use <% %> delimiters.
var tmpl = template.Must(
	template.New("appforge").Delims("<%", "%>").ParseFS(templateFS, "templates/*.tmpl"),
)

// render executes a bundled template. Template data is always one of the
// views below, so an execution error means the template itself is broken.
func render(name string, data any) string {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name+".tmpl", data); err != nil {
		panic(fmt.Sprintf("generator: render %s: %v", name, err))
	}
	return b.String()
}

type appView struct {
	AppName       string
	Description   string
	ExamplePrompt string
	PackageName   string
}

func viewOf(app types.AppStructure) appView {
	return appView{
		AppName:       app.AppName,
		Description:   app.Description,
		ExamplePrompt: app.ExamplePrompt,
		PackageName:   types.Slug(app.AppName),
	}
}

type schemaView struct {
	Tables []tableView
}

type tableView struct {
	Name    string
	Columns []columnView
}

type columnView struct {
	Name string
	Type string
}
