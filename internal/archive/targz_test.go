package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/types"
)

func TestWriteTarGz_RoundTrip(t *testing.T) {
	files := []types.FileBundle{
		{Path: "package.json", Content: `{"name":"x"}`},
		{Path: "client/src/App.tsx", Content: "export default 1"},
		{Path: "../../etc/passwd", Content: "nope"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTarGz(&buf, "recipe-box", files, time.Unix(0, 0)))

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	got := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		got[hdr.Name] = string(body)
	}
	assert.Equal(t, map[string]string{
		"recipe-box/package.json":       `{"name":"x"}`,
		"recipe-box/client/src/App.tsx": "export default 1",
		"recipe-box/etc/passwd":         "nope",
	}, got)
}

func TestSafePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a/b.ts", "a/b.ts", true},
		{"/abs/x", "abs/x", true},
		{"../up", "up", true},
		{`win\path.ts`, "win/path.ts", true},
		{"", "", false},
		{"..", "", false},
	}
	for _, tc := range cases {
		got, ok := SafePath(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
