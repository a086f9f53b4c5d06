package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/model"
)

var stamp = model.Stamp{ID: "20250401_090000", Date: "2025-04-01"}

// 模板里的 JSON 示例本身必须是合法 JSON
func exampleJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	start := strings.Index(out, "{\n  \"id\"")
	require.GreaterOrEqual(t, start, 0)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &v))
	return v
}

func TestBuild_Default(t *testing.T) {
	out, err := NewBuilder(false).Build(stamp)
	require.NoError(t, err)

	assert.Contains(t, out, "2025-04-01 の日本の経済")
	v := exampleJSON(t, out)
	assert.Equal(t, "20250401_090000", v["id"])
	assert.Equal(t, "2025-04-01", v["date"])
	assert.NotContains(t, v, "descriptions")
	for _, k := range []string{"titles", "contents", "mermaid", "glossary"} {
		assert.Contains(t, v, k)
	}
}

func TestBuild_WithDescriptions(t *testing.T) {
	out, err := NewBuilder(true).Build(stamp)
	require.NoError(t, err)
	assert.Contains(t, exampleJSON(t, out), "descriptions")
}

func TestLoadBuilder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("date={{.Date}} id={{.ID}} desc={{.WithDescriptions}}"), 0o644))

	b, err := LoadBuilder(path, true)
	require.NoError(t, err)
	out, err := b.Build(stamp)
	require.NoError(t, err)
	assert.Equal(t, "date=2025-04-01 id=20250401_090000 desc=true", out)

	_, err = LoadBuilder(filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("{{.Date"), 0o644))
	_, err = LoadBuilder(bad, false)
	assert.Error(t, err)
}
