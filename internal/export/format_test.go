package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/untoldecay/InstructionLog/internal/types"
)

func sampleRecords() []types.ExportRecord {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []types.ExportRecord{
		{
			Name:             "mobile-mode",
			Title:            "Mobile Mode",
			Content:          "Be terse.\nUse <short> answers & lists.",
			Category:         "modes",
			Version:          3,
			VersionTag:       types.TagStable,
			ArchivedVersions: 2,
			CreatedAt:        &created,
		},
		{Name: "plain", Title: "Plain", Content: ""},
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	for _, format := range []Format{FormatJSONL, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, sampleRecords()))

			got, err := Decode(&buf, format)
			require.NoError(t, err)
			require.Len(t, got, 2)

			want := sampleRecords()
			for i := range want {
				assert.Equal(t, want[i].Name, got[i].Name)
				assert.Equal(t, want[i].Title, got[i].Title)
				assert.Equal(t, want[i].Content, got[i].Content)
				assert.Equal(t, want[i].Category, got[i].Category)
				assert.Equal(t, want[i].VersionTag, got[i].VersionTag)
			}
			require.NotNil(t, got[0].CreatedAt)
			assert.True(t, want[0].CreatedAt.Equal(*got[0].CreatedAt))
		})
	}
}

func TestJSONLIsOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatJSONL, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "<short>", "HTML is not escaped")
}

func TestDecodeJSONArray(t *testing.T) {
	got, err := Decode(strings.NewReader(`[{"name":"a","title":"A"},{"name":"b","title":"B"}]`), FormatJSONL)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Name)
}

func TestDecodeEmptyInput(t *testing.T) {
	for _, format := range []Format{FormatJSONL, FormatYAML, FormatTOML} {
		got, err := Decode(strings.NewReader(""), format)
		require.NoError(t, err, format)
		assert.Empty(t, got, format)
	}
}

func TestDecodeJSONLReportsBadRecord(t *testing.T) {
	_, err := Decode(strings.NewReader("{\"name\":\"a\"}\n{not json}\n"), FormatJSONL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestDecodeBulkItems(t *testing.T) {
	yamlDoc := `
- name: a
  field: content
  old_value: Hello
  new_value: Hi
- name: missing
  field: content
  old_value: x
  new_value: y
`
	items, err := DecodeBulkItems(strings.NewReader(yamlDoc), FormatYAML)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, types.BulkUpdateItem{Name: "a", Field: "content", OldValue: "Hello", NewValue: "Hi"}, items[0])

	tomlDoc := `
[[item]]
name = "a"
field = "title"
old_value = "Old"
new_value = "New"
`
	items, err = DecodeBulkItems(strings.NewReader(tomlDoc), FormatTOML)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "title", items[0].Field)
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]Format{
		"out.jsonl":          FormatJSONL,
		"out.json":           FormatJSONL,
		"pack.YAML":          FormatYAML,
		"pack.yml":           FormatYAML,
		"dir/instructions.toml": FormatTOML,
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("noext")
	assert.Error(t, err)
	_, err = FormatFromPath("file.csv")
	assert.Error(t, err)
}
