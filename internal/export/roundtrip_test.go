package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/untoldecay/InstructionLog/internal/engine"
	"github.com/untoldecay/InstructionLog/internal/storage/memory"
	"github.com/untoldecay/InstructionLog/internal/types"
)

func TestEngineRoundTripThroughEachFormat(t *testing.T) {
	ctx := context.Background()
	src := engine.New(memory.New())
	for _, req := range []engine.CreateRequest{
		{Name: "mobile-mode", Title: "Mobile Mode", Content: "# Mobile\n\n- short answers\n", Category: "modes"},
		{Name: "tone", Title: "Tone \"quoted\"", Content: "Be kind.\nUse 'plain' words: a=b", Category: "style"},
	} {
		_, err := src.Create(ctx, req)
		require.NoError(t, err)
	}
	records, err := src.ExportAll(ctx, "")
	require.NoError(t, err)

	for _, format := range []Format{FormatJSONL, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, records))
			decoded, err := Decode(&buf, format)
			require.NoError(t, err)

			dst := engine.New(memory.New())
			results := dst.ImportAll(ctx, decoded, "importer", types.ImportOptions{Overwrite: true})
			require.Zero(t, types.CountFailed(results))

			for _, rec := range records {
				got, err := dst.Get(ctx, rec.Name)
				require.NoError(t, err)
				assert.Equal(t, rec.Title, got.Title)
				assert.Equal(t, rec.Content, got.Content)
				assert.Equal(t, rec.Category, got.Category)
			}
		})
	}
}
