package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Columns: []Column{{Key: "email", Label: "Email"}, {Key: "status", Label: "Status"}, {Key: "reason"}},
		Rows: []map[string]string{
			{"email": "a@example.com", "status": "added"},
			{"email": "bad", "status": "failed", "reason": "invalid email, skipped"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Email,Status,reason\na@example.com,added,\nbad,failed,\"invalid email, skipped\"\n", string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRenderJoinSheet(t *testing.T) {
	out, err := NewPDFExporter().RenderJoinSheet(JoinSheet{
		GroupName: "Physics 10A",
		JoinURL:   "https://quizhub.example/join/abcd",
		Token:     "0123456789abcdef0123456789abcdef",
		ExpiresAt: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresURL(t *testing.T) {
	_, err := NewPDFExporter().RenderJoinSheet(JoinSheet{GroupName: "x"})
	assert.Error(t, err)
}

func TestGroupToken(t *testing.T) {
	assert.Equal(t, "ABCD EF12 34", groupToken("abcdef1234"))
	assert.Equal(t, "", groupToken(""))
}
