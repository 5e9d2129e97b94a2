package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file]", ingestCmd.Use)
}

func TestIngestCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngestCmd_SubmitsFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("document text"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Job job-1 accepted")

	mock := ragService.(*mockRAG)
	assert.Equal(t, "notes.md", mock.lastReq.Name)
	assert.Equal(t, "document text", mock.lastReq.Text)
}

func TestIngestCmd_FlagsOverrideDefaults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "raw.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{
		"ingest", path,
		"--name", "My Book",
		"-c", "books",
		"--content-type", "text/markdown",
		"-m", "author=someone",
		"-m", "year=2021",
	})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestName = ""
		ingestCollection = ""
		ingestContentType = "text/plain"
		ingestMetadata = nil
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	mock := ragService.(*mockRAG)
	assert.Equal(t, "My Book", mock.lastReq.Name)
	assert.Equal(t, "books", mock.lastReq.Collection)
	assert.Equal(t, "text/markdown", mock.lastReq.ContentType)
	assert.Equal(t, "someone", mock.lastReq.Metadata["author"])
	assert.Equal(t, "2021", mock.lastReq.Metadata["year"])
}

func TestIngestCmd_WaitPollsUntilTerminal(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("document text"), 0o600))

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "--wait", path})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestWait = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Document doc-1 stored")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "/does/not/exist.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reading /does/not/exist.txt")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := ragService
	ragService = nil
	defer func() {
		ragService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", "whatever.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rag service not configured")
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "single pair",
			pairs: []string{"author=me"},
			want:  map[string]string{"author": "me"},
		},
		{
			name:  "value with equals sign",
			pairs: []string{"query=a=b"},
			want:  map[string]string{"query": "a=b"},
		},
		{
			name:    "missing separator",
			pairs:   []string{"author"},
			wantErr: true,
		},
		{
			name:    "empty key",
			pairs:   []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
