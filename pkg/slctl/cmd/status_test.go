package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/k8s-spark-launcher/pkg/slctl/client"
)

func statusHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submissions/sub-1", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)

		status := client.SubmissionStatus{
			ID:        "sub-1",
			Namespace: "analytics",
			Resources: []client.ResourceInfo{
				{Kind: "Service", Name: "pi-driver-svc", Namespace: "analytics"},
				{Kind: "Service", Name: "pi-driver-svc-ui", Namespace: "analytics"},
				{Kind: "ConfigMap", Name: "pi-driver-conf-map", Namespace: "analytics"},
			},
			Statuses: []client.ResourceStatusInfo{
				{Kind: "Service", Name: "pi-driver-svc", Namespace: "analytics", Status: "Current"},
				{Kind: "Service", Name: "pi-driver-svc-ui", Namespace: "analytics", Status: "Current"},
				{Kind: "ConfigMap", Name: "pi-driver-conf-map", Namespace: "analytics", Status: "Current"},
			},
			Summary: "3/3 current, 0 failed, 0 in-progress",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	}
}

func TestStatusCommand_ServerMode_JSON(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()

	buf := &bytes.Buffer{}
	rootCmd := NewRootCommand(Config{OutputWriter: buf})
	rootCmd.SetArgs([]string{"status", "sub-1", "--server", server.URL, "-o", "json"})

	require.NoError(t, rootCmd.Execute())

	var status client.SubmissionStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &status))
	assert.Equal(t, "sub-1", status.ID)
	assert.Len(t, status.Statuses, 3)
	assert.Equal(t, "3/3 current, 0 failed, 0 in-progress", status.Summary)
}

func TestStatusCommand_ServerMode_Table(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()

	buf := &bytes.Buffer{}
	rootCmd := NewRootCommand(Config{OutputWriter: buf})
	rootCmd.SetArgs([]string{"status", "sub-1", "--server", server.URL})

	require.NoError(t, rootCmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "Current")
	assert.Contains(t, output, "pi-driver-svc-ui")
	assert.Contains(t, output, "3/3 current, 0 failed, 0 in-progress")
}

func TestStatusCommand_ServerMode_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "submission not found: nope"})
	}))
	defer server.Close()

	buf := &bytes.Buffer{}
	rootCmd := NewRootCommand(Config{OutputWriter: buf})
	rootCmd.SetArgs([]string{"status", "nope", "--server", server.URL})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submission not found")
}

func TestStatusCommand_RequiresArg(t *testing.T) {
	buf := &bytes.Buffer{}
	rootCmd := NewRootCommand(Config{OutputWriter: buf})
	rootCmd.SetArgs([]string{"status"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestWriteStatus_TableWithoutStatuses(t *testing.T) {
	buf := &bytes.Buffer{}
	rt := &runtimeState{writer: buf}

	status := &client.SubmissionStatus{
		ID:        "sub-1",
		Namespace: "analytics",
		Resources: []client.ResourceInfo{
			{Kind: "Service", Name: "pi-driver-svc", Namespace: "analytics"},
		},
	}
	require.NoError(t, writeStatus(rt, status))

	output := buf.String()
	assert.Contains(t, output, "KIND")
	assert.Contains(t, output, "pi-driver-svc")
	assert.NotContains(t, output, "STATUS")
}
