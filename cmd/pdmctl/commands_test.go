package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/form"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/selection"
)

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": code, "message": message, "data": data})
}

func documentServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/documents/7":
			writeEnvelope(w, 200, 0, "success", entity.Document{
				ID: 7, DocType: entity.DocType2D, VersionNo: 2, FileName: "frame.pdf",
				FileFormat: "pdf", DownloadURL: "/api/v1/documents/7/download",
			})
		case "/api/v1/documents/7/download":
			_, _ = w.Write([]byte("%PDF-1.4"))
		default:
			writeEnvelope(w, 404, 40400, "文档不存在", nil)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadDocument_ToFile(t *testing.T) {
	client := apiclient.New(documentServer(t).URL)
	target := filepath.Join(t.TempDir(), "out.pdf")

	var stdout, stderr bytes.Buffer
	require.NoError(t, downloadDocument(context.Background(), client, 7, target, &stdout, &stderr))

	body, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "saved 2D v2 to "+target+" (8 bytes)")
}

func TestDownloadDocument_DefaultsToStoredName(t *testing.T) {
	client := apiclient.New(documentServer(t).URL)
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	require.NoError(t, downloadDocument(context.Background(), client, 7, "", &stdout, &stderr))

	body, err := os.ReadFile("frame.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
}

func TestDownloadDocument_Stdout(t *testing.T) {
	client := apiclient.New(documentServer(t).URL)

	var stdout, stderr bytes.Buffer
	require.NoError(t, downloadDocument(context.Background(), client, 7, "-", &stdout, &stderr))
	assert.Equal(t, "%PDF-1.4", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestDownloadDocument_NotFound(t *testing.T) {
	client := apiclient.New(documentServer(t).URL)
	target := filepath.Join(t.TempDir(), "missing.pdf")

	var stdout, stderr bytes.Buffer
	err := downloadDocument(context.Background(), client, 8, target, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document 8 not found")
	assert.NoFileExists(t, target)
}

func TestSaveProject_UpdateKeepsUnsetFields(t *testing.T) {
	var put entity.Project
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/4", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			ref := "REF-9"
			writeEnvelope(w, 200, 0, "success", entity.Project{ID: 4, ProjectNumber: "P-4", Name: "rover", ReferenceNo: &ref})
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&put))
			writeEnvelope(w, 200, 0, "success", put)
		}
	}))
	defer srv.Close()

	var f projectFlags
	cmd := &cobra.Command{}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Set("id", "4"))
	require.NoError(t, cmd.Flags().Set("name", "rover mk2"))

	p, err := saveProject(context.Background(), apiclient.New(srv.URL), &f, cmd)
	require.NoError(t, err)
	assert.Equal(t, uint(4), p.ID)
	assert.Equal(t, "rover mk2", put.Name)
	assert.Equal(t, "P-4", put.ProjectNumber)
	require.NotNil(t, put.ReferenceNo)
	assert.Equal(t, "REF-9", *put.ReferenceNo)
	assert.Nil(t, put.CustomerDetails)
}

func TestSaveProject_CreateNeedsNumberAndName(t *testing.T) {
	var f projectFlags
	cmd := &cobra.Command{}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Set("name", "rover"))

	_, err := saveProject(context.Background(), apiclient.New("http://127.0.0.1:1"), &f, cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--number")
}

func TestPrintValidationErrors_Sorted(t *testing.T) {
	var out bytes.Buffer
	printValidationErrors(&out, form.ValidationErrors{
		"quantity": "数量必须为正整数",
		"file_3d":  "请上传3D模型",
		"name":     "名称不能为空",
		"file_2d":  "请上传2D图纸",
	})
	assert.Equal(t, "  file_2d: 请上传2D图纸\n  file_3d: 请上传3D模型\n  name: 名称不能为空\n  quantity: 数量必须为正整数\n", out.String())
}

func TestPageConfig_FromEnv(t *testing.T) {
	t.Setenv("PDM_PAGE_SIZE", "3")
	cfg := pageConfig()
	assert.Equal(t, 3, cfg.TreePageSize)
	assert.Equal(t, selection.ProjectPageSize, cfg.ProjectPageSize)

	t.Setenv("PDM_PROJECT_PAGE_SIZE", "12")
	assert.Equal(t, 12, pageConfig().ProjectPageSize)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
