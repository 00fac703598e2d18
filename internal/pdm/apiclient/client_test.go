package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

func uptr(v uint) *uint { return &v }

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func TestClient_GetProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/projects/3", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEnvelope(w, 200, 0, "success", entity.Project{ID: 3, Name: "rover", ProjectNumber: "P-3"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithToken("secret"))
	p, err := c.GetProject(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "rover", p.Name)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 404, 40400, "装配体不存在", nil)
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteAssembly(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 40400, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "装配体不存在")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetDocument(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).GetProject(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}

func TestClient_ListPartsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "4", q.Get("project_id"))
		assert.Equal(t, "true", q.Get("direct"))
		assert.Equal(t, "10", q.Get("skip"))
		assert.Equal(t, "5", q.Get("limit"))
		writeEnvelope(w, 200, 0, "success", Page[entity.Part]{
			Items:      []entity.Part{{ID: 1, Name: "washer", Quantity: 2}},
			Pagination: &Pagination{Skip: 10, Limit: 5, Total: 11},
		})
	}))
	defer srv.Close()

	page, err := New(srv.URL).ListParts(context.Background(), PartFilter{
		ListOptions: ListOptions{Skip: 10, Limit: 5},
		ProjectID:   4,
		Direct:      true,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 11, page.Pagination.Total)
}

func TestClient_LoadProject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/assemblies":
			writeEnvelope(w, 200, 0, "success", Page[entity.Assembly]{
				Items:      []entity.Assembly{{ID: 1, Name: "a", ProjectID: 2}},
				Pagination: &Pagination{Total: 1},
			})
		case "/api/v1/parts":
			writeEnvelope(w, 200, 0, "success", Page[entity.Part]{
				Items:      []entity.Part{{ID: 10, AssemblyID: uptr(1)}, {ID: 11, ProjectID: uptr(2)}},
				Pagination: &Pagination{Total: 2},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	assemblies, parts, err := New(srv.URL).LoadProject(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, assemblies, 1)
	assert.Len(t, parts, 2)
}

func TestClient_UploadDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("part_id"))
		assert.Equal(t, "scanned", r.FormValue("pdf_content_type_2d"))
		assert.Empty(t, r.FormValue("assembly_id"))

		f, hdr, err := r.FormFile("file_2d")
		if !assert.NoError(t, err) {
			return
		}
		body, _ := io.ReadAll(f)
		assert.Equal(t, "drawing.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4", string(body))

		_, hdr, err = r.FormFile("file_3d")
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "model.step", hdr.Filename)

		writeEnvelope(w, 201, 0, "success", []entity.Document{
			{ID: 1, DocType: "2D", PartID: uptr(7)},
			{ID: 2, DocType: "3D", PartID: uptr(7)},
		})
	}))
	defer srv.Close()

	docs, err := New(srv.URL).UploadDocuments(context.Background(), UploadRequest{
		Title:            "bracket",
		PartID:           uptr(7),
		File2D:           &File{Name: "drawing.pdf", Reader: strings.NewReader("%PDF-1.4")},
		File3D:           &File{Name: "model.step", Reader: strings.NewReader("ISO-10303-21;")},
		FileFormat2D:     "pdf",
		FileFormat3D:     "step",
		PDFContentType2D: "scanned",
	})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestClient_UploadRequiresFile(t *testing.T) {
	_, err := New("http://127.0.0.1:1").UploadDocuments(context.Background(), UploadRequest{Title: "x"})
	assert.Error(t, err)
}

func TestClient_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/5/download", r.URL.Path)
		_, _ = w.Write([]byte("content"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := New(srv.URL).Download(context.Background(), entity.Document{ID: 5, DownloadURL: "/api/v1/documents/5/download"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "content", buf.String())
}

func TestClient_FetchDocumentsForMemberPart(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		var items []entity.Document
		if r.URL.Query().Get("assembly_id") == "4" {
			items = []entity.Document{{ID: 8, AssemblyID: uptr(4), DocType: "3D"}}
		}
		writeEnvelope(w, 200, 0, "success", Page[entity.Document]{Items: items})
	}))
	defer srv.Close()

	target := resolver.Target{Kind: tree.KindPart, ID: 12, AssemblyID: uptr(4)}
	docs, err := New(srv.URL).FetchDocuments(context.Background(), target)
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "part_id=12")
	assert.Contains(t, queries[1], "assembly_id=4")

	res := resolver.Resolve(target, docs)
	assert.True(t, res.Inherited)
	assert.Equal(t, uint(8), res.Documents[0].ID)
}

func TestClient_SelectedProject(t *testing.T) {
	var (
		mu     sync.Mutex
		stored *uint
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, 200, 0, "success", selectedProject{ProjectID: stored})
		case http.MethodPut:
			var body selectedProject
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			stored = body.ProjectID
			writeEnvelope(w, 200, 0, "success", nil)
		case http.MethodDelete:
			stored = nil
			writeEnvelope(w, 200, 0, "success", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()

	id, err := c.GetSelectedProject(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)

	require.NoError(t, c.SetSelectedProject(ctx, 6))
	id, err = c.GetSelectedProject(ctx)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, uint(6), *id)

	require.NoError(t, c.ClearSelectedProject(ctx))
	id, err = c.GetSelectedProject(ctx)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestClient_GetNodeDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/nodes/part/12/documents", r.URL.Path)
		writeEnvelope(w, 200, 0, "success", map[string]interface{}{
			"documents": []entity.Document{{ID: 8, AssemblyID: uptr(4), DocType: "2D", VersionNo: 2}},
			"inherited": true,
			"groups":    resolver.Split([]entity.Document{{ID: 8, DocType: "2D"}}),
		})
	}))
	defer srv.Close()

	nd, err := New(srv.URL).GetNodeDocuments(context.Background(), tree.Ref{Kind: tree.KindPart, ID: 12})
	require.NoError(t, err)
	assert.True(t, nd.Inherited)
	require.Len(t, nd.Documents, 1)
	assert.Equal(t, 2, nd.Documents[0].VersionNo)
	require.Len(t, nd.Groups.TwoD, 1)
	assert.Empty(t, nd.Groups.ThreeD)
}

func TestClient_DocumentGetAndDelete(t *testing.T) {
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/7", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, 200, 0, "success", entity.Document{ID: 7, FileName: "frame.pdf", DocType: "2D"})
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			writeEnvelope(w, 200, 0, "success", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	doc, err := c.GetDocument(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "frame.pdf", doc.FileName)

	require.NoError(t, c.DeleteDocument(context.Background(), 7))
	assert.Equal(t, []string{"/api/v1/documents/7"}, deleted)
}

func TestClient_ProjectCreateUpdateDelete(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost, http.MethodPut:
			var p entity.Project
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			if p.ID == 0 {
				p.ID = 21
			}
			writeEnvelope(w, 200, 0, "success", p)
		case http.MethodDelete:
			writeEnvelope(w, 200, 0, "success", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := context.Background()
	created, err := c.CreateProject(ctx, entity.Project{ProjectNumber: "P-21", Name: "lander"})
	require.NoError(t, err)
	assert.Equal(t, uint(21), created.ID)

	created.Name = "lander v2"
	updated, err := c.UpdateProject(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, "lander v2", updated.Name)

	require.NoError(t, c.DeleteProject(ctx, 21))
	assert.Equal(t, []string{
		"POST /api/v1/projects",
		"PUT /api/v1/projects/21",
		"DELETE /api/v1/projects/21",
	}, methods)
}
