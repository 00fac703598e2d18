package form

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

func uptr(v uint) *uint { return &v }

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func attachment(name string) (*Attachment, *trackedBody) {
	body := &trackedBody{Reader: strings.NewReader("data")}
	return &Attachment{FileName: name, Body: body}, body
}

func validationErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	return verrs
}

func TestValidate_NameRequired(t *testing.T) {
	_, err := Validate(Input{Kind: tree.KindAssembly, Name: "   ", ProjectID: uptr(1)})
	verrs := validationErrors(t, err)
	assert.Contains(t, verrs, "name")
}

func TestValidate_QuantityCoercion(t *testing.T) {
	for raw, want := range map[string]int{"": 1, "abc": 1, "0": 1, "-3": 1, " 4 ": 4, "2.5": 1} {
		f2, _ := attachment("a.pdf")
		f3, _ := attachment("a.step")
		p, err := Validate(Input{Kind: tree.KindPart, Name: "bolt", Quantity: raw, ProjectID: uptr(1), File2D: f2, File3D: f3})
		require.NoError(t, err, raw)
		assert.Equal(t, want, p.Quantity, raw)
	}
}

func TestValidate_ProjectOwnership(t *testing.T) {
	f2, _ := attachment("a.pdf")
	f3, _ := attachment("a.stp")

	_, err := Validate(Input{Kind: tree.KindPart, Name: "bolt", AssemblyID: uptr(3), ProjectID: uptr(1), File2D: f2, File3D: f3})
	assert.Contains(t, validationErrors(t, err), "project_id")

	p, err := Validate(Input{Kind: tree.KindPart, Name: "bolt", AssemblyID: uptr(3), File2D: f2, File3D: f3})
	require.NoError(t, err)
	assert.True(t, p.IsMemberPart())
	assert.Nil(t, p.Part().ProjectID)

	_, err = Validate(Input{Kind: tree.KindPart, Name: "label", File2D: f2, File3D: f3})
	assert.Contains(t, validationErrors(t, err), "project_id")

	_, err = Validate(Input{Kind: tree.KindAssembly, Name: "frame"})
	assert.Contains(t, validationErrors(t, err), "project_id")
}

func TestValidate_ParentAssemblyID(t *testing.T) {
	p, err := Validate(Input{Kind: tree.KindAssembly, Name: "sub", ProjectID: uptr(1), ParentAssemblyID: " 12 "})
	require.NoError(t, err)
	require.NotNil(t, p.ParentAssemblyID)
	assert.Equal(t, uint(12), *p.ParentAssemblyID)

	p, err = Validate(Input{Kind: tree.KindAssembly, Name: "root", ProjectID: uptr(1)})
	require.NoError(t, err)
	assert.Nil(t, p.ParentAssemblyID)

	for _, raw := range []string{"abc", "1.5", "-2", "0"} {
		_, err = Validate(Input{Kind: tree.KindAssembly, Name: "sub", ProjectID: uptr(1), ParentAssemblyID: raw})
		assert.Contains(t, validationErrors(t, err), "parent_assembly_id", raw)
	}

	_, err = Validate(Input{Kind: tree.KindAssembly, ID: 5, Name: "sub", ProjectID: uptr(1), ParentAssemblyID: "5"})
	assert.Contains(t, validationErrors(t, err), "parent_assembly_id")
}

func TestValidate_PartFilesRequired(t *testing.T) {
	f2, _ := attachment("drawing.PDF")
	_, err := Validate(Input{Kind: tree.KindPart, Name: "bolt", ProjectID: uptr(1), File2D: f2})
	verrs := validationErrors(t, err)
	assert.Contains(t, verrs, "file_3d")
	assert.NotContains(t, verrs, "file_2d")

	// 编辑零件同样需要两份文档
	_, err = Validate(Input{Kind: tree.KindPart, ID: 9, Name: "bolt", AssemblyID: uptr(3)})
	verrs = validationErrors(t, err)
	assert.Contains(t, verrs, "file_2d")
	assert.Contains(t, verrs, "file_3d")

	_, err = Validate(Input{Kind: tree.KindPart, ID: 9, Name: "bolt", ProjectID: uptr(1)})
	verrs = validationErrors(t, err)
	assert.Contains(t, verrs, "file_2d")
	assert.Contains(t, verrs, "file_3d")
}

func TestValidate_FileFormats(t *testing.T) {
	f2, _ := attachment("drawing.docx")
	f3, _ := attachment("model.glb")
	_, err := Validate(Input{Kind: tree.KindAssembly, Name: "a", ProjectID: uptr(1), File2D: f2, File3D: f3})
	verrs := validationErrors(t, err)
	assert.Contains(t, verrs, "file_2d")
	assert.Contains(t, verrs, "file_3d")

	_, err = Validate(Input{Kind: tree.KindAssembly, Name: "a", ProjectID: uptr(1)})
	assert.NoError(t, err)
}

func TestValidate_PDFContentType(t *testing.T) {
	f2, _ := attachment("a.pdf")
	p, err := Validate(Input{Kind: tree.KindAssembly, Name: "a", ProjectID: uptr(1), File2D: f2})
	require.NoError(t, err)
	assert.Equal(t, entity.PDFContentNormal, p.PDFContentType)

	_, err = Validate(Input{Kind: tree.KindAssembly, Name: "a", ProjectID: uptr(1), File2D: f2, PDFContentType: "blurry"})
	assert.Contains(t, validationErrors(t, err), "pdf_content_type")
}

type fakeBackend struct {
	calls     []string
	uploads   []apiclient.UploadRequest
	createErr error
	nextID    uint
}

func (b *fakeBackend) id() uint {
	b.nextID++
	return b.nextID
}

func (b *fakeBackend) CreateAssembly(_ context.Context, a entity.Assembly) (*entity.Assembly, error) {
	b.calls = append(b.calls, "create_assembly")
	if b.createErr != nil {
		return nil, b.createErr
	}
	a.ID = b.id()
	return &a, nil
}

func (b *fakeBackend) UpdateAssembly(_ context.Context, a entity.Assembly) (*entity.Assembly, error) {
	b.calls = append(b.calls, "update_assembly")
	return &a, nil
}

func (b *fakeBackend) CreatePart(_ context.Context, p entity.Part) (*entity.Part, error) {
	b.calls = append(b.calls, "create_part")
	if b.createErr != nil {
		return nil, b.createErr
	}
	p.ID = b.id()
	return &p, nil
}

func (b *fakeBackend) UpdatePart(_ context.Context, p entity.Part) (*entity.Part, error) {
	b.calls = append(b.calls, "update_part")
	return &p, nil
}

func (b *fakeBackend) UploadDocuments(_ context.Context, r apiclient.UploadRequest) ([]entity.Document, error) {
	b.calls = append(b.calls, "upload")
	b.uploads = append(b.uploads, r)
	return []entity.Document{{ID: 1, DocType: entity.DocType2D, PartID: r.PartID}}, nil
}

type countingRefresher struct{ n int }

func (r *countingRefresher) Refresh(context.Context) error {
	r.n++
	return nil
}

func TestSubmit_PartWithFiles(t *testing.T) {
	backend := &fakeBackend{}
	refresher := &countingRefresher{}
	store := tree.NewStore()
	c := NewController(backend, store, refresher, nil)

	f2, b2 := attachment("drawing.pdf")
	f3, b3 := attachment("model.step")
	res, err := c.Submit(context.Background(), Input{
		Kind:           tree.KindPart,
		Name:           " bolt ",
		Quantity:       "8",
		ProjectID:      uptr(1),
		PDFContentType: entity.PDFContentScanned,
		File2D:         f2,
		File3D:         f3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"create_part", "upload"}, backend.calls)
	require.NotNil(t, res.Part)
	assert.Equal(t, "bolt", res.Part.Name)
	assert.Equal(t, 8, res.Part.Quantity)
	assert.Len(t, res.Documents, 1)

	up := backend.uploads[0]
	assert.Equal(t, res.Part.ID, *up.PartID)
	assert.Nil(t, up.AssemblyID)
	assert.Equal(t, "pdf", up.FileFormat2D)
	assert.Equal(t, "step", up.FileFormat3D)
	assert.Equal(t, entity.PDFContentScanned, up.PDFContentType2D)
	assert.Empty(t, up.DocType)

	assert.Equal(t, 1, refresher.n)
	assert.True(t, b2.closed)
	assert.True(t, b3.closed)
	assert.Len(t, store.Forest().DirectParts, 1)
}

func TestSubmit_ValidationBlocksNetwork(t *testing.T) {
	backend := &fakeBackend{}
	refresher := &countingRefresher{}
	c := NewController(backend, nil, refresher, nil)

	f2, b2 := attachment("drawing.pdf")
	_, err := c.Submit(context.Background(), Input{Kind: tree.KindPart, Name: "bolt", ProjectID: uptr(1), File2D: f2})
	require.Error(t, err)

	assert.Empty(t, backend.calls)
	assert.Zero(t, refresher.n)
	assert.True(t, b2.closed)
}

func TestSubmit_BackendErrorClosesAttachments(t *testing.T) {
	backend := &fakeBackend{createErr: errors.New("503")}
	c := NewController(backend, nil, nil, nil)

	f2, b2 := attachment("drawing.pdf")
	_, err := c.Submit(context.Background(), Input{Kind: tree.KindAssembly, Name: "frame", ProjectID: uptr(1), File2D: f2})
	require.Error(t, err)
	assert.True(t, b2.closed)
	assert.Equal(t, []string{"create_assembly"}, backend.calls)
}

func TestSubmit_AssemblyWithoutFiles(t *testing.T) {
	backend := &fakeBackend{}
	store := tree.NewStore()
	store.Load([]entity.Assembly{{ID: 1, Name: "old", ProjectID: 1}}, nil)
	c := NewController(backend, store, &countingRefresher{}, nil)

	res, err := c.Submit(context.Background(), Input{Kind: tree.KindAssembly, ID: 1, Name: "renamed", ProjectID: uptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "renamed", res.Assembly.Name)
	assert.Equal(t, []string{"update_assembly"}, backend.calls)

	a, ok := store.Assembly(1)
	require.True(t, ok)
	assert.Equal(t, "renamed", a.Name)
}

func TestSubmit_SingleFileSetsDocType(t *testing.T) {
	backend := &fakeBackend{}
	c := NewController(backend, nil, nil, nil)

	f3, _ := attachment("model.stp")
	_, err := c.Submit(context.Background(), Input{Kind: tree.KindAssembly, Name: "frame", ProjectID: uptr(1), File3D: f3})
	require.NoError(t, err)
	require.Len(t, backend.uploads, 1)
	assert.Equal(t, entity.DocType3D, backend.uploads[0].DocType)
	assert.NotNil(t, backend.uploads[0].AssemblyID)
}
