package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

func uptr(v uint) *uint { return &v }

func TestBuildWorkbook(t *testing.T) {
	assemblies := []entity.Assembly{
		{ID: 1, Name: "Frame", ProjectID: 7},
		{ID: 2, Name: "Bracket", ProjectID: 7, ParentAssemblyID: uptr(1)},
	}
	parts := []entity.Part{
		{ID: 10, Name: "Bolt", PartNumber: "B-10", Quantity: 4, AssemblyID: uptr(2)},
		{ID: 11, Name: "Label", PartNumber: "L-11", Quantity: 1, ProjectID: uptr(7)},
	}
	docs := []entity.Document{
		{ID: 100, Title: "frame", DocType: entity.DocType2D, FileFormat: "pdf", AssemblyID: uptr(1), VersionNo: 1, PDFContentType: entity.PDFContentScanned, CreatedAt: time.Now()},
		{ID: 101, Title: "bolt", DocType: entity.DocType3D, FileFormat: "step", PartID: uptr(10), VersionNo: 2, CreatedAt: time.Now()},
	}

	f, err := BuildWorkbook(tree.Build(assemblies, parts), docs)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(structureSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, structureHeaders, rows[0])
	assert.Equal(t, "Frame", rows[1][2])
	assert.Equal(t, "1", rows[1][6], "2D count of Frame")
	assert.Equal(t, "  Bracket", rows[2][2])
	assert.Equal(t, "    Bolt", rows[3][2])
	assert.Equal(t, "4", rows[3][4])
	assert.Equal(t, "1", rows[3][7], "3D count of Bolt")
	assert.Equal(t, "Label", rows[4][2])
	assert.Equal(t, "是", rows[4][5])

	docRows, err := f.GetRows(documentSheet)
	require.NoError(t, err)
	require.Len(t, docRows, 3)
	assert.Equal(t, []string{"装配体", "Frame", "frame", "2D", "pdf", "1", "是"}, docRows[1][:7])
	assert.Equal(t, "Bolt", docRows[2][1])
}

func TestBuildWorkbook_Empty(t *testing.T) {
	f, err := BuildWorkbook(tree.Forest{}, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(structureSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFormatRules(t *testing.T) {
	assert.Equal(t, "pdf", normalizeFormat("", "drawing.PDF"))
	assert.Equal(t, "step", normalizeFormat(".STEP", "model.bin"))
	assert.Equal(t, "", normalizeFormat("", "noext"))

	assert.True(t, formatAllowed(entity.DocType2D, "pdf"))
	assert.False(t, formatAllowed(entity.DocType2D, "step"))
	assert.True(t, formatAllowed(entity.DocType3D, "stp"))
	assert.True(t, formatAllowed(entity.DocType3D, "glb"))
	assert.False(t, formatAllowed("4D", "pdf"))

	assert.Equal(t, "application/pdf", ContentType("PDF"))
	assert.Equal(t, "application/octet-stream", ContentType("dwg"))
}
