package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

func uptr(v uint) *uint { return &v }

func TestParseRef(t *testing.T) {
	ref, err := parseRef([]string{"part", "12"})
	require.NoError(t, err)
	assert.Equal(t, tree.Ref{Kind: tree.KindPart, ID: 12}, ref)

	_, err = parseRef([]string{"widget", "1"})
	assert.Error(t, err)
	_, err = parseRef([]string{"assembly", "0"})
	assert.Error(t, err)
	_, err = parseRef([]string{"assembly", "x"})
	assert.Error(t, err)
}

func TestPromptConfirm(t *testing.T) {
	cases := map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false, "yes": true}
	for input, want := range cases {
		var out bytes.Buffer
		got, err := promptConfirm(strings.NewReader(input), &out, "删除?")
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %q", input)
		assert.Equal(t, "删除? [y/N] ", out.String())
	}
}

func TestPrintForest(t *testing.T) {
	var assemblies []entity.Assembly
	for i := uint(1); i <= 12; i++ {
		assemblies = append(assemblies, entity.Assembly{ID: i, Name: "A" + string(rune('a'+i-1)), ProjectID: 1})
	}
	parts := []entity.Part{
		{ID: 100, Name: "Bolt", PartNumber: "B-1", Quantity: 2, AssemblyID: uptr(1)},
		{ID: 101, Name: "Manual", Quantity: 1, ProjectID: uptr(1)},
		{ID: 102, Name: "Lost", Quantity: 1, AssemblyID: uptr(99)},
	}
	f := tree.Build(assemblies, parts)

	var out bytes.Buffer
	printForest(&out, f, 1, 1, 10)
	text := out.String()
	assert.Contains(t, text, "Assemblies (page 1/2, 12 total)")
	assert.Contains(t, text, "    [P] Bolt #100  B-1 x2")
	assert.Contains(t, text, "Direct parts (page 1/1, 1 total)")
	assert.Contains(t, text, "1 part(s) reference a missing assembly")
	assert.NotContains(t, text, "#11\n")

	out.Reset()
	printForest(&out, f, 5, 1, 10)
	assert.Contains(t, out.String(), "Assemblies (page 2/2, 12 total)")
	assert.Contains(t, out.String(), "[A] Al #12")
}

func TestPrintDocuments(t *testing.T) {
	var out bytes.Buffer
	printDocuments(&out, resolver.Result{})
	assert.Equal(t, "No documents\n", out.String())

	out.Reset()
	printDocuments(&out, resolver.Result{Inherited: true, Documents: []entity.Document{
		{ID: 1, DocType: entity.DocType3D, Title: "m", FileFormat: "step", VersionNo: 1},
		{ID: 2, DocType: entity.DocType2D, Title: "d", FileFormat: "pdf", VersionNo: 3, PDFContentType: entity.PDFContentScanned},
	}})
	text := out.String()
	assert.Contains(t, text, "inherited")
	assert.Less(t, strings.Index(text, "pdf"), strings.Index(text, "step"), "2D listed before 3D")
	assert.Contains(t, text, "OCR")
}

func TestPrintDocuments_MarksLatestPerGroup(t *testing.T) {
	var out bytes.Buffer
	printDocuments(&out, resolver.Result{Documents: []entity.Document{
		{ID: 1, DocType: entity.DocType2D, Title: "drawing", FileFormat: "pdf", VersionNo: 1},
		{ID: 2, DocType: entity.DocType2D, Title: "drawing", FileFormat: "pdf", VersionNo: 3},
		{ID: 3, DocType: entity.DocType3D, Title: "model", FileFormat: "step", VersionNo: 2},
	}})

	latest := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n")[1:] {
		fields := strings.Fields(line)
		latest[fields[0]] = slices.Contains(fields, "*")
	}
	assert.Equal(t, map[string]bool{"1": false, "2": true, "3": true}, latest)
}
