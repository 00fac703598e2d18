package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

const (
	structureSheet = "结构"
	documentSheet  = "文档"
)

var structureHeaders = []string{"层级", "类型", "名称", "零件号", "数量", "直属零件", "2D文档", "3D文档"}

var documentHeaders = []string{"归属类型", "归属名称", "标题", "类型", "格式", "版本", "扫描件", "大小", "上传人", "上传时间"}

// ExportService 项目结构导出
type ExportService struct {
	trees *TreeService
}

func NewExportService(trees *TreeService) *ExportService {
	return &ExportService{trees: trees}
}

// ExportProject 导出项目结构和文档清单为 xlsx，调用方负责关闭
func (s *ExportService) ExportProject(ctx context.Context, projectID uint) (*excelize.File, string, error) {
	pt, err := s.trees.Tree(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	docs, err := s.trees.TreeDocuments(ctx, pt.Forest)
	if err != nil {
		return nil, "", err
	}
	f, err := BuildWorkbook(pt.Forest, docs)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("%s_%s.xlsx", pt.Project.ProjectNumber, pt.Project.Name)
	return f, filename, nil
}

type docCounts struct{ twoD, threeD int }

// BuildWorkbook 生成结构表和文档表
func BuildWorkbook(forest tree.Forest, docs []entity.Document) (*excelize.File, error) {
	counts := map[tree.Ref]*docCounts{}
	for _, d := range docs {
		ref, ok := docOwner(d)
		if !ok {
			continue
		}
		c := counts[ref]
		if c == nil {
			c = &docCounts{}
			counts[ref] = c
		}
		if d.Is2D() {
			c.twoD++
		} else if d.Is3D() {
			c.threeD++
		}
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", structureSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	writeHeaders(f, structureSheet, structureHeaders, headerStyle)
	writeHeaders(f, documentSheet, documentHeaders, headerStyle)

	// 结构表：深度优先，名称按层级缩进
	names := map[tree.Ref]string{}
	row := 2
	forest.Walk(func(n *tree.Node) bool {
		names[n.Ref()] = n.Name
		kind := "装配体"
		if n.Kind == tree.KindPart {
			kind = "零件"
		}
		direct := ""
		if n.IsDirectPart {
			direct = "是"
		}
		c := counts[n.Ref()]
		if c == nil {
			c = &docCounts{}
		}
		values := []any{n.Depth, kind, strings.Repeat("  ", n.Depth) + n.Name, n.PartNumber, n.Quantity, direct, c.twoD, c.threeD}
		if n.Kind == tree.KindAssembly {
			values[4] = nil
		}
		setRow(f, structureSheet, row, values)
		row++
		return true
	})

	for i, d := range docs {
		ref, _ := docOwner(d)
		kind := "装配体"
		if ref.Kind == tree.KindPart {
			kind = "零件"
		}
		scanned := ""
		if d.IsScanned() {
			scanned = "是"
		}
		setRow(f, documentSheet, i+2, []any{
			kind, names[ref], d.Title, d.DocType, d.FileFormat, d.VersionNo,
			scanned, d.Size, d.UploadedBy, d.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	setWidths(f, structureSheet, []float64{6, 8, 36, 16, 6, 8, 8, 8})
	setWidths(f, documentSheet, []float64{8, 24, 24, 6, 6, 6, 6, 10, 12, 18})
	return f, nil
}

func docOwner(d entity.Document) (tree.Ref, bool) {
	switch {
	case d.PartID != nil:
		return tree.Ref{Kind: tree.KindPart, ID: *d.PartID}, true
	case d.AssemblyID != nil:
		return tree.Ref{Kind: tree.KindAssembly, ID: *d.AssemblyID}, true
	}
	return tree.Ref{}, false
}

func writeHeaders(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []any) {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	f.SetSheetRow(sheet, cell, &values)
}

func setWidths(f *excelize.File, sheet string, widths []float64) {
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}
