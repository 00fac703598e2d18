package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/resolver"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/selection"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

// printForest 输出分页后的装配体树和直属零件
func printForest(w io.Writer, f tree.Forest, assemblyPage, partPage, size int) {
	printSection(w, "Assemblies", f.Roots, assemblyPage, size)
	printSection(w, "Direct parts", f.DirectParts, partPage, size)
	if len(f.OrphanParts) > 0 {
		fmt.Fprintf(w, "\n%d part(s) reference a missing assembly\n", len(f.OrphanParts))
	}
}

func printSection(w io.Writer, title string, nodes []*tree.Node, page, size int) {
	start, end := selection.PageBounds(page, len(nodes), size)
	fmt.Fprintf(w, "%s (page %d/%d, %d total)\n", title,
		selection.Clamp(page, len(nodes), size), selection.TotalPages(len(nodes), size), len(nodes))
	for _, n := range nodes[start:end] {
		printNode(w, n, 1)
	}
}

func printNode(w io.Writer, n *tree.Node, indent int) {
	pad := strings.Repeat("  ", indent)
	switch n.Kind {
	case tree.KindAssembly:
		fmt.Fprintf(w, "%s[A] %s #%d\n", pad, n.Name, n.ID)
	case tree.KindPart:
		fmt.Fprintf(w, "%s[P] %s #%d  %s x%d\n", pad, n.Name, n.ID, n.PartNumber, n.Quantity)
	}
	for _, c := range n.Children {
		printNode(w, c, indent+1)
	}
}

func printProjects(w io.Writer, projects []entity.Project) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tREFERENCE")
	for _, p := range projects {
		ref := ""
		if p.ReferenceNo != nil {
			ref = *p.ReferenceNo
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.ProjectNumber, p.Name, ref)
	}
	tw.Flush()
}

func printDocuments(w io.Writer, res resolver.Result) {
	if res.Empty() {
		fmt.Fprintln(w, "No documents")
		return
	}
	if res.Inherited {
		fmt.Fprintln(w, "(inherited from the owning assembly)")
	}
	groups := resolver.Split(res.Documents)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tFORMAT\tVERSION\tLATEST\tSCANNED\tURL")
	for _, docs := range [][]entity.Document{groups.TwoD, groups.ThreeD} {
		// 每组最高版本号标记为当前版本
		latest := resolver.Latest(docs)
		for _, d := range docs {
			current := ""
			if latest != nil && d.ID == latest.ID {
				current = "*"
			}
			scanned := ""
			if d.IsScanned() {
				scanned = "OCR"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\tv%d\t%s\t%s\t%s\n", d.ID, d.DocType, d.Title, d.FileFormat, d.VersionNo, current, scanned, d.DownloadURL)
		}
	}
	tw.Flush()
}
