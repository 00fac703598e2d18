package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/nimo-pdm/internal/middleware"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/form"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/selection"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/tree"
)

func newProjectsCmd() *cobra.Command {
	var (
		page  int
		query string
	)
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(cmd, false)
			size := s.selection.PageSize(selection.ListProjects)
			res, err := s.client.ListProjects(cmd.Context(), apiclient.ProjectFilter{
				ListOptions: apiclient.ListOptions{Skip: (max(page, 1) - 1) * size, Limit: size},
				Query:       query,
			})
			if err != nil {
				return err
			}
			printProjects(cmd.OutOrStdout(), res.Items)
			if res.Pagination != nil {
				s.selection.SetProjectCount(res.Pagination.Total)
				fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d\n",
					s.selection.ChangePage(selection.ListProjects, page), selection.TotalPages(res.Pagination.Total, size))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by number, name or reference")
	return cmd
}

func newTreeCmd() *cobra.Command {
	var (
		projectID    uint
		assemblyPage int
		partPage     int
		query        string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the assembly tree of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(cmd, false)
			id, err := s.projectOf(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := s.load(cmd.Context(), id); err != nil {
				return err
			}
			s.selection.SetQuery(query)
			printForest(cmd.OutOrStdout(), s.selection.View(),
				s.selection.ChangePage(selection.ListAssemblies, assemblyPage),
				s.selection.ChangePage(selection.ListDirectParts, partPage),
				s.selection.PageSize(selection.ListAssemblies))
			return nil
		},
	}
	cmd.Flags().UintVarP(&projectID, "project", "p", 0, "project id (defaults to the selected project)")
	cmd.Flags().IntVar(&assemblyPage, "assembly-page", 1, "assembly page")
	cmd.Flags().IntVar(&partPage, "part-page", 1, "direct part page")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search by name")
	return cmd
}

// parseRef 解析 "<assembly|part> <id>"
func parseRef(args []string) (tree.Ref, error) {
	kind := tree.Kind(args[0])
	if !kind.Valid() {
		return tree.Ref{}, fmt.Errorf("unknown node type %q, want assembly or part", args[0])
	}
	id, err := parseID(args[1])
	if err != nil {
		return tree.Ref{}, err
	}
	return tree.Ref{Kind: kind, ID: id}, nil
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func newDocsCmd() *cobra.Command {
	var (
		projectID uint
		server    bool
	)
	cmd := &cobra.Command{
		Use:   "docs <assembly|part> <id>",
		Short: "List the documents of a tree node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			s := newSession(cmd, false)
			if server {
				nd, err := s.client.GetNodeDocuments(cmd.Context(), ref)
				if err != nil {
					return err
				}
				printDocuments(cmd.OutOrStdout(), nd.Result)
				return nil
			}
			id, err := s.projectOf(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := s.load(cmd.Context(), id); err != nil {
				return err
			}
			res, err := s.selection.SelectNode(cmd.Context(), ref)
			if err != nil {
				return err
			}
			printDocuments(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().UintVarP(&projectID, "project", "p", 0, "project id (defaults to the selected project)")
	cmd.Flags().BoolVar(&server, "server", false, "let the service resolve the documents instead of the local tree")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var (
		projectID uint
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "delete <assembly|part> <id>",
		Short: "Delete a tree node after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}
			s := newSession(cmd, yes)
			id, err := s.projectOf(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if err := s.load(cmd.Context(), id); err != nil {
				return err
			}
			deleted, err := s.selection.Delete(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
			}
			return nil
		},
	}
	cmd.Flags().UintVarP(&projectID, "project", "p", 0, "project id (defaults to the selected project)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// formFlags 装配体/零件表单的公共参数
type formFlags struct {
	id         uint
	name       string
	projectID  uint
	changeNote string
	pdf        string
	pdfType    string
	step       string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().UintVar(&f.id, "id", 0, "existing id to update")
	cmd.Flags().StringVar(&f.name, "name", "", "name")
	cmd.Flags().UintVarP(&f.projectID, "project", "p", 0, "project id")
	cmd.Flags().StringVar(&f.changeNote, "note", "", "change note for uploaded documents")
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "2D drawing (.pdf)")
	cmd.Flags().StringVar(&f.pdfType, "pdf-type", "", "normal or scanned")
	cmd.Flags().StringVar(&f.step, "step", "", "3D model (.step/.stp)")
}

func (f *formFlags) input(kind tree.Kind) (form.Input, error) {
	in := form.Input{
		Kind:           kind,
		ID:             f.id,
		Name:           f.name,
		PDFContentType: f.pdfType,
		ChangeNote:     f.changeNote,
	}
	if f.projectID != 0 {
		in.ProjectID = &f.projectID
	}
	var err error
	if in.File2D, err = openAttachment(f.pdf); err != nil {
		return in, err
	}
	if in.File3D, err = openAttachment(f.step); err != nil {
		in.Close()
		return in, err
	}
	return in, nil
}

func openAttachment(path string) (*form.Attachment, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &form.Attachment{FileName: filepath.Base(path), Body: file}, nil
}

func submit(cmd *cobra.Command, in form.Input) error {
	s := newSession(cmd, false)
	res, err := s.form.Submit(cmd.Context(), in)
	if err != nil {
		var verrs form.ValidationErrors
		if errors.As(err, &verrs) {
			printValidationErrors(cmd.ErrOrStderr(), verrs)
		}
		return err
	}
	out := cmd.OutOrStdout()
	if res.Assembly != nil {
		fmt.Fprintf(out, "assembly #%d saved\n", res.Assembly.ID)
	}
	if res.Part != nil {
		fmt.Fprintf(out, "part #%d saved\n", res.Part.ID)
	}
	for _, d := range res.Documents {
		fmt.Fprintf(out, "uploaded %s v%d: %s\n", d.DocType, d.VersionNo, d.FileName)
	}
	return nil
}

// printValidationErrors 按字段名排序输出
func printValidationErrors(w io.Writer, verrs form.ValidationErrors) {
	for _, field := range slices.Sorted(maps.Keys(verrs)) {
		fmt.Fprintf(w, "  %s: %s\n", field, verrs[field])
	}
}

func newAssemblyCmd() *cobra.Command {
	var (
		f      formFlags
		parent string
	)
	cmd := &cobra.Command{
		Use:   "assembly",
		Short: "Create or update an assembly",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input(tree.KindAssembly)
			if err != nil {
				return err
			}
			in.ParentAssemblyID = parent
			return submit(cmd, in)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&parent, "parent", "", "parent assembly id")
	return cmd
}

func newPartCmd() *cobra.Command {
	var (
		f          formFlags
		number     string
		quantity   string
		assemblyID uint
	)
	cmd := &cobra.Command{
		Use:   "part",
		Short: "Create or update a part (needs --pdf and --step)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.input(tree.KindPart)
			if err != nil {
				return err
			}
			in.PartNumber = number
			in.Quantity = quantity
			if assemblyID != 0 {
				in.AssemblyID = &assemblyID
			}
			return submit(cmd, in)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&number, "number", "", "part number")
	cmd.Flags().StringVar(&quantity, "qty", "1", "quantity")
	cmd.Flags().UintVarP(&assemblyID, "assembly", "a", 0, "owning assembly id (omit for a direct part)")
	return cmd
}

func newSelectProjectCmd() *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "select-project [id]",
		Short: "Show, set or clear the remembered project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(newLogger())
			out := cmd.OutOrStdout()
			switch {
			case forget:
				if err := client.ClearSelectedProject(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "selection cleared")
			case len(args) == 1:
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := client.SetSelectedProject(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(out, "project %d selected\n", id)
			default:
				id, err := client.GetSelectedProject(cmd.Context())
				if err != nil {
					return err
				}
				if id == nil {
					fmt.Fprintln(out, "no project selected")
				} else {
					fmt.Fprintf(out, "project %d\n", *id)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&forget, "clear", false, "forget the selected project")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		secret string
		userID string
		name   string
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an HS256 token for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := middleware.GenerateToken(secret, userID, name, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret (env JWT_SECRET)")
	cmd.Flags().StringVar(&userID, "user", "dev", "user id")
	cmd.Flags().StringVar(&name, "name", "Developer", "display name")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "roles")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
