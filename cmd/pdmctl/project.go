package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
	"github.com/bitfantasy/nimo-pdm/internal/pdm/entity"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Show, save or delete a single project",
	}
	cmd.AddCommand(newProjectShowCmd(), newProjectSaveCmd(), newProjectDeleteCmd())
	return cmd
}

func newProjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := newClient(newLogger()).GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			printProject(cmd.OutOrStdout(), *p)
			return nil
		},
	}
}

// projectFlags 项目表单参数，更新时只提交显式给出的字段
type projectFlags struct {
	id        uint
	number    string
	name      string
	customer  string
	reference string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.UintVar(&f.id, "id", 0, "existing project id to update")
	flags.StringVar(&f.number, "number", "", "project number")
	flags.StringVar(&f.name, "name", "", "project name")
	flags.StringVar(&f.customer, "customer", "", "customer details")
	flags.StringVar(&f.reference, "ref", "", "reference number")
}

// apply 将已设置的参数写入 p
func (f *projectFlags) apply(cmd *cobra.Command, p *entity.Project) {
	flags := cmd.Flags()
	if flags.Changed("number") {
		p.ProjectNumber = f.number
	}
	if flags.Changed("name") {
		p.Name = f.name
	}
	if flags.Changed("customer") {
		p.CustomerDetails = &f.customer
	}
	if flags.Changed("ref") {
		p.ReferenceNo = &f.reference
	}
}

// saveProject id 为0时创建，否则读取后合并参数再更新
func saveProject(ctx context.Context, client *apiclient.Client, f *projectFlags, cmd *cobra.Command) (*entity.Project, error) {
	if f.id == 0 {
		if f.number == "" || f.name == "" {
			return nil, fmt.Errorf("--number and --name are required to create a project")
		}
		var p entity.Project
		f.apply(cmd, &p)
		return client.CreateProject(ctx, p)
	}
	p, err := client.GetProject(ctx, f.id)
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", f.id, err)
	}
	f.apply(cmd, p)
	return client.UpdateProject(ctx, *p)
}

func newProjectSaveCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a project, or update one with --id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := saveProject(cmd.Context(), newClient(newLogger()), &f, cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "project #%d saved\n", p.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newProjectDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with all of its assemblies, parts and documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := promptConfirm(cmd.InOrStdin(), out, fmt.Sprintf("确定删除项目 #%d 及其全部装配体和零件吗？", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "cancelled")
					return nil
				}
			}
			if err := newClient(newLogger()).DeleteProject(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete project %d: %w", id, err)
			}
			fmt.Fprintln(out, "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func printProject(w io.Writer, p entity.Project) {
	fmt.Fprintf(w, "#%d %s %s\n", p.ID, p.ProjectNumber, p.Name)
	if p.ReferenceNo != nil && *p.ReferenceNo != "" {
		fmt.Fprintf(w, "reference: %s\n", *p.ReferenceNo)
	}
	if p.CustomerDetails != nil && *p.CustomerDetails != "" {
		fmt.Fprintf(w, "customer:  %s\n", *p.CustomerDetails)
	}
	if p.CreatedBy != "" {
		fmt.Fprintf(w, "created by %s at %s\n", p.CreatedBy, p.CreatedAt.Format("2006-01-02 15:04"))
	}
}
