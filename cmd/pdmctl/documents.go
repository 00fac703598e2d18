package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/nimo-pdm/internal/pdm/apiclient"
)

func newDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <doc-id>",
		Short: "Download a document file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			client := newClient(newLogger())
			return downloadDocument(cmd.Context(), client, id, output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (defaults to the stored file name)`)
	return cmd
}

// downloadDocument 下载文档，output 为空时使用文档的原始文件名
func downloadDocument(ctx context.Context, client *apiclient.Client, id uint, output string, stdout, stderr io.Writer) error {
	doc, err := client.GetDocument(ctx, id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("get document %d: %w", id, err)
	}

	if output == "-" {
		_, err := client.Download(ctx, *doc, stdout)
		return err
	}
	if output == "" {
		output = filepath.Base(doc.FileName)
		if doc.FileName == "" {
			output = fmt.Sprintf("document-%d.%s", doc.ID, doc.FileFormat)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	n, err := client.Download(ctx, *doc, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("download document %d: %w", id, err)
	}
	fmt.Fprintf(stderr, "saved %s v%d to %s (%d bytes)\n", doc.DocType, doc.VersionNo, output, n)
	return nil
}

func newDeleteDocCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-doc <doc-id>",
		Short: "Delete a single document version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				ok, err := promptConfirm(cmd.InOrStdin(), out, fmt.Sprintf("确定删除文档 #%d 吗？", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "cancelled")
					return nil
				}
			}
			if err := newClient(newLogger()).DeleteDocument(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete document %d: %w", id, err)
			}
			fmt.Fprintln(out, "deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
