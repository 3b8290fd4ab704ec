package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optiplus/internal/csvparse"
	"optiplus/internal/model"
	"optiplus/internal/table"
)

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List uploaded datasets",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		PreRunE: c.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			items, err := api.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No datasets yet. Upload one with 'upload <file.csv>'.")
				return nil
			}
			return table.Render(out, table.Columns(listHeaders), summaryRows(items))
		},
	}
}

var listHeaders = []string{"ID", "Filename", "Uploaded", "Rows", "Columns", "Status"}

func summaryRows(items []model.Dataset) []model.Row {
	rows := make([]model.Row, 0, len(items))
	for _, ds := range items {
		r := model.NewRow(len(listHeaders))
		r.Set("ID", model.String(ds.ID))
		r.Set("Filename", model.String(ds.Filename))
		r.Set("Uploaded", model.String(ds.UploadDate.Local().Format(time.DateTime)))
		r.Set("Rows", model.Number(float64(ds.RowCount)))
		r.Set("Columns", model.String(strings.Join(ds.Headers, ", ")))
		status := "ok"
		if ds.Error != "" {
			status = ds.Error
		}
		r.Set("Status", model.String(status))
		rows = append(rows, r)
	}
	return rows
}

func newGetCmd(c *cli) *cobra.Command {
	var (
		sortKey string
		desc    bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:     "get <id>",
		Short:   "Show a dataset as a table",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			res, err := api.GetDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var sorter table.Sorter
			if sortKey != "" {
				if !slices.Contains(res.Dataset.Headers, sortKey) {
					return fmt.Errorf("unknown column %q (have: %s)", sortKey, strings.Join(res.Dataset.Headers, ", "))
				}
				sorter.Toggle(sortKey)
				if desc {
					sorter.Toggle(sortKey)
				}
			}
			rows := sorter.Sort(res.Data)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d rows, uploaded %s)\n\n", res.Dataset.Filename, res.Dataset.RowCount,
				res.Dataset.UploadDate.Local().Format(time.DateTime))
			return table.Render(out, table.Columns(res.Dataset.Headers), rows)
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", "", "column to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many rows")
	return cmd
}

func newUploadCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:     "upload <file.csv>",
		Short:   "Upload a CSV file",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])
			out := cmd.OutOrStdout()

			if dryRun {
				res, err := csvparse.ParseWithOptions(data, csvparse.Options{Preview: 3})
				if err != nil {
					return fmt.Errorf("parse %s: %w", name, err)
				}
				fmt.Fprintf(out, "%s parses: %d rows, columns: %s\n", name, res.RowCount, strings.Join(res.Headers, ", "))
				return nil
			}

			api, err := c.client()
			if err != nil {
				return err
			}
			res, err := api.UploadDataset(cmd.Context(), name, bytes.NewReader(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Uploaded %s as %s (%d rows)\n", res.Dataset.Filename, res.Dataset.ID, res.Dataset.RowCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only check that the file parses")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Short:   "Delete a dataset",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		PreRunE: c.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			if err := api.DeleteDataset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Dataset deleted successfully")
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "export <id>",
		Short:   "Download a dataset file",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := c.client()
			if err != nil {
				return err
			}
			exp, err := api.ExportDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), bytes.NewReader(exp.Content))
				return err
			}
			if output == "" {
				output = filepath.Base(exp.Filename)
			}
			if err := os.WriteFile(output, exp.Content, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes)\n", output, len(exp.Content))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file, '-' for stdout (default: original filename)")
	return cmd
}
