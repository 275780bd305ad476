package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bookcore/internal/importer"
	"github.com/iliyamo/bookcore/internal/repository"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load data into the catalog",
	}

	var file string
	books := &cobra.Command{
		Use:   "books",
		Short: "Import legacy book documents from a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			docs, err := importer.Decode(f)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rep, err := importer.Import(cmd.Context(), repository.NewMySQLStore(db).Books(), docs, cliLogger())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "inserted %d, updated %d, skipped %d\n", rep.Inserted, rep.Updated, len(rep.Skipped))
			for _, s := range rep.Skipped {
				fmt.Fprintf(out, "  #%d: %s\n", s.Index, s.Reason)
			}
			if n := len(rep.MarkedUnavailable); n > 0 {
				fmt.Fprintf(out, "%d book(s) flagged unavailable in the export were stored available\n", n)
			}
			return nil
		},
	}
	books.Flags().StringVarP(&file, "file", "f", "", "path to the JSON document array")
	_ = books.MarkFlagRequired("file")

	cmd.AddCommand(books)
	return cmd
}
