package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/jobscout/scraper"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		baseURL    string
		maxResults int
	)
	cmd := &cobra.Command{
		Use:   "extract <file.html|->",
		Short: "Extract job records from a saved HTML page and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			ext, err := scraper.NewExtractor(scraper.DefaultTable(), a.cfg.Extractor.Timeout)
			if err != nil {
				return err
			}
			limit := a.cfg.Extractor.MaxResults
			if cmd.Flags().Changed("max-results") {
				limit = maxResults
			}

			records, err := ext.ExtractHTML(r, baseURL, limit)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "https://www.linkedin.com/", "URL relative links are resolved against")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "maximum records to keep (default from config)")
	return cmd
}
