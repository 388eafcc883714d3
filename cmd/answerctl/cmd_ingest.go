package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/answerdesk/answerdesk/pkg/models"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest text files into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunkSize, _ := cmd.Flags().GetInt("chunk-size")
			overlap, _ := cmd.Flags().GetInt("overlap")

			req := models.IngestRequest{
				ChunkSize: chunkSize,
				Overlap:   overlap,
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				req.Documents = append(req.Documents, models.IngestDocument{
					// File path doubles as the document ID so re-ingesting a
					// file replaces its previous chunks.
					ID:      path,
					Content: string(data),
					Metadata: map[string]string{
						"filename": filepath.Base(path),
					},
				})
			}

			var result models.IngestResult
			if err := newClient(cmd).do("POST", "/api/v1/ingest", req, &result); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				printJSON(result)
				return nil
			}

			boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
			fmt.Printf("%s %d document(s), %d chunk(s) indexed in %dms\n",
				boldCyan("Ingested"), result.DocumentsIngested, result.ChunksIndexed, result.ElapsedMs)
			return nil
		},
	}
	cmd.Flags().Int("chunk-size", 0, "Chunk size in characters (server default when 0)")
	cmd.Flags().Int("overlap", 0, "Chunk overlap in characters (server default when 0)")
	return cmd
}
