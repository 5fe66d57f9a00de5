package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/baladia/taxe/internal/models"
	"github.com/baladia/taxe/internal/repository"
	"github.com/baladia/taxe/internal/services"
)

// propertyImporter is the part of services.PropertyService used by import.
type propertyImporter interface {
	CreateProperty(ctx context.Context, p *models.Property) (*models.Property, error)
	ArchiveProperty(ctx context.Context, id int64) (*models.Property, error)
}

// importedArticle is one line of the import report.
type importedArticle struct {
	TaxAmount string `json:"taxAmount,omitempty"`
	Error     string `json:"error,omitempty"`
	Index     int    `json:"index"`
	LegacyID  int64  `json:"legacyId,omitempty"`
	ID        int64  `json:"id,omitempty"`
	Archived  bool   `json:"archived,omitempty"`
}

type importReport struct {
	Articles []importedArticle `json:"articles"`
	Imported int               `json:"imported"`
	Failed   int               `json:"failed"`
}

func newImportCmd() *cobra.Command {
	var (
		dryRun      bool
		stopOnError bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import articles exported by the former application",
		Long: `Reads a JSON document holding one legacy article or an array of them,
in either the flat or the nested shape, and registers each one as a property.
Taxes are recomputed; legacy ids are reported but not kept. Use - for stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			props, err := decodeLegacyArticles(data)
			if err != nil {
				return err
			}

			if dryRun {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"articles": len(props)})
			}

			_, db, log, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			svc := services.NewPropertyService(repository.NewPropertyRepository(db), db, log)
			report := importArticles(cmd.Context(), svc, props, stopOnError)
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d article(s) failed", report.Failed, len(props))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only decode and convert the articles")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first article that fails")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeLegacyArticles converts a single article or an array of articles.
func decodeLegacyArticles(data []byte) ([]*models.Property, error) {
	data = bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode article list: %w", err)
		}
	} else {
		raw = []json.RawMessage{data}
	}

	props := make([]*models.Property, 0, len(raw))
	for i, doc := range raw {
		article, err := models.ParseLegacyArticle(doc)
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", i, err)
		}
		p, err := article.ToProperty()
		if err != nil {
			return nil, fmt.Errorf("article %d: %w", i, err)
		}
		props = append(props, p)
	}
	return props, nil
}

func importArticles(ctx context.Context, svc propertyImporter, props []*models.Property, stopOnError bool) importReport {
	report := importReport{Articles: make([]importedArticle, 0, len(props))}
	for i, p := range props {
		line := importedArticle{Index: i, LegacyID: p.ID}
		archive := p.Archived
		p.ID = 0

		created, err := svc.CreateProperty(ctx, p)
		if err == nil {
			line.ID = created.ID
			if archive {
				created, err = svc.ArchiveProperty(ctx, created.ID)
			}
		}
		if err != nil {
			line.Error = err.Error()
			report.Failed++
			report.Articles = append(report.Articles, line)
			if stopOnError {
				break
			}
			continue
		}

		line.TaxAmount = created.TaxAmount.StringFixed(2)
		line.Archived = created.Archived
		report.Imported++
		report.Articles = append(report.Articles, line)
	}
	return report
}
