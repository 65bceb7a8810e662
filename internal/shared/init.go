// Package shared provides common initialization utilities shared by the server
// and the command line tools.
package shared

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/configfiles"
	"github.com/verustcode/materiality/internal/content"
	"github.com/verustcode/materiality/internal/mapping"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/pkg/logger"
)

// Services holds the report services built from the configuration
type Services struct {
	Mappings  *mapping.Store
	Content   *content.FileRepository
	Generator *report.Generator
	Exports   *exporter.ExportManager
}

// InitServices loads the mapping tables and the stylesheet and wires the
// generator and exporters on top of them.
func InitServices(cfg *config.Config) (*Services, error) {
	mappings, err := mapping.Open(cfg.Mappings.Path)
	if err != nil {
		return nil, err
	}
	return InitServicesWithMappings(cfg, mappings)
}

// InitServicesWithMappings is InitServices over an already opened mapping store
func InitServicesWithMappings(cfg *config.Config, mappings *mapping.Store) (*Services, error) {
	stylesheet, err := configfiles.LoadStylesheet(cfg.Content.Stylesheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load stylesheet: %w", err)
	}

	repo := content.NewFileRepository(cfg.Content.Dir)
	gen := report.NewGenerator(mappings, repo, report.Options{
		Strict:     cfg.Report.IsStrict(),
		Title:      cfg.Report.Title,
		AssetDir:   cfg.Content.AssetDir,
		Stylesheet: stylesheet,
		Language:   cfg.Report.GetLanguage().String(),
	})
	exports := exporter.NewDefaultManager(stylesheet, exporter.PDFOptionsFromConfig(cfg.Export))

	logger.Info("Report services initialized",
		zap.String("content_dir", cfg.Content.Dir),
		zap.String("mappings", cfg.Mappings.Path),
		zap.Bool("strict", cfg.Report.IsStrict()),
		zap.String("language", cfg.Report.GetLanguage().String()),
		zap.Int("export_formats", len(exports.SupportedFormats())),
	)

	return &Services{
		Mappings:  mappings,
		Content:   repo,
		Generator: gen,
		Exports:   exports,
	}, nil
}

// StartBackground starts the mapping reloader; an empty schedule leaves it off
func (s *Services) StartBackground(cfg *config.Config) error {
	return s.Mappings.StartReloader(cfg.Mappings.ReloadSchedule)
}

// Close stops background jobs
func (s *Services) Close() {
	if s.Mappings != nil {
		s.Mappings.Stop()
	}
}
