package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/materiality/internal/config"
	"github.com/verustcode/materiality/internal/database"
	"github.com/verustcode/materiality/internal/report"
	"github.com/verustcode/materiality/internal/report/exporter"
	"github.com/verustcode/materiality/internal/selection"
	"github.com/verustcode/materiality/internal/shared"
	"github.com/verustcode/materiality/internal/store"
	"github.com/verustcode/materiality/pkg/logger"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a report offline to a file",
	Long: `Generate a report without the server and write it to a file.

The answers come from a selections file (YAML or JSON):
  report_type: Institutional
  institution: Bank
  selections:
    - category: Real Estate
      values: ["Bank|Real Estate|Office|Loan|High"]
    - category: Scenarios
      values: ["Orderly Transition"]

or from a stored session with --session. Categories are applied in file order.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringP("file", "f", "", "selections file")
	renderCmd.Flags().String("session", "", "stored session id")
	renderCmd.Flags().String("format", "html", "output format (html, pdf, markdown, json)")
	renderCmd.Flags().StringP("out", "o", ".", "output directory")
}

// renderInput is the selections file
type renderInput struct {
	ReportType  string           `yaml:"report_type"`
	Institution string           `yaml:"institution"`
	Selections  []renderCategory `yaml:"selections"`
}

type renderCategory struct {
	Category string   `yaml:"category"`
	Values   []string `yaml:"values"`
}

func runRender(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	sessionID, _ := cmd.Flags().GetString("session")
	if (file == "") == (sessionID == "") {
		return fmt.Errorf("exactly one of --file or --session is required")
	}
	format, err := exporter.ParseFormat(mustString(cmd, "format"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(resolveConfigPath())
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()

	var req *report.Request
	if file != "" {
		req, err = requestFromFile(file)
	} else {
		req, err = requestFromSession(cfg, sessionID)
	}
	if err != nil {
		return err
	}

	services, err := shared.InitServices(cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := services.Generator.Generate(ctx, req)
	if err != nil {
		return err
	}
	path, out, err := services.Exports.ExportToFile(ctx, res, mustString(cmd, "out"), format)
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	for _, w := range res.Warnings {
		yellow.Printf("⚠ %s\n", w.Message)
	}
	if res.ErrorFlag {
		yellow.Printf("⚠ %s\n", res.ErrorMessage)
	}
	if out.Fallback {
		yellow.Printf("⚠ PDF rendering failed; wrote HTML instead\n")
	}
	color.New(color.FgGreen).Printf("✓ %s\n", path)
	return nil
}

// requestFromFile builds a generation request from a selections file
func requestFromFile(path string) (*report.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selections file: %w", err)
	}
	var in renderInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse selections file: %w", err)
	}
	return in.request()
}

func (in renderInput) request() (*report.Request, error) {
	rt, err := selection.ParseReportType(in.ReportType)
	if err != nil {
		return nil, err
	}
	institution := in.Institution
	if rt != selection.ReportInstitutional || institution == "" {
		institution = selection.NotApplicable
	}

	sel := selection.New()
	for _, c := range in.Selections {
		records, err := selection.BuildRecords(rt, institution, c.Category, c.Values)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Category, err)
		}
		sel.Set(c.Category, records)
	}
	return &report.Request{ReportType: rt, Institution: institution, Selections: sel}, nil
}

// requestFromSession loads a stored session and its answers
func requestFromSession(cfg *config.Config, id string) (*report.Request, error) {
	opts := database.Options{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout()}
	if err := database.Open(opts); err != nil {
		return nil, err
	}
	defer database.Close()
	s := store.NewStore(database.Get())

	session, err := s.Session().GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	sel, err := s.Selection().Load(id)
	if err != nil {
		return nil, err
	}
	return &report.Request{
		SessionID:   session.ID,
		ReportType:  selection.ReportType(session.ReportType),
		Institution: session.Institution,
		Selections:  sel,
	}, nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
