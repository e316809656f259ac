package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/darklens/internal/acquire"
	"github.com/ppiankov/darklens/internal/logging"
	"github.com/ppiankov/darklens/internal/model"
	"github.com/ppiankov/darklens/internal/render"
	"github.com/ppiankov/darklens/internal/session"
)

var (
	scanURL        string
	outJSON        string
	outMD          string
	outYAML        string
	focus          int
	timeout        time.Duration
	captureBackend string
	respectRobots  bool
	noCache        bool
	noFooter       bool
	quiet          bool
	llmProvider    string
	llmModel       string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Audit a screenshot or a live website for dark patterns",
	Long: `Scan audits one interface for manipulative design:
- Upload a PNG, JPEG or WebP screenshot, or capture a live URL
- Locate each dark pattern with a bounding box
- Rate severity and confidence, explain the exploited bias
- Propose an ethical redesign per finding
- Score overall trust and dark-pattern risk

Live captures are fresh unless cache.enabled is set in the config. With the
cache on, a URL scanned again within cache.memory_ttl or cache.disk_ttl is
audited from the earlier capture, which may not show the current page.

Example:
  darklens scan checkout.png
  darklens scan --url shop.example.com --md report.md
  darklens scan cart.webp --json report.json --focus 2
  darklens scan --url example.com --llm-provider ollama --llm-model llava`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Input flags
	scanCmd.Flags().StringVar(&scanURL, "url", "", "capture and audit a live website instead of a file")

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().StringVar(&outYAML, "yaml", "", "output YAML path (optional)")
	scanCmd.Flags().IntVar(&focus, "focus", 0, "expand the Nth finding in the summary (1-based)")
	scanCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	scanCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress phases")

	// Capture flags
	scanCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall scan timeout")
	scanCmd.Flags().StringVar(&captureBackend, "capture", "", "capture backend (thumio, chromedp)")
	scanCmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "skip sites whose robots.txt disallows the capture agent")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "force a fresh capture even when cache.enabled is set")

	// LLM flags
	scanCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	scanCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runScan(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (scanURL == "") {
		return errors.New("give exactly one of an image path or --url")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg)

	logger := logging.NewStderrLogger("darklens", cfg.Output.Verbose)

	acquirer, err := buildAcquirer(cfg, logger)
	if err != nil {
		return err
	}
	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	outputs := render.Outputs{
		JSONPath: cfg.Output.JSONPath,
		MDPath:   cfg.Output.MDPath,
		YAMLPath: cfg.Output.YAMLPath,
		Focus:    focus,
	}
	presenter := render.NewReportPresenter(render.NewRenderer(version, !noFooter), os.Stdout, outputs, analyzer.ProviderName(), logger)

	opts := []session.Option{session.WithPresenter(presenter), session.WithLogger(logger)}
	if !quiet {
		opts = append(opts, session.WithProgress(func(phase string) {
			fmt.Fprintf(os.Stderr, "⚙️  %s\n", phase)
		}))
	}
	controller := session.NewController(acquirer, analyzer, opts...)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if scanURL != "" {
		_, err = controller.StartFromURL(ctx, scanURL)
	} else {
		err = scanFile(ctx, controller, args[0])
	}
	if err != nil {
		return fmt.Errorf("scan failed: %s", session.Message(err))
	}

	if err := presenter.Err(); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

func scanFile(ctx context.Context, controller *session.Controller, path string) error {
	file, closer, err := acquire.OpenFile(path)
	if err != nil {
		return model.NewError(model.ErrReadError, path, err)
	}
	defer func() { _ = closer.Close() }()

	_, err = controller.StartFromUpload(ctx, file)
	return err
}

// applyScanFlags lets explicitly set flags override file and environment config
func applyScanFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("json") {
		cfg.Output.JSONPath = outJSON
	}
	if flags.Changed("md") {
		cfg.Output.MDPath = outMD
	}
	if flags.Changed("yaml") {
		cfg.Output.YAMLPath = outYAML
	}
	if flags.Changed("capture") {
		cfg.Capture.Backend = captureBackend
	}
	if flags.Changed("respect-robots") {
		cfg.Capture.RespectRobots = respectRobots
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
		// The default model belongs to the default provider
		if !flags.Changed("llm-model") {
			cfg.LLM.Model = ""
		}
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if verbose {
		cfg.Output.Verbose = true
	}
}
