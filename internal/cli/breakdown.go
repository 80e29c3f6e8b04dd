package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	saveArtifacts   string
	outputDir       string
	exportDir       string
	browser         string
	sessionMode     string
	sessionFile     string
	skipSession     bool
	nonInteractive  bool
	quality         string
	llmModel        string
	runTimeout      time.Duration
	userAgent       string
	maxFrames       int
	inputVideo      string
	inputImages     []string
	inputAudio      string
	inputTranscript []string
)

// breakdownCmd represents the breakdown command
var breakdownCmd = &cobra.Command{
	Use:   "breakdown <url>",
	Short: "Break down a post URL into a cited, structured report",
	Long: `Breakdown classifies the URL's platform, fetches the material through
the adapter chain, extracts multi-modal signals (frames, OCR text,
transcript), analyzes them, and writes report.json + report.md into a
timestamped run directory.

Analysis uses the configured LLM when OPENAI_API_KEY is set and falls
back to the deterministic rule-based analyzer otherwise.

Example:
  vcb breakdown https://v.douyin.com/xxxx/
  vcb breakdown https://mp.weixin.qq.com/s/xxxx --save-artifacts never
  vcb breakdown https://v.douyin.com/xxxx/ --input-video local.mp4 --skip-session`,
	Args: cobra.ExactArgs(1),
	RunE: runBreakdown,
}

func init() {
	rootCmd.AddCommand(breakdownCmd)

	// Output flags
	breakdownCmd.Flags().StringVar(&saveArtifacts, "save-artifacts", "ask", "retention of downloaded media after the report is written (ask, always, never)")
	breakdownCmd.Flags().StringVar(&outputDir, "output-dir", "", "base directory for run directories (default: ./vcb_runs)")
	breakdownCmd.Flags().StringVar(&exportDir, "export-dir", "", "also export the report under <dir>/<date>-<title-slug>/")
	breakdownCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; retention 'ask' keeps artifacts")

	// Fetch flags
	breakdownCmd.Flags().StringVar(&quality, "quality", "high", "preferred download quality")
	breakdownCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")
	breakdownCmd.Flags().StringVar(&userAgent, "ua", "", "override HTTP User-Agent for the article adapters")

	// Session flags
	breakdownCmd.Flags().StringVar(&browser, "browser", "safari", "browser for QR login (safari, chromium)")
	breakdownCmd.Flags().StringVar(&sessionMode, "session-mode", "qr-login", "session acquisition mode")
	breakdownCmd.Flags().StringVar(&sessionFile, "session-file", "", "use a previously saved session handle instead of logging in")
	breakdownCmd.Flags().BoolVar(&skipSession, "skip-session", false, "attempt the fetch without any session")

	// Analysis flags
	breakdownCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name (default from config)")
	breakdownCmd.Flags().IntVar(&maxFrames, "max-frames", 0, "max key frames to sample (default from config)")

	// Manual input overrides, bypassing the fetch chain
	breakdownCmd.Flags().StringVar(&inputVideo, "input-video", "", "analyze a local video file instead of fetching")
	breakdownCmd.Flags().StringArrayVar(&inputImages, "input-image", nil, "analyze local image files instead of fetching (repeatable)")
	breakdownCmd.Flags().StringVar(&inputAudio, "input-audio", "", "analyze a local audio file instead of fetching")
	breakdownCmd.Flags().StringArrayVar(&inputTranscript, "input-transcript", nil, "use local transcript or article text files (repeatable)")
}

func runBreakdown(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := breakdownConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Breaking down: %s\n", url)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", runTimeout)
		if cfg.LLM.APIKey == "" {
			fmt.Fprintln(os.Stderr, "No OPENAI_API_KEY: using rule-based analyzer")
		}
		fmt.Fprintln(os.Stderr)
	}

	p := pipeline.New(cfg, promptYesNo, logger)
	outcome, err := p.Run(ctx, pipeline.Options{
		URL:         url,
		InputVideo:  inputVideo,
		InputImages: inputImages,
		InputAudio:  inputAudio,
		InputTexts:  inputTranscript,
		SessionFile: sessionFile,
		SkipSession: skipSession,
		OutputDir:   outputDir,
		ExportDir:   exportDir,
	})
	if err != nil {
		var structured *model.StructuredError
		if errors.As(err, &structured) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", structured.Code, structured.Reason)
			fmt.Fprintf(os.Stderr, "Next: %s\n", structured.NextAction)
			return fmt.Errorf("breakdown failed: %s", structured.Code)
		}
		return fmt.Errorf("breakdown failed: %w", err)
	}

	if verbose {
		r := outcome.Report
		fmt.Fprintf(os.Stderr, "✓ Platform: %s (%s)\n", r.Meta.Platform, r.Meta.ContentType)
		fmt.Fprintf(os.Stderr, "✓ Analysis mode: %s\n", r.Meta.AnalysisMode)
		fmt.Fprintf(os.Stderr, "✓ Overall confidence: %.2f\n", r.ConfidenceOverall)
		if len(r.Limitations) > 0 {
			fmt.Fprintf(os.Stderr, "✓ Limitations recorded: %d\n", len(r.Limitations))
		}
		fmt.Fprintln(os.Stderr)
	}

	fmt.Printf("Report: %s\n", outcome.ReportPath)
	if outcome.ExportDir != "" {
		fmt.Printf("Export: %s\n", outcome.ExportDir)
	}
	return nil
}

// breakdownConfig assembles the run configuration from defaults and flags.
func breakdownConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	switch saveArtifacts {
	case "ask", "always", "never":
		cfg.Output.SaveArtifacts = saveArtifacts
	default:
		return nil, fmt.Errorf("invalid --save-artifacts %q (want ask, always, or never)", saveArtifacts)
	}
	switch browser {
	case "safari", "chromium":
		cfg.Session.Browser = browser
	default:
		return nil, fmt.Errorf("invalid --browser %q (want safari or chromium)", browser)
	}
	if sessionMode != "qr-login" {
		return nil, fmt.Errorf("invalid --session-mode %q (only qr-login is supported)", sessionMode)
	}
	cfg.Session.Mode = sessionMode
	cfg.Session.File = sessionFile
	cfg.Fetch.Quality = quality
	cfg.Output.Dir = outputDir
	cfg.Output.NonInteractive = nonInteractive
	cfg.Output.Verbose = verbose
	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if maxFrames > 0 {
		cfg.Extract.MaxFrames = maxFrames
	}

	// The key's absence is not an error: analysis degrades to the
	// rule-based path and the report records the limitation.
	cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	return cfg, nil
}

// promptYesNo asks on stderr and reads one line from stdin. Anything
// other than an explicit yes declines.
func promptYesNo(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
