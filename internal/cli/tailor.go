package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/app"
	"resumetailor/internal/common"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

var tailorCmd = &cobra.Command{
	Use:   "tailor --resume FILE --job FILE",
	Short: "Tailor a resume for a specific job description",
	Long: `Tailor your resume for a specific job description using Gemini.
The resume may be a .txt, .md or .pdf file; the job description is read as
text. The optional career start date (e.g. 2018 or 05/2018) lets the model
state your years of experience.`,
	Args:    cobra.NoArgs,
	PreRunE: resolveFormat(&tailorConfig.CommandConfig),
	RunE:    runTailor,
}

type tailorOptions struct {
	common.CommandConfig
	ResumeFile  string
	JobFile     string
	CareerStart string
}

var tailorConfig tailorOptions

func init() {
	addInputFlags(tailorCmd, &tailorConfig)
	addOutputFlags(tailorCmd, &tailorConfig.CommandConfig)

	tailorCmd.Flags().String("model", "", "Gemini model name (overrides config)")
	bindFlag(tailorCmd, "ai.model", "model")
}

func addInputFlags(cmd *cobra.Command, opts *tailorOptions) {
	cmd.Flags().StringVarP(&opts.ResumeFile, "resume", "r", "", "Resume file (.txt, .md or .pdf)")
	cmd.Flags().StringVarP(&opts.JobFile, "job", "j", "", "Job description file")
	cmd.Flags().StringVar(&opts.CareerStart, "career-start", "", "Career start date: YYYY or MM/YYYY")
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagFilename("resume", "txt", "md", "pdf")
}

func addOutputFlags(cmd *cobra.Command, cfg *common.CommandConfig) {
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cfg.OutputFormat, "format", "", "Output format: text, json, or markdown")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// resolveFormat applies the configured default format and validates it.
func resolveFormat(cfg *common.CommandConfig) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		appCfg := getConfigFromContext(cmd.Context())
		if cfg.OutputFormat == "" {
			cfg.OutputFormat = appCfg.App.DefaultFormat
		}
		cfg.OutputFormat = common.NormalizeFormat(cfg.OutputFormat)
		return common.ValidateOutputFormat(cfg.OutputFormat, appCfg.App.SupportedFormats)
	}
}

// requestFromFiles pairs the contents read for [resume, job] with the
// career start flag.
func requestFromFiles(careerStart string) common.CreateInputFunc[types.ResumeRequest] {
	return func(contents []string) (types.ResumeRequest, error) {
		if len(contents) != 2 {
			return types.ResumeRequest{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return types.ResumeRequest{
			OriginalResume: contents[0],
			JobDescription: contents[1],
			CareerStart:    careerStart,
		}, nil
	}
}

func runTailor(cmd *cobra.Command, _ []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	creds, _, err := newCredentials(cfg, logger)
	if err != nil {
		return err
	}

	provider, err := ai.NewProvider(cfg.AI, creds, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer func() { _ = provider.Close() }()

	extractor := extract.New(cfg.App.MaxFileSize, logger)
	pipeline := app.NewPipeline(provider, creds, logger)

	logDetails := func(req types.ResumeRequest, out common.CommandConfig) {
		logger.Info("Starting resume tailoring",
			"resume_chars", len(req.OriginalResume),
			"job_chars", len(req.JobDescription),
			"career_start", req.CareerStart,
			"output_format", out.OutputFormat)
	}

	tailor := func(ctx context.Context, req types.ResumeRequest) (*types.TailorResult, *types.TokenUsage, error) {
		result, err := pipeline.Run(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		return result, result.Usage, nil
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		extractor,
		tailorConfig.CommandConfig,
		[]string{tailorConfig.ResumeFile, tailorConfig.JobFile},
		requestFromFiles(tailorConfig.CareerStart),
		tailor,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to tailor resume: %w", err)
	}
	logger.Info("Resume tailoring completed successfully")
	return nil
}
