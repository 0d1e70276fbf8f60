package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resumetailor/internal/ai"
	"resumetailor/internal/app"
	"resumetailor/internal/common"
	"resumetailor/internal/errors"
	"resumetailor/internal/experience"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

var promptCmd = &cobra.Command{
	Use:   "prompt --resume FILE --job FILE",
	Short: "Render the tailoring prompt without calling the model",
	Long: `Render the exact prompt the tailor command would send to Gemini.
Nothing is sent and no API key is needed, which makes it useful to check how
a PDF was extracted and how the career start date was interpreted.`,
	Args:    cobra.NoArgs,
	PreRunE: resolveFormat(&promptConfig.CommandConfig),
	RunE:    runPrompt,
}

var promptConfig tailorOptions

func init() {
	addInputFlags(promptCmd, &promptConfig)
	addOutputFlags(promptCmd, &promptConfig.CommandConfig)
}

// renderPrompt previews req at now. It applies the same input checks as a
// real generation, except for the API key.
func renderPrompt(req types.ResumeRequest, now time.Time) (types.PromptPreview, error) {
	check := app.NewPipeline(nil, nil, nil)
	if err := check.Prepare(req); err != nil && !isMissingKey(err) {
		return types.PromptPreview{}, err
	}

	prompt := ai.BuildTailorPrompt(req, now)
	preview := types.PromptPreview{
		Prompt:     prompt,
		Characters: len([]rune(prompt)),
	}
	if est := experience.Parse(req.CareerStart, now); est.Status == experience.Computed {
		years := est.Years
		preview.ExperienceYears = &years
	}
	return preview, nil
}

func runPrompt(cmd *cobra.Command, _ []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	render := func(_ context.Context, req types.ResumeRequest) (types.PromptPreview, *types.TokenUsage, error) {
		preview, err := renderPrompt(req, time.Now())
		return preview, nil, err
	}

	err := common.RunCommand(
		cmd.Context(),
		logger,
		extract.New(cfg.App.MaxFileSize, logger),
		promptConfig.CommandConfig,
		[]string{promptConfig.ResumeFile, promptConfig.JobFile},
		requestFromFiles(promptConfig.CareerStart),
		render,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	return nil
}

func isMissingKey(err error) bool {
	return errors.HasCode(err, errors.ErrCodeMissingAPIKey)
}
