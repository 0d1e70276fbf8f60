package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumetailor/internal/common"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract plain text from a resume file",
	Long: `Extract the plain text of a .txt, .md or .pdf resume, exactly as it
would be placed in the resume field of the web form.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: resolveFormat(&extractConfig),
	RunE:    runExtract,
}

var extractConfig common.CommandConfig

func init() {
	addOutputFlags(extractCmd, &extractConfig)
}

func extractResult(doc extract.Document) types.ExtractResult {
	result := types.ExtractResult{
		FileName:  doc.SourceFileName,
		MediaType: doc.MediaType,
		Text:      doc.Text,
		Empty:     doc.Empty(),
	}
	if result.Empty {
		result.Notice = doc.EmptyNotice()
	}
	return result
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	extractor := extract.New(cfg.App.MaxFileSize, logger)
	doc, err := extractor.ExtractFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", args[0], err)
	}

	result := extractResult(doc)
	if result.Empty {
		logger.Warn("No text found in document", "file", result.FileName)
	}
	logger.Debug("Text extracted",
		"file", result.FileName,
		"media_type", result.MediaType,
		"characters", len(result.Text))

	return common.NewOutputHandler(logger).HandleOutput(result, extractConfig)
}
