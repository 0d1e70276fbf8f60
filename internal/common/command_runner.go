// Package common holds the plumbing shared by the file based CLI commands.
package common

import (
	"context"
	"fmt"
	"os"

	"resumetailor/internal/errors"
	"resumetailor/internal/extract"
	"resumetailor/internal/types"
)

// CreateInputFunc builds the operation input from the contents of the
// command's input files, in the order they were given.
type CreateInputFunc[Input any] func(contents []string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc runs the command. usage is nil for operations that do not
// call the model.
type OperationFunc[Input, Output any] func(ctx context.Context, input Input) (output Output, usage *types.TokenUsage, err error)

// RunCommand reads paths, builds the input, runs op and writes the result
// in the configured format.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	extractor *extract.Extractor,
	cmdConfig CommandConfig,
	paths []string,
	createInput CreateInputFunc[Input],
	op OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(extractor, logger)
	outputHandler := NewOutputHandler(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(paths...)
	if err != nil {
		return err
	}

	input, err := createInput(contents)
	if err != nil {
		return fmt.Errorf("failed to create input from file contents: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, usage, err := op(ctx, input)
	if err != nil {
		return err
	}

	if usage != nil {
		if logger != nil {
			logger.Info("AI token usage",
				"prompt_tokens", usage.PromptTokens,
				"candidates_tokens", usage.CandidatesTokens,
				"total_tokens", usage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "AI token usage: prompt=%d, output=%d, total=%d\n",
				usage.PromptTokens, usage.CandidatesTokens, usage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
