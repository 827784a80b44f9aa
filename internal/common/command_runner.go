package common

import (
	"context"
	"fmt"

	"candidly/internal/errors"
)

// ReadInputFunc builds a command's input from its arguments.
type ReadInputFunc[Input any] func(fp *FileProcessor, args []string) (Input, error)

// LogDetailsFunc logs the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is the work a command performs.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand reads the input, runs the operation and writes its result.
func RunCommand[Input, Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	maxFileSize int64,
	args []string,
	readInput ReadInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) error {
	fileProcessor := NewFileProcessor(logger, maxFileSize)
	outputHandler := NewOutputHandler(logger)

	input, err := readInput(fileProcessor, args)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	result, err := operation(ctx, input)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
