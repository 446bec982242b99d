package common

import (
	"context"
	"fmt"
	"io"

	"jdroaster/internal/errors"
)

// CommandEnv carries what every file-driven command needs. Nil streams
// default to the process's stdin and stdout.
type CommandEnv struct {
	Logger      *errors.Logger
	Stdin       io.Reader
	Stdout      io.Writer
	MaxFileSize int64
}

// CreateInputFunc defines how to build the operation input from the raw content.
type CreateInputFunc[Input any] func(content string) (Input, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc[Input any] func(input Input, cfg CommandConfig)

// OperationFunc is the work a command performs on its input.
type OperationFunc[Input, Output any] func(context.Context, Input) (Output, error)

// RunCommand reads the input named by arg (a file, or stdin for "" and "-"),
// runs the operation and writes its formatted result. The result is also
// returned so callers can act on it after output has been written.
func RunCommand[Input, Output any](
	ctx context.Context,
	env CommandEnv,
	cmdConfig CommandConfig,
	arg string,
	createInput CreateInputFunc[Input],
	operation OperationFunc[Input, Output],
	logDetails LogDetailsFunc[Input],
) (Output, error) {
	var zero Output

	fileProcessor := NewFileProcessor(env.Logger, env.MaxFileSize, env.Stdin)
	outputHandler := NewOutputHandler(env.Logger, env.Stdout)

	content, err := fileProcessor.ReadInput(arg)
	if err != nil {
		return zero, err
	}

	input, err := createInput(content)
	if err != nil {
		return zero, fmt.Errorf("failed to create input from content: %w", err)
	}

	if logDetails != nil {
		logDetails(input, cmdConfig)
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := operation(ctx, input)
	if err != nil {
		return zero, err
	}

	if err := outputHandler.HandleOutput(result, cmdConfig); err != nil {
		return zero, err
	}
	return result, nil
}
