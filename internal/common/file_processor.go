package common

import (
	"fmt"
	"os"

	"candidly/internal/errors"
	"candidly/internal/utils"
)

// FileProcessor reads CLI inputs and writes CLI outputs.
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a processor that refuses inputs over maxSize
// bytes. A non-positive maxSize disables the limit.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadFile returns the raw bytes of filename.
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		code := errors.ErrCodeFileNotReadable
		if _, statErr := os.Stat(filename); os.IsNotExist(statErr) {
			code = errors.ErrCodeFileNotFound
		}
		return nil, errors.NewIOError(code, fmt.Sprintf("Invalid file %s", filename), err)
	}

	data, err := utils.ReadLimited(filename, fp.maxSize)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}

	if fp.logger != nil {
		fp.logger.Debug("Input file read", "filename", filename, "size", utils.FormatFileSize(int64(len(data))))
	}
	return data, nil
}

// ReadText reads filename as text.
func (fp *FileProcessor) ReadText(filename string) (string, error) {
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes content to filename, creating its directory.
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for: %s", filename), err)
	}

	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
