package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"candidly/internal/errors"
	"candidly/internal/types"
	"candidly/internal/utils"
)

// LoadRequirements reads job requirements for the scoring and evaluation
// commands. YAML and JSON files are decoded into the structured form; any
// other file is taken as free-text requirements.
func LoadRequirements(fp *FileProcessor, filename string) (types.JobRequirements, error) {
	if filename == "" {
		return types.JobRequirements{}, nil
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return types.JobRequirements{}, err
	}

	var reqs types.JobRequirements
	switch utils.GetFileExtension(filename) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &reqs)
	case ".json":
		err = json.Unmarshal(data, &reqs)
	default:
		reqs.Requirements = strings.TrimSpace(string(data))
		return reqs, nil
	}
	if err != nil {
		return types.JobRequirements{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot parse requirements file: %s", filename), err)
	}
	return reqs, nil
}
