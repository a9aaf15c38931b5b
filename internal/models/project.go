package models

import (
	"fmt"
	"strings"
)

// ProjectInfo summarizes a stored project.
type ProjectInfo struct {
	Name            string `json:"name"`
	TotalCodeBlocks int64  `json:"total_code_blocks"`
}

// ProjectRequest is the body of project create and generate requests.
type ProjectRequest struct {
	ProjectName string `json:"project_name"`
	ProjectPath string `json:"project_path"`
}

// Validate checks the project name and trims surrounding whitespace from the path.
func (r *ProjectRequest) Validate() error {
	r.ProjectPath = strings.TrimSpace(r.ProjectPath)
	return ValidateProjectName(r.ProjectName)
}

// GenerateResponse is returned after blocks were generated for a project.
type GenerateResponse struct {
	ProjectName string `json:"project_name"`
	ProjectPath string `json:"project_path"`
	Message     string `json:"message"`
}

// ValidateProjectName accepts names made only of ASCII letters, digits and underscores.
// Names address a storage namespace directly, so nothing else may pass.
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidProjectName)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
		}
	}
	return nil
}
