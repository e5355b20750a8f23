package generator

import (
	"regexp"
	"strings"

	"github.com/pagelift/deploy-orchestrator/internal/models"
)

var filePattern = regexp.MustCompile(`(?s)===FILE:([^=]+)===\s*(.*?)\s*===END===`)

// parseResponse extracts the delimited files from a model response. The
// structured pattern is tried first; if it yields nothing, the line-oriented
// parser takes over.
func parseResponse(response string) models.FileSet {
	files := models.FileSet{}

	for _, match := range filePattern.FindAllStringSubmatch(response, -1) {
		name := strings.TrimSpace(match[1])
		content := strings.TrimSpace(match[2])
		if name != "" && content != "" {
			files[name] = content
		}
	}

	if len(files) == 0 {
		files = parseResponseLineByLine(response)
	}

	return files
}

// parseResponseLineByLine recovers files from responses where the delimiters
// survived but the overall structure did not (stray text between markers,
// missing trailing END).
func parseResponseLineByLine(response string) models.FileSet {
	files := models.FileSet{}

	var currentFile string
	var currentContent []string

	flush := func() {
		if currentFile != "" && len(currentContent) > 0 {
			files[currentFile] = strings.TrimSpace(strings.Join(currentContent, "\n"))
		}
	}

	for _, line := range strings.Split(response, "\n") {
		switch {
		case strings.HasPrefix(line, "===FILE:"):
			flush()
			currentFile = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(line, "===FILE:"), "===", ""))
			currentContent = nil
		case strings.HasPrefix(line, "===END==="):
			flush()
			currentFile = ""
			currentContent = nil
		default:
			if currentFile != "" {
				currentContent = append(currentContent, line)
			}
		}
	}
	flush()

	return files
}
