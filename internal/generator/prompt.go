package generator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pagelift/deploy-orchestrator/internal/models"
)

// previewLimit bounds how much of a text attachment is embedded in the
// generation prompt.
const previewLimit = 500

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".csv": true, ".html": true,
	".css": true, ".js": true, ".py": true, ".xml": true, ".yaml": true, ".yml": true,
}

// attachmentPreview is a decoded attachment ready for prompt embedding.
type attachmentPreview struct {
	Name   string
	Text   string // truncated content, empty for binary files
	Size   int    // decoded size in bytes
	IsText bool
}

func isTextFile(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

// truncateText cuts s to at most limit bytes without splitting a UTF-8
// sequence.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// buildPreviews decodes the attachments into prompt previews. Undecodable
// attachments are dropped; the prompt just omits them.
func (g *Generator) buildPreviews(attachments []models.Attachment) []attachmentPreview {
	previews := make([]attachmentPreview, 0, len(attachments))
	for _, att := range attachments {
		data, err := att.Decode()
		if err != nil {
			g.logger.Warn("failed to process attachment", zap.String("attachment", att.Name), zap.Error(err))
			continue
		}
		p := attachmentPreview{Name: att.Name, Size: len(data), IsText: isTextFile(att.Name)}
		if p.IsText {
			p.Text = truncateText(string(data), previewLimit)
		}
		previews = append(previews, p)
	}
	return previews
}

func systemPrompt(round int) string {
	base := `You are an expert web developer who creates production-ready, single-file web applications.

CRITICAL RULES:
1. Generate COMPLETE, WORKING code - no placeholders or TODOs
2. All code goes in index.html with embedded <style> and <script> tags
3. Use vanilla JavaScript - no frameworks unless explicitly requested
4. Ensure code is bug-free and handles errors gracefully
5. Make it responsive and visually appealing
6. Follow web accessibility standards
7. Include comprehensive README.md documentation
8. Always use the EXACT file format specified: ===FILE:filename=== content ===END===`

	if round > 1 {
		base += fmt.Sprintf("\n\nThis is ROUND %d: Update the existing application while preserving working functionality.", round)
	}
	return base
}

func buildPrompt(brief string, checks []string, previews []attachmentPreview, taskID string, round int) string {
	var attachmentText strings.Builder
	if len(previews) > 0 {
		attachmentText.WriteString("\n\nATTACHMENTS PROVIDED:\n")
		for _, p := range previews {
			if p.IsText {
				fmt.Fprintf(&attachmentText, "\nFile: %s\nContent preview:\n%s\n", p.Name, p.Text)
			} else {
				fmt.Fprintf(&attachmentText, "\nFile: %s (binary, %d bytes)\n", p.Name, p.Size)
			}
		}
	}

	checksText := formatChecks(checks)

	return fmt.Sprintf(`Create a complete, working web application based on these requirements:

TASK: %s
ROUND: %d

BRIEF:
%s

EVALUATION CRITERIA:
%s
%s

CRITICAL REQUIREMENTS:
1. Create a SINGLE-FILE application in index.html with ALL CSS and JavaScript embedded
2. The HTML MUST be complete, valid, and ready to deploy
3. Use modern HTML5, CSS3, and vanilla JavaScript (no frameworks unless specified)
4. Ensure the app passes ALL evaluation criteria above
5. Include proper error handling and user feedback
6. Make it responsive and accessible
7. Add professional styling

RESPONSE FORMAT - Use EXACTLY this format:

===FILE:index.html===
<complete HTML document>
===END===

===FILE:README.md===
<complete documentation>
===END===

IMPORTANT NOTES:
- The app MUST be fully self-contained in index.html
- Include ALL necessary code inline (CSS in <style>, JS in <script>)
- Ensure the app works immediately when opened in a browser
- Test that all evaluation criteria are met
- Use semantic HTML and accessible markup
`, taskID, round, brief, checksText, attachmentText.String())
}

func formatChecks(checks []string) string {
	lines := make([]string, len(checks))
	for i, check := range checks {
		lines[i] = fmt.Sprintf("%d. %s", i+1, check)
	}
	return strings.Join(lines, "\n")
}
