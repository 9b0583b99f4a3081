package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFilename is the expected filename for skill definitions.
const SkillFilename = "SKILL.md"

// frontmatterDelimiter marks the beginning and end of YAML frontmatter.
const frontmatterDelimiter = "---"

// ParseFile parses a SKILL.md file into a Descriptor.
func ParseFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses SKILL.md content (frontmatter + markdown body) into a
// Descriptor. sourcePath is recorded for reload bookkeeping.
func Parse(data []byte, sourcePath string) (*Descriptor, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("split frontmatter: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(frontmatter, &d); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("skill name is required")
	}

	d.Content = strings.TrimSpace(string(body))
	d.SourcePath = sourcePath
	d.Enabled = true
	return &d, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var frontmatterLines []string
	foundClosing := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			foundClosing = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !foundClosing {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}

	frontmatter := []byte(strings.Join(frontmatterLines, "\n"))
	body := []byte(strings.Join(bodyLines, "\n"))
	return frontmatter, body, nil
}
