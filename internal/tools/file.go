package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

const defaultMaxReadBytes = 200_000

// RegisterFileTool adds the "file" direct tool: read/write/edit actions
// confined to the workspace, dispatched by an "action" field.
func RegisterFileTool(cat *toolcatalog.Catalog) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "read, write, or edit.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Path relative to the workspace.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "read: byte offset to start from (default 0).",
				"minimum":     0,
			},
			"max_bytes": map[string]any{
				"type":        "integer",
				"description": "read: maximum bytes to return.",
				"minimum":     0,
			},
			"content": map[string]any{
				"type":        "string",
				"description": "write: file contents.",
			},
			"append": map[string]any{
				"type":        "boolean",
				"description": "write: append instead of overwrite.",
			},
			"edits": map[string]any{
				"type":        "array",
				"description": "edit: find/replace operations, applied in order.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"old_text":    map[string]any{"type": "string"},
						"new_text":    map[string]any{"type": "string"},
						"replace_all": map[string]any{"type": "boolean"},
					},
					"required": []string{"old_text", "new_text"},
				},
			},
		},
		"required": []string{"action", "path"},
	}
	payload, _ := json.Marshal(schema)
	cat.Register("file", "Read, write, or edit a file in the workspace.", payload, executeFile)
}

func executeFile(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
	var input struct {
		Action   string `json:"action"`
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
		Content  string `json:"content"`
		Append   bool   `json:"append"`
		Edits    []struct {
			OldText    string `json:"old_text"`
			NewText    string `json:"new_text"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(arguments, &input); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("invalid parameters: %v", err))
	}
	if strings.TrimSpace(input.Path) == "" {
		return toolcatalog.ErrorResult("path is required")
	}

	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "read":
		return fileRead(workspacePath, input.Path, input.Offset, input.MaxBytes)
	case "write":
		return fileWrite(workspacePath, input.Path, input.Content, input.Append)
	case "edit":
		if len(input.Edits) == 0 {
			return toolcatalog.ErrorResult("edits are required")
		}
		return fileEdit(workspacePath, input.Path, input.Edits)
	default:
		return toolcatalog.ErrorResult("action must be read, write, or edit")
	}
}

func fileRead(workspacePath, path string, offset int64, maxBytes int) toolcatalog.Result {
	if offset < 0 {
		return toolcatalog.ErrorResult("offset must be >= 0")
	}
	resolved, err := resolvePath(workspacePath, path)
	if err != nil {
		return toolcatalog.ErrorResult(err.Error())
	}
	file, err := os.Open(resolved)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("open file: %v", err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("stat file: %v", err))
	}
	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return toolcatalog.ErrorResult(fmt.Sprintf("seek file: %v", err))
		}
	}

	limit := defaultMaxReadBytes
	if maxBytes > 0 && maxBytes < limit {
		limit = maxBytes
	}
	remaining := int64(limit)
	if size := info.Size(); size > 0 {
		remaining = size - offset
		if remaining < 0 {
			remaining = 0
		}
		if remaining > int64(limit) {
			remaining = int64(limit)
		}
	}
	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("read file: %v", err))
	}
	truncated := info.Size() > 0 && offset+int64(len(buf)) < info.Size()

	return jsonOK(map[string]any{
		"path":      path,
		"content":   string(buf),
		"offset":    offset,
		"bytes":     len(buf),
		"truncated": truncated,
	})
}

func fileWrite(workspacePath, path, content string, appendMode bool) toolcatalog.Result {
	resolved, err := resolvePath(workspacePath, path)
	if err != nil {
		return toolcatalog.ErrorResult(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("create directory: %v", err))
	}
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("open file: %v", err))
	}
	defer file.Close()
	n, err := file.WriteString(content)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("write file: %v", err))
	}
	return jsonOK(map[string]any{"path": path, "bytes_written": n, "append": appendMode})
}

func fileEdit(workspacePath, path string, edits []struct {
	OldText    string `json:"old_text"`
	NewText    string `json:"new_text"`
	ReplaceAll bool   `json:"replace_all"`
}) toolcatalog.Result {
	resolved, err := resolvePath(workspacePath, path)
	if err != nil {
		return toolcatalog.ErrorResult(err.Error())
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("read file: %v", err))
	}
	content := string(data)
	replacements := 0
	for _, edit := range edits {
		if edit.OldText == "" {
			return toolcatalog.ErrorResult("old_text is required")
		}
		if !strings.Contains(content, edit.OldText) {
			return toolcatalog.ErrorResult("old_text not found")
		}
		if edit.ReplaceAll {
			replacements += strings.Count(content, edit.OldText)
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
		} else {
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			replacements++
		}
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("write file: %v", err))
	}
	return jsonOK(map[string]any{"path": path, "replacements": replacements})
}

func jsonOK(payload any) toolcatalog.Result {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("encode result: %v", err))
	}
	return toolcatalog.Result{Text: string(encoded)}
}
