package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

// RegisterMemoryTool adds the "memory" direct tool: keyword search and
// read access over MEMORY.md and memory/*.md in the workspace, the
// operator's durable notes about the agent's environment and history.
func RegisterMemoryTool(cat *toolcatalog.Catalog) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "description": "search or get."},
			"query":  map[string]any{"type": "string", "description": "search: keywords to look for."},
			"path":   map[string]any{"type": "string", "description": "get: path to MEMORY.md or a memory/*.md file."},
		},
		"required": []string{"action"},
	}
	payload, _ := json.Marshal(schema)
	cat.Register("memory", "Search or read MEMORY.md and memory/*.md in the workspace.", payload, executeMemory)
}

func executeMemory(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
	var input struct {
		Action string `json:"action"`
		Query  string `json:"query"`
		Path   string `json:"path"`
	}
	if err := json.Unmarshal(arguments, &input); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("invalid parameters: %v", err))
	}

	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "search":
		if strings.TrimSpace(input.Query) == "" {
			return toolcatalog.ErrorResult("query is required")
		}
		return memorySearch(workspacePath, input.Query)
	case "get":
		if strings.TrimSpace(input.Path) == "" {
			return toolcatalog.ErrorResult("path is required")
		}
		return memoryGet(workspacePath, input.Path)
	default:
		return toolcatalog.ErrorResult("action must be search or get")
	}
}

type memoryHit struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// memorySearch scores each line of every memory file by the count of
// query keywords it contains, case-insensitively, and returns the top
// matches. No embeddings: the workspace's memory corpus is small notes
// text, not a retrieval corpus large enough to need a vector index.
func memorySearch(workspacePath, query string) toolcatalog.Result {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return toolcatalog.ErrorResult("query is required")
	}

	files := memoryFiles(workspacePath)
	var hits []memoryHit
	for _, rel := range files {
		resolved, err := resolvePath(workspacePath, rel)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			lower := strings.ToLower(line)
			score := 0
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, memoryHit{Path: rel, Line: i + 1, Text: strings.TrimSpace(line), Score: score})
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > 20 {
		hits = hits[:20]
	}
	return jsonOK(map[string]any{"query": query, "hits": hits})
}

func memoryGet(workspacePath, path string) toolcatalog.Result {
	resolved, err := resolvePath(workspacePath, path)
	if err != nil {
		return toolcatalog.ErrorResult(err.Error())
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("read file: %v", err))
	}
	return jsonOK(map[string]any{"path": path, "content": string(data)})
}

// memoryFiles lists MEMORY.md (if present) followed by every memory/*.md
// file, relative to workspacePath.
func memoryFiles(workspacePath string) []string {
	var out []string
	if root, err := resolvePath(workspacePath, "."); err == nil {
		if _, err := os.Stat(filepath.Join(root, "MEMORY.md")); err == nil {
			out = append(out, "MEMORY.md")
		}
		entries, err := os.ReadDir(filepath.Join(root, "memory"))
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
					out = append(out, filepath.Join("memory", e.Name()))
				}
			}
		}
	}
	return out
}
