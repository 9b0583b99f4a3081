package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentrun/gateway/internal/cron"
	"github.com/agentrun/gateway/internal/toolcatalog"
)

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

// RegisterCronTool adds the "cron" direct tool: list/register/unregister/run
// scheduled jobs against scheduler.
func RegisterCronTool(cat *toolcatalog.Catalog, scheduler *cron.Scheduler) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{"type": "string", "description": "list, register, unregister, or run."},
			"id":     map[string]any{"type": "string", "description": "Job id, for register/unregister/run."},
			"name":   map[string]any{"type": "string", "description": "Human-readable job name, for register."},
			"schedule": map[string]any{
				"type":        "object",
				"description": "register: one of cron, every (Go duration string), or at (RFC3339).",
				"properties": map[string]any{
					"cron":     map[string]any{"type": "string"},
					"every":    map[string]any{"type": "string"},
					"at":       map[string]any{"type": "string"},
					"timezone": map[string]any{"type": "string"},
				},
			},
		},
		"required": []string{"action"},
	}
	payload, _ := json.Marshal(schema)
	cat.Register("cron", "Inspect and manage scheduled jobs (list/register/unregister/run).", payload, func(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
		return executeCron(ctx, scheduler, arguments)
	})
}

func executeCron(ctx context.Context, scheduler *cron.Scheduler, arguments json.RawMessage) toolcatalog.Result {
	if scheduler == nil {
		return toolcatalog.ErrorResult("cron scheduler unavailable")
	}
	var input struct {
		Action   string `json:"action"`
		ID       string `json:"id"`
		Name     string `json:"name"`
		Schedule struct {
			Cron     string `json:"cron"`
			Every    string `json:"every"`
			At       string `json:"at"`
			Timezone string `json:"timezone"`
		} `json:"schedule"`
	}
	if err := json.Unmarshal(arguments, &input); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("invalid parameters: %v", err))
	}
	action := strings.ToLower(strings.TrimSpace(input.Action))

	switch action {
	case "list":
		return jsonOK(map[string]any{"jobs": scheduler.List()})
	case "register":
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return toolcatalog.ErrorResult("id is required")
		}
		spec := cron.JobSpec{ID: id, Name: input.Name}
		spec.Schedule.Cron = input.Schedule.Cron
		spec.Schedule.At = input.Schedule.At
		spec.Schedule.Timezone = input.Schedule.Timezone
		if input.Schedule.Every != "" {
			dur, err := parseDuration(input.Schedule.Every)
			if err != nil {
				return toolcatalog.ErrorResult(fmt.Sprintf("invalid schedule.every: %v", err))
			}
			spec.Schedule.Every = dur
		}
		job, err := scheduler.Register(spec)
		if err != nil {
			return toolcatalog.ErrorResult(fmt.Sprintf("register job: %v", err))
		}
		return jsonOK(map[string]any{"status": "registered", "job": job})
	case "unregister":
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return toolcatalog.ErrorResult("id is required")
		}
		if !scheduler.Unregister(id) {
			return toolcatalog.ErrorResult("job not found")
		}
		return jsonOK(map[string]any{"status": "removed", "id": id})
	case "run":
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return toolcatalog.ErrorResult("id is required")
		}
		if err := scheduler.RunNow(ctx, id); err != nil {
			return toolcatalog.ErrorResult(fmt.Sprintf("run job: %v", err))
		}
		return jsonOK(map[string]any{"status": "ran", "id": id})
	default:
		return toolcatalog.ErrorResult("action must be list, register, unregister, or run")
	}
}
