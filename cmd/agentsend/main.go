// Command agentsend is a one-shot gateway client: it connects, sends one
// chat envelope, prints the response, and exits. It also exposes
// `secrets list` / `skills list`, which inspect vault and skills state
// directly without going through the gateway.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/agentrun/gateway/internal/config"
	"github.com/agentrun/gateway/internal/providerdefs"
	"github.com/agentrun/gateway/internal/skills"
	"github.com/agentrun/gateway/internal/vault"
)

// Exit codes per the gateway's CLI contract.
const (
	exitOK          = 0
	exitArgError    = 1
	exitConnError   = 2
	exitRemoteError = 3
)

var (
	gatewayURL string
	provider   string
	model      string
	baseURL    string
	apiKey     string
	configPath string
)

func main() {
	os.Exit(run())
}

func run() int {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		if ee, ok := err.(*exitError); ok {
			return ee.code
		}
		fmt.Fprintln(os.Stderr, err)
		return exitArgError
	}
	return exitOK
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "agentsend",
		Short:        "One-shot client for the local agent gateway",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config.toml (secrets/skills subcommands)")

	sendCmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one chat message and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(args[0])
		},
	}
	sendCmd.Flags().StringVar(&gatewayURL, "url", "ws://127.0.0.1:8787/", "gateway websocket URL")
	sendCmd.Flags().StringVar(&provider, "provider", "anthropic", "provider id")
	sendCmd.Flags().StringVar(&model, "model", "", "model id")
	sendCmd.Flags().StringVar(&baseURL, "base-url", "", "override provider base URL")
	sendCmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key")

	root.AddCommand(sendCmd, buildSecretsCmd(), buildSkillsCmd())
	return root
}

func runSend(message string) error {
	if !providerdefs.IsKnown(provider) {
		return &exitError{code: exitArgError, msg: fmt.Sprintf("agentsend: unknown provider %q", provider)}
	}

	conn, _, err := websocket.DefaultDialer.Dial(gatewayURL, nil)
	if err != nil {
		return &exitError{code: exitConnError, msg: fmt.Sprintf("agentsend: connect: %v", err)}
	}
	defer conn.Close()

	// Consume the hello frame.
	if _, _, err := conn.ReadMessage(); err != nil {
		return &exitError{code: exitConnError, msg: fmt.Sprintf("agentsend: read hello: %v", err)}
	}

	envelope := map[string]any{
		"type": "chat",
		"messages": []map[string]string{
			{"role": "user", "content": message},
		},
		"model":    model,
		"provider": provider,
		"base_url": baseURL,
		"api_key":  apiKey,
	}
	if err := conn.WriteJSON(envelope); err != nil {
		return &exitError{code: exitConnError, msg: fmt.Sprintf("agentsend: send: %v", err)}
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return &exitError{code: exitConnError, msg: fmt.Sprintf("agentsend: read response: %v", err)}
	}

	var resp struct {
		OK       bool   `json:"ok"`
		Received string `json:"received"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return &exitError{code: exitConnError, msg: fmt.Sprintf("agentsend: decode response: %v", err)}
	}
	if !resp.OK {
		fmt.Fprintln(os.Stderr, resp.Message)
		return &exitError{code: exitRemoteError, msg: resp.Message}
	}
	fmt.Println(resp.Received)
	return nil
}

func buildSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "secrets", Short: "Inspect the secrets vault"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List vault entries (names and policies only, never values)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSecretsList()
		},
	})
	return cmd
}

func runSecretsList() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &exitError{code: exitArgError, msg: err.Error()}
	}

	var v *vault.Vault
	if cfg.Vault.Mode == "passphrase" {
		v, err = vault.Open(cfg.Vault.Path, os.Getenv("AGENTRUN_VAULT_PASSPHRASE"), nil)
	} else {
		v, err = vault.OpenKeyfile(cfg.Vault.Path, cfg.Vault.KeyfilePath, nil)
	}
	if err != nil {
		return &exitError{code: exitArgError, msg: err.Error()}
	}

	entries, err := v.List()
	if err != nil {
		return &exitError{code: exitRemoteError, msg: err.Error()}
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.Name, e.Kind, e.Policy)
	}
	return nil
}

func buildSkillsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "skills", Short: "Inspect the skills registry"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSkillsList()
		},
	})
	return cmd
}

func runSkillsList() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &exitError{code: exitArgError, msg: err.Error()}
	}

	registry := skills.NewRegistry(cfg.SkillsDir, nil, nil)
	if err := registry.Reload(); err != nil {
		return &exitError{code: exitRemoteError, msg: err.Error()}
	}
	for _, d := range registry.List() {
		status := "enabled"
		if !d.Enabled {
			status = "disabled"
		}
		fmt.Printf("%s\t%s\t%s\n", d.Name, status, d.Description)
	}
	return nil
}
