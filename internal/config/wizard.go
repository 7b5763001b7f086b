package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(configPath string) (*Config, error) {
	fmt.Println("Welcome to botfleet! Let's configure your server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Public base URL, webhook callbacks are registered against it.
	basePrompt := promptui.Prompt{
		Label:   "Public base URL (must be reachable by Telegram and Meta)",
		Default: cfg.Server.PublicBase,
		Validate: func(s string) error {
			if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
				return fmt.Errorf("must start with http:// or https://")
			}
			return nil
		},
	}
	publicBase, err := basePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("public base: %w", err)
	}
	cfg.Server.PublicBase = strings.TrimRight(publicBase, "/")

	// 2. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "Listen port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 3. Meta webhook verify token.
	verifyPrompt := promptui.Prompt{
		Label:   "Meta webhook verify token (leave blank to accept any)",
		Default: "",
	}
	verifyToken, err := verifyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	cfg.Meta.VerifyToken = verifyToken

	// 4. Unmatched cloud-messaging routing policy.
	policyPrompt := promptui.Select{
		Label: "Unmatched whatsapp routing key policy",
		Items: []string{
			"broadcast: deliver to every live whatsapp bot",
			"drop: silently discard the event",
		},
	}
	policyIdx, _, err := policyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("routing policy: %w", err)
	}
	policies := []RoutingPolicy{RoutingBroadcast, RoutingDrop}
	cfg.Routing.Unmatched = policies[policyIdx]

	// 5. Reply model.
	modelPrompt := promptui.Prompt{
		Label:   "OpenAI chat model",
		Default: cfg.OpenAI.Model,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	cfg.OpenAI.Model = model

	if configPath == "" {
		configPath = ".botfleet.yml"
	}
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	fmt.Println("Bot credentials (Telegram tokens, Meta tokens, OpenAI keys) are supplied per bot through the API.")
	return cfg, nil
}
