package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/pkg/app"
)

// initAnswers collects the wizard's answers.
type initAnswers struct {
	SourceFolder string
	SourceExt    string
	DestFolder   string
	DestExt      string
	Policy       string
	Provider     string
	Model        string
	Cache        bool
}

// defaultModels fills an empty model answer for providers without a
// built-in default.
var defaultModels = map[string]string{
	"openai": "gpt-4o-mini",
	"ollama": "llama3.1",
}

var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// initFile is the layout of a generated configuration. Only the answered
// keys are written; everything else keeps its default.
type initFile struct {
	Version   string                    `yaml:"version"`
	Translate initTranslate             `yaml:"translate"`
	Providers []config.ProviderEntry    `yaml:"providers"`
	Modules   map[string]map[string]any `yaml:"modules"`
}

type initTranslate struct {
	Source      config.Endpoint `yaml:"source"`
	Destination config.Endpoint `yaml:"destination"`
	Window      struct {
		Policy string `yaml:"policy"`
	} `yaml:"window"`
}

func initCmd() *cobra.Command {
	var (
		output     string
		force      bool
		accessible bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(output); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", output)
			}

			answers := initAnswers{
				SourceFolder: "./src",
				DestFolder:   "./out",
				Policy:       config.PolicyTokens,
				Provider:     "openai",
			}
			if err := askInit(&answers, accessible); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errors.New("init aborted")
				}
				return err
			}

			raw, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, raw, 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			if env, ok := apiKeyEnv[answers.Provider]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s before running codeshift.\n", env)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", app.ConfigFileName, "Path of the file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&accessible, "accessible", false, "Use plain prompts suited to screen readers")
	return cmd
}

func askInit(a *initAnswers, accessible bool) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Source folder").Value(&a.SourceFolder).Validate(notEmpty),
			huh.NewInput().Title("Source extension").Placeholder(".vb").Value(&a.SourceExt).Validate(isExtension),
			huh.NewInput().Title("Destination folder").Value(&a.DestFolder).Validate(notEmpty),
			huh.NewInput().Title("Destination extension").Placeholder(".cs").Value(&a.DestExt).Validate(isExtension),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Window policy").
				Options(
					huh.NewOption("Token budget", config.PolicyTokens),
					huh.NewOption("Fixed line count", config.PolicyLines),
				).
				Value(&a.Policy),
			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("Anthropic", "anthropic"),
					huh.NewOption("Ollama (local)", "ollama"),
				).
				Value(&a.Provider),
			huh.NewInput().Title("Model").Description("Leave empty for the provider default.").Value(&a.Model),
			huh.NewConfirm().Title("Cache responses in SQLite?").Value(&a.Cache),
		),
	).WithAccessible(accessible)
	return form.Run()
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func isExtension(s string) error {
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return errors.New("must start with a dot, like .vb")
	}
	return nil
}

// renderConfig turns the answers into a YAML configuration.
func renderConfig(a initAnswers) ([]byte, error) {
	module := "provider." + a.Provider

	settings := map[string]any{}
	if env, ok := apiKeyEnv[a.Provider]; ok {
		settings["api_key"] = "${" + env + "}"
	}
	model := a.Model
	if model == "" {
		model = defaultModels[a.Provider]
	}
	if model != "" {
		settings["model"] = model
	}

	f := initFile{
		Version:   "1",
		Providers: []config.ProviderEntry{{Module: module, Role: "primary"}},
		Modules:   map[string]map[string]any{module: settings},
	}
	f.Translate.Source = config.Endpoint{Folder: a.SourceFolder, Extension: a.SourceExt}
	f.Translate.Destination = config.Endpoint{Folder: a.DestFolder, Extension: a.DestExt}
	f.Translate.Window.Policy = a.Policy
	if a.Cache {
		f.Modules["cache.sqlite"] = map[string]any{"compression": "zstd"}
	}

	raw, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return raw, nil
}
