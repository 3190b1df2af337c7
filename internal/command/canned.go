package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"keybot/internal/bot"
	"keybot/internal/domain"
)

// CannedDefinition is a user-defined trigger/reply pair loaded from a YAML
// file: a fixed reply bound to a regex pattern, no code required.
type CannedDefinition struct {
	Pattern string `yaml:"pattern"`
	Trigger string `yaml:"trigger"`
	Help    string `yaml:"help"`
	Reply   string `yaml:"reply"`
	Mention bool   `yaml:"mention"`
	Hidden  bool   `yaml:"hidden"`
}

// LoadCanned loads canned-command definitions from YAML files in dir, one
// definition per file, in file-name order. Malformed or incomplete files
// are skipped with a warning so one bad file can't block the rest.
func LoadCanned(dir string, responder *bot.Responder, logger *slog.Logger) ([]bot.Command, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("canned commands directory does not exist, skipping", "dir", dir)
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read canned commands dir: %w", err)
	}

	var cmds []bot.Command
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("cannot read canned command file", "path", path, "err", err)
			continue
		}

		var def CannedDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			logger.Warn("cannot parse canned command file", "path", path, "err", err)
			continue
		}
		if def.Pattern == "" || def.Reply == "" {
			logger.Warn("canned command missing pattern or reply", "path", path)
			continue
		}

		logger.Info("loaded canned command", "pattern", def.Pattern, "path", path)
		cmds = append(cmds, Canned(def, responder))
	}

	return cmds, nil
}

// Canned builds a command that always replies with the definition's fixed
// text.
func Canned(def CannedDefinition, responder *bot.Responder) bot.Command {
	return bot.Command{
		Pattern: def.Pattern,
		Trigger: def.Trigger,
		Help:    def.Help,
		Hidden:  def.Hidden,
		Handler: func(ctx context.Context, msg domain.Message) (string, error) {
			return responder.Respond(ctx, def.Reply, msg, def.Mention)
		},
	}
}
