/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// SubcommandHandler defines the interface for parsing subcommand flags.
type SubcommandHandler interface {
	Parse(args []string, cfg *CmdConfig) error
}

// ActionsHandler handles the actions subcommand.
type ActionsHandler struct{}

// Parse processes the command-line arguments for the actions subcommand.
func (ActionsHandler) Parse(args []string, _ *CmdConfig) error {
	fs := flag.NewFlagSet("actions", flag.ContinueOnError)

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing actions flags: %w", err)
	}

	return noExtraArgs(fs)
}

// DevicesHandler handles the devices subcommand.
type DevicesHandler struct{}

// Parse processes the command-line arguments for the devices subcommand.
func (DevicesHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("devices", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "bypass the roster cache")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing devices flags: %w", err)
	}

	cfg.Refresh = *refresh

	return noExtraArgs(fs)
}

// DispatchHandler handles the dispatch subcommand.
type DispatchHandler struct{}

// Parse processes the command-line arguments for the dispatch subcommand.
func (DispatchHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	action := fs.String("action", "", "action type from the catalog (e.g., CollectLogs)")
	targets := fs.String("targets", "", "comma-separated device ids; omit for an org-wide broadcast")
	params := fs.String("params", "", "JSON parameters passed to the action")
	watch := fs.Bool("watch", false, "follow the command until it resolves")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing dispatch flags: %w", err)
	}

	cfg.Action = strings.TrimSpace(*action)
	cfg.Targets = splitList(*targets)
	cfg.Params = *params
	cfg.Watch = *watch

	return noExtraArgs(fs)
}

// CommandsHandler handles the commands subcommand.
type CommandsHandler struct{}

// Parse processes the command-line arguments for the commands subcommand.
func (CommandsHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet("commands", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "maximum number of commands to fetch (default from config)")
	status := fs.String("status", "", "only show commands with this status")
	commandType := fs.String("type", "", "only show commands of this action type")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing commands flags: %w", err)
	}

	cfg.Limit = *limit
	cfg.Status = strings.TrimSpace(*status)
	cfg.Type = strings.TrimSpace(*commandType)

	return noExtraArgs(fs)
}

// CommandIDHandler handles subcommands that take a single command id.
type CommandIDHandler struct {
	Name string
}

// Parse reads the command id positional argument.
func (h CommandIDHandler) Parse(args []string, cfg *CmdConfig) error {
	fs := flag.NewFlagSet(h.Name, flag.ContinueOnError)

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing %s flags: %w", h.Name, err)
	}

	switch fs.NArg() {
	case 0:
		return errMissingCommandID
	case 1:
		cfg.CommandID = strings.TrimSpace(fs.Arg(0))
	default:
		return fmt.Errorf("%w: %v", errTooManyArgs, fs.Args()[1:])
	}

	if cfg.CommandID == "" {
		return errMissingCommandID
	}

	return nil
}

func subcommands() map[string]SubcommandHandler {
	return map[string]SubcommandHandler{
		"actions":  ActionsHandler{},
		"devices":  DevicesHandler{},
		"dispatch": DispatchHandler{},
		"commands": CommandsHandler{},
		"detail":   CommandIDHandler{Name: "detail"},
		"watch":    CommandIDHandler{Name: "watch"},
		"cancel":   CommandIDHandler{Name: "cancel"},
	}
}

// ParseFlags parses global flags followed by a subcommand and its flags.
func ParseFlags(args []string) (*CmdConfig, error) {
	fs := flag.NewFlagSet("fleetcmd", flag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("FLEETCMD_CONFIG"), "path to fleetcmd config file (JSON or YAML)")
	output := fs.String("o", outputTable, "output format: table, json or yaml")
	help := fs.Bool("help", false, "show help message")
	showVersion := fs.Bool("version", false, "print the fleetcmd version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := &CmdConfig{
		Help:       *help,
		Version:    *showVersion,
		ConfigFile: *configFile,
		Output:     strings.ToLower(strings.TrimSpace(*output)),
		Args:       fs.Args(),
	}

	switch cfg.Output {
	case outputTable, outputJSON, outputYAML:
	default:
		return cfg, fmt.Errorf("%w: %q", errUnknownOutput, *output)
	}

	if cfg.Version {
		return cfg, nil
	}

	if cfg.Help || len(cfg.Args) == 0 {
		cfg.Help = true

		return cfg, nil
	}

	cfg.SubCmd = cfg.Args[0]

	if cfg.SubCmd == "help" {
		cfg.Help = true

		return cfg, nil
	}

	handler, ok := subcommands()[cfg.SubCmd]
	if !ok {
		return cfg, fmt.Errorf("%w: %s", errUnknownSubcommand, cfg.SubCmd)
	}

	if err := handler.Parse(cfg.Args[1:], cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func noExtraArgs(fs *flag.FlagSet) error {
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %v", errTooManyArgs, fs.Args())
	}

	return nil
}

func splitList(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
