package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/bootkit/internal/cli/output"
	"github.com/marmos91/bootkit/internal/components"
	"github.com/marmos91/bootkit/pkg/config"
	"github.com/marmos91/bootkit/pkg/configbind"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Property file helpers",
		Long: `Work with bootkit property files.

Subcommands:
  init    Write a property file holding every default
  schema  Print the JSON schema of the component properties
  path    Print the default property file location`,
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigSchemaCmd(), newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a property file holding every default",
		Long: `Write a YAML property file listing every component property with its
default value. Required properties without a default are left as comments.

By default the file is created at $XDG_CONFIG_HOME/bootkit/config.yaml.
Use --config to choose another path.

Examples:
  bootkit config init
  bootkit config init --config ./app.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString(config.KeyConfig)
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}

			data, err := DefaultPropertyFile(components.Schemas())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", path)
			_, _ = fmt.Fprintln(out, "\nNext steps:")
			_, _ = fmt.Fprintln(out, "  1. Set the required properties")
			_, _ = fmt.Fprintf(out, "  2. Validate with: bootkit check --config %s\n", path)
			_, _ = fmt.Fprintf(out, "  3. Run with:      bootkit run --config %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the component properties",
		Long: `Print a JSON schema describing the property file, one object per
component prefix. Editors can use it for completion and validation.

Examples:
  bootkit config schema > bootkit.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return output.PrintJSON(cmd.OutOrStdout(), PropertySchema(components.Schemas()))
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the default property file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfigPath())
		},
	}
}

func sortedPrefixes(schemas map[string]*configbind.Schema) []string {
	prefixes := make([]string, 0, len(schemas))
	for p := range schemas {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes
}

// PropertySchema combines component schemas into one document keyed by
// prefix.
func PropertySchema(schemas map[string]*configbind.Schema) *jsonschema.Schema {
	props := jsonschema.NewProperties()
	for _, prefix := range sortedPrefixes(schemas) {
		s := schemas[prefix].JSONSchema()
		s.Version = ""
		props.Set(prefix, s)
	}
	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                "bootkit properties",
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// DefaultPropertyFile renders a YAML property file with one section per
// prefix. Secrets and fields without a default are commented out.
func DefaultPropertyFile(schemas map[string]*configbind.Schema) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, prefix := range sortedPrefixes(schemas) {
		section := &yaml.Node{Kind: yaml.MappingNode}
		var pending []string
		for _, f := range schemas[prefix].Fields() {
			if f.Default == "" || f.Secret {
				pending = append(pending, placeholder(f.Name, f))
				continue
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Value: f.Name}
			if c := comment(f, pending); c != "" {
				key.HeadComment = c
			}
			pending = nil
			section.Content = append(section.Content, key,
				&yaml.Node{Kind: yaml.ScalarNode, Value: f.Default, Style: scalarStyle(f)})
		}

		// Placeholders after the last default go to the section header,
		// fully qualified.
		header := []string{schemas[prefix].Name()}
		if n := len(pending); n > 0 {
			fields := schemas[prefix].Fields()
			for _, f := range fields[len(fields)-n:] {
				header = append(header, placeholder(configbind.Qualify(prefix, f.Name), f))
			}
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: prefix, HeadComment: strings.Join(header, "\n")}
		if len(section.Content) == 0 {
			section.Style = yaml.FlowStyle
		}
		root.Content = append(root.Content, key, section)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to render property file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func comment(f configbind.Field, pending []string) string {
	lines := append([]string(nil), pending...)
	if f.Description != "" {
		lines = append(lines, f.Description)
	}
	return strings.Join(lines, "\n")
}

func placeholder(name string, f configbind.Field) string {
	var notes []string
	if f.Required {
		notes = append(notes, "required")
	}
	if f.Secret {
		notes = append(notes, "secret")
	}
	if f.Description != "" {
		notes = append(notes, f.Description)
	}
	line := name + ":"
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	return line
}

// scalarStyle quotes string defaults that YAML would read as another type.
func scalarStyle(f configbind.Field) yaml.Style {
	if f.Kind != configbind.KindString {
		return 0
	}
	var decoded any
	if err := yaml.Unmarshal([]byte(f.Default), &decoded); err != nil {
		return yaml.DoubleQuotedStyle
	}
	if _, ok := decoded.(string); !ok {
		return yaml.DoubleQuotedStyle
	}
	return 0
}
