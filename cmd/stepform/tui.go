package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/stepform/internal/tui"
	"github.com/gabrielmiguelok/stepform/pkg/forms"
	"github.com/gabrielmiguelok/stepform/pkg/wizard"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Fill in the wizard in the terminal",
		Long: `Runs the wizard interactively and prints the submitted record as YAML.

Keys: enter moves to the next step (or submits on the last one),
ctrl+b goes back, tab cycles fields, esc quits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			def, err := loadDefinition(cfg)
			if err != nil {
				return err
			}
			steps, schema, err := def.Build()
			if err != nil {
				return err
			}

			ctrl, err := wizard.New(steps, schema,
				wizard.WithLogger(logger),
				wizard.WithDefaults(def.Defaults()),
			)
			if err != nil {
				return err
			}

			record, err := tui.Run(cmd.Context(), ctrl, schema, def.Title)
			if errors.Is(err, tui.ErrCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			return writeRecord(cmd.OutOrStdout(), ctrl.Registry().AllFields(), record)
		},
	}
}

// writeRecord encodes record as a YAML mapping in step order. Keys not
// named by any step follow, sorted.
func writeRecord(w io.Writer, fields []string, record forms.Record) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(k string) {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: record[k]},
		)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			add(f)
		}
	}
	rest := make([]string, 0, len(record))
	for k := range record {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return enc.Close()
}
