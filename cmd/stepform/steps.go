package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the steps and fields of the wizard definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
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

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d steps)\n", def.Title, steps.Len())
			for i, s := range steps.Steps() {
				fmt.Fprintf(out, "%d. %s\n", i+1, s.Name)
				if len(s.Fields) == 0 {
					fmt.Fprintln(out, "   (review and submit)")
				}
				for _, name := range s.Fields {
					f, _ := schema.Field(name)
					msgs := make([]string, 0, len(f.Rules))
					for _, r := range f.Rules {
						msgs = append(msgs, r.Message())
					}
					line := fmt.Sprintf("   - %s (%s)", name, f.Type)
					if len(msgs) > 0 {
						line += ": " + strings.Join(msgs, "; ")
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}
