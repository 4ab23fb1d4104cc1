package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/smartclean/internal/core"
)

// planFile is the YAML document written by plan and read by clean --plan.
type planFile struct {
	Source     string               `yaml:"source,omitempty"`
	Operations []core.OperationSpec `yaml:"operations"`
}

func planCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file>",
		Short: "Print the automatic cleaning plan as YAML",
		Long: `Print the operations auto-clean would apply to a file. Edit the output
and pass it to "smartclean clean --plan" to run a custom plan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := loadTable(cmd, opts, args[0])
			if err != nil {
				return err
			}

			ops := core.Plan(t, core.DetectIssues(t))
			doc := planFile{Source: filepath.Base(args[0]), Operations: make([]core.OperationSpec, len(ops))}
			for i, op := range ops {
				doc.Operations[i] = op.Spec()
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// loadPlan reads a YAML plan. Its operations are attributed to the user.
func loadPlan(path string) ([]core.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var doc planFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid parameter: plan %s: %w", filepath.Base(path), err)
	}

	ops, err := core.DecodeOperations(doc.Operations)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		ops[i].AppliedBy = core.ActorUser
	}
	return ops, nil
}
