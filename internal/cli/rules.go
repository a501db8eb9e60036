package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/copyedit/internal/config"
	"github.com/dshills/copyedit/internal/rules"
)

var (
	flagRulesJSON    bool
	flagRulesPack    string
	flagRulesDisable string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the rule table",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the effective rules in application order",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := make(map[string]any)
		if flagRulesPack != "" {
			overrides["rules.pack"] = flagRulesPack
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		cfg.Rules.Disable = append(cfg.Rules.Disable, config.SplitList(flagRulesDisable)...)

		table, err := buildTable(cfg)
		if err != nil {
			fail(cmd, ExitUsageError, "%v", err)
			return nil
		}
		descs := rules.Describe(table)

		out := cmd.OutOrStdout()
		if flagRulesJSON {
			data, err := json.MarshalIndent(descs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tGROUP\tREASON")
		for _, d := range descs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Group, d.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d rules, fingerprint %s\n", table.Len(), table.Fingerprint()[:12])
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesListCmd.Flags().BoolVar(&flagRulesJSON, "json", false, "Print rules as JSON")
	rulesListCmd.Flags().StringVar(&flagRulesPack, "rules", "", "Rule pack file (YAML or JSON)")
	rulesListCmd.Flags().StringVar(&flagRulesDisable, "disable", "", "Rule IDs to disable (comma-separated)")
}
