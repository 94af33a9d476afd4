package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lexassist-backend/internal/agents"
	"lexassist-backend/internal/models"
)

var agentType string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the legal agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := agents.LoadCatalog(cfg.AgentCatalogPath)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tROLE")
		for _, a := range catalog.Agents {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Name, a.Role)
		}
		return tw.Flush()
	},
}

var agentsRunCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run the agent script once and print its output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")

		result, err := newRunner(cfg).Run(cmd.Context(), task, agentType)
		if err != nil {
			var pErr *agents.ProcessError
			if errors.As(err, &pErr) {
				fmt.Fprintln(cmd.ErrOrStderr(), pErr.Details())
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	agentsRunCmd.Flags().StringVarP(&agentType, "type", "t", models.DefaultAgentType, "agent type (swarm, contract, research, compliance, litigation, corporate)")
	agentsCmd.AddCommand(agentsRunCmd)
}
