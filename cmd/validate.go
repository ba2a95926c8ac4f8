package cmd

import (
	"fmt"
	"strings"

	"github.com/smazurov/toggler/internal/config"
	"github.com/smazurov/toggler/internal/runner"
	"github.com/smazurov/toggler/internal/toggler"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <robot-file>",
		Short: "Validate a robot file",
		Long: `Loads a robot file (.toml, .yaml or .json), validates every component and prints ` +
			`the dependencies each one requires. Nothing is opened or driven.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			robot, err := config.LoadRobot(path)
			if err != nil {
				return err
			}
			if err := runner.Validate(robot); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for _, c := range robot.Components {
				required, optional, _ := toggler.Validate(c.ResourceConfig().Attributes)
				line := fmt.Sprintf("%s (%s): requires %s", c.Name, c.Model, strings.Join(required, ", "))
				if len(optional) > 0 {
					line += "; optional " + strings.Join(optional, ", ")
				}
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "%s: %d boards, %d components OK\n", path, len(robot.Boards), len(robot.Components))
			return nil
		},
	}
}
