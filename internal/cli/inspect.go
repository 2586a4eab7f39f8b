package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command group.
func NewInspectCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Manage an inspection assignment",
	}

	cmd.AddCommand(newInspectStartCommand(opts))
	cmd.AddCommand(newInspectCompleteCommand(opts))
	cmd.AddCommand(newInspectCancelCommand(opts))

	return cmd
}

func newInspectStartCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <inspection-id>",
		Short: "Mark an inspection as in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.arbiter.StartInspection(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inspection %s started\n", args[0])
			return nil
		},
	}
}

func newInspectCompleteCommand(opts *RootOptions) *cobra.Command {
	var result string

	cmd := &cobra.Command{
		Use:   "complete <inspection-id>",
		Short: "Complete an inspection and move the batch forward",
		Long: "Completes the inspection. --result pass transitions the batch to " +
			"inspected; --result fail transitions it to rejected.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if result != "pass" && result != "fail" {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid --result %q: must be pass or fail", result), nil)
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.arbiter.CompleteInspection(cmd.Context(), args[0], result == "pass"); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inspection %s completed (%s)\n", args[0], result)
			return nil
		},
	}

	cmd.Flags().StringVar(&result, "result", "", "inspection result: pass|fail (required)")
	cmd.MarkFlagRequired("result")

	return cmd
}

func newInspectCancelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <inspection-id>",
		Short: "Cancel a pending or in-progress inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.arbiter.CancelInspection(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inspection %s cancelled\n", args[0])
			return nil
		},
	}
}
