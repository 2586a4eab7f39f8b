package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewClaimCommand creates the claim command.
func NewClaimCommand(opts *RootOptions) *cobra.Command {
	var claimant string

	cmd := &cobra.Command{
		Use:   "claim <batch-id>",
		Short: "Claim a submitted batch for inspection",
		Long: "Claims exclusive responsibility for inspecting a batch. Exactly one " +
			"claimant succeeds per batch; losers get ALREADY_CLAIMED.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ins, err := a.arbiter.ClaimForInspection(cmd.Context(), args[0], claimant)
			if err != nil {
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			view := map[string]string{
				"inspection_id": ins.ID,
				"batch_id":      ins.BatchID,
				"inspector_id":  ins.InspectorID,
				"status":        string(ins.Status),
			}
			return f.Print(view, func(w io.Writer) {
				fmt.Fprintf(w, "claimed: inspection %s (batch %s, inspector %s)\n",
					ins.ID, ins.BatchID, ins.InspectorID)
			})
		},
	}

	cmd.Flags().StringVar(&claimant, "claimant", "", "inspecting party id (required)")
	cmd.MarkFlagRequired("claimant")

	return cmd
}
