package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// NewShowCommand creates the show command group.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a batch or credential",
	}

	cmd.AddCommand(newShowBatchCommand(opts))
	cmd.AddCommand(newShowCredentialCommand(opts))

	return cmd
}

func newShowBatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <batch-id|tracking-token>",
		Short: "Show a batch by id or tracking token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.store.GetBatch(cmd.Context(), args[0])
			if cert.IsNotFound(err) {
				b, err = a.store.GetBatchByToken(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			view := struct {
				batchView
				Inspection *inspectionView `json:"inspection,omitempty"`
			}{batchView: newBatchView(b)}

			ins, err := a.store.ActiveInspection(cmd.Context(), b.ID)
			switch {
			case err == nil:
				view.Inspection = &inspectionView{
					ID:          ins.ID,
					InspectorID: ins.InspectorID,
					Status:      string(ins.Status),
				}
			case !cert.IsNotFound(err):
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(view, func(w io.Writer) {
				fmt.Fprintf(w, "batch:    %s\n", b.ID)
				fmt.Fprintf(w, "token:    %s\n", b.TrackingToken)
				fmt.Fprintf(w, "product:  %s (%d %s)\n", b.Product, b.Quantity, b.Unit)
				fmt.Fprintf(w, "origin:   %s\n", b.Origin)
				fmt.Fprintf(w, "harvest:  %s\n", b.HarvestDate.Format("2006-01-02"))
				fmt.Fprint(w, "status:   ")
				fprintStatus(w, b.Status)
				fmt.Fprintln(w)
				if view.Inspection != nil {
					fmt.Fprintf(w, "inspector: %s (inspection %s, %s)\n",
						view.Inspection.InspectorID, view.Inspection.ID, view.Inspection.Status)
				}
			})
		},
	}
}

// inspectionView is the JSON projection of an active inspection.
type inspectionView struct {
	ID          string `json:"id"`
	InspectorID string `json:"inspector_id"`
	Status      string `json:"status"`
}

func newShowCredentialCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "credential <credential-id>",
		Short: "Show a credential, its hash, and anchor metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.store.GetCredential(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			view := struct {
				ID          string      `json:"id"`
				BatchID     string      `json:"batch_id"`
				AuthorityID string      `json:"authority_id"`
				ContentHash string      `json:"content_hash,omitempty"`
				Anchor      *anchorView `json:"anchor,omitempty"`
			}{
				ID:          c.ID,
				BatchID:     c.BatchID,
				AuthorityID: c.AuthorityID,
				ContentHash: c.ContentHash,
			}
			if c.Anchor.Anchored() {
				av := newAnchorView(c.Anchor)
				view.Anchor = &av
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(view, func(w io.Writer) {
				fmt.Fprintf(w, "credential: %s\n", c.ID)
				fmt.Fprintf(w, "batch:      %s\n", c.BatchID)
				fmt.Fprintf(w, "authority:  %s\n", c.AuthorityID)
				if c.ContentHash != "" {
					fmt.Fprintf(w, "hash:       %s\n", c.ContentHash)
				} else {
					fmt.Fprintln(w, "hash:       (unsealed)")
				}
				if c.Anchor.Anchored() {
					fmt.Fprintf(w, "anchored:   %s @ block %d (%s)\n",
						c.Anchor.TxRef, c.Anchor.BlockHeight, c.Anchor.Network)
				} else {
					fmt.Fprintln(w, "anchored:   no")
				}
			})
		},
	}
}
