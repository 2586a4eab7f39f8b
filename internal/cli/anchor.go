package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// NewSealCommand creates the seal command.
func NewSealCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seal <credential-id>",
		Short: "Compute and seal a credential's content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			digest, err := a.anchors.SealHash(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			view := map[string]string{"credential_id": args[0], "content_hash": digest}
			return f.Print(view, func(w io.Writer) {
				fmt.Fprintf(w, "sealed: %s\n", digest)
			})
		},
	}
}

// NewAnchorCommand creates the anchor command.
func NewAnchorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "anchor <credential-id>",
		Short: "Anchor a credential's digest to the ledger",
		Long: "Anchors the credential's content hash exactly once. Re-running returns " +
			"the existing anchor metadata. Without ledger configuration the anchor is a " +
			"deterministic mock tagged with the -testnet network marker.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.anchors.Anchor(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(newAnchorView(info), func(w io.Writer) {
				fmt.Fprintf(w, "network:      %s\n", info.Network)
				fmt.Fprintf(w, "tx ref:       %s\n", info.TxRef)
				fmt.Fprintf(w, "block height: %d\n", info.BlockHeight)
				fmt.Fprintf(w, "anchored at:  %s\n", info.AnchoredAt.Format(time.RFC3339))
				if info.Mock {
					fmt.Fprintln(w, "mock anchor (no ledger configured)")
				}
			})
		},
	}
}

// anchorView is the JSON projection of anchor metadata.
type anchorView struct {
	Network     string `json:"network"`
	TxRef       string `json:"tx_ref"`
	BlockHeight int64  `json:"block_height"`
	AnchoredAt  string `json:"anchored_at"`
	Mock        bool   `json:"mock"`
}

func newAnchorView(a cert.AnchorInfo) anchorView {
	return anchorView{
		Network:     a.Network,
		TxRef:       a.TxRef,
		BlockHeight: a.BlockHeight,
		AnchoredAt:  a.AnchoredAt.Format(time.RFC3339),
		Mock:        a.Mock,
	}
}
