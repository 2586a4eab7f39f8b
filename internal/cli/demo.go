package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldcert/fieldcert/internal/anchor"
	"github.com/fieldcert/fieldcert/internal/cert"
	"github.com/fieldcert/fieldcert/internal/lifecycle"
	"github.com/fieldcert/fieldcert/internal/store"
)

// NewDemoCommand creates the demo command: a self-contained walkthrough of
// the full lifecycle against an in-memory store, printing each committed
// transition from the notification feed. Useful for demos and smoke checks;
// touches no database and no ledger.
func NewDemoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the full lifecycle end-to-end in memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			s := store.NewMemStore()
			ids := cert.UUIDv7Generator{}
			notifier := lifecycle.NewNotifier()
			machine := lifecycle.NewMachine(s, notifier, nil)
			registrar := lifecycle.NewRegistrar(s, machine, ids, nil, nil)
			arbiter := lifecycle.NewArbiter(s, machine, ids, nil, nil)
			issuer := lifecycle.NewIssuer(s, machine, ids, nil, nil)
			anchors := anchor.NewService(s, nil, "", nil, nil)

			feed, cancel := notifier.Subscribe()
			defer cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				for t := range feed {
					fmt.Fprintf(out, "  [%d] %s: %s -> %s\n", t.Seq, t.Event, t.From, t.To)
				}
			}()

			b, err := registrar.SubmitBatch(ctx, lifecycle.BatchParams{
				ProducerID:  "producer-demo",
				Product:     "arabica coffee",
				Quantity:    500,
				Unit:        "kg",
				Origin:      "Huila",
				HarvestDate: time.Now().AddDate(0, -1, 0),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "submitted batch %s (token %s)\n", b.ID, b.TrackingToken)

			ins, err := arbiter.ClaimForInspection(ctx, b.ID, "inspector-demo")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "claimed by inspector-demo (inspection %s)\n", ins.ID)

			// A second claim must lose cleanly.
			if _, err := arbiter.ClaimForInspection(ctx, b.ID, "inspector-rival"); !cert.IsAlreadyClaimed(err) {
				return fmt.Errorf("expected ALREADY_CLAIMED for second claim, got %v", err)
			}
			fmt.Fprintln(out, "second claim rejected: ALREADY_CLAIMED")

			if err := arbiter.CompleteInspection(ctx, ins.ID, true); err != nil {
				return err
			}

			c, err := issuer.IssueCredential(ctx, b.ID, "authority-demo", cert.Content{
				"product":  b.Product,
				"origin":   b.Origin,
				"quantity": b.Quantity,
				"grade":    "A",
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "credential %s issued\n", c.ID)

			info, err := anchors.Anchor(ctx, c.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "anchored on %s: %s @ block %d\n", info.Network, info.TxRef, info.BlockHeight)

			// Idempotent: same metadata, no second write.
			again, err := anchors.Anchor(ctx, c.ID)
			if err != nil {
				return err
			}
			if again != info {
				return fmt.Errorf("anchor not idempotent: %+v != %+v", again, info)
			}
			fmt.Fprintln(out, "re-anchor returned identical metadata")

			cancel()
			<-done
			return nil
		},
	}
}
