package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldcert/fieldcert/internal/cert"
	"github.com/fieldcert/fieldcert/internal/lifecycle"
)

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(opts *RootOptions) *cobra.Command {
	var (
		producer string
		product  string
		quantity int64
		unit     string
		origin   string
		harvest  string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register a new batch and submit it for inspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			harvestDate, err := time.Parse("2006-01-02", harvest)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --harvest date (want YYYY-MM-DD)", err)
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.registrar.SubmitBatch(cmd.Context(), lifecycle.BatchParams{
				ProducerID:  producer,
				Product:     product,
				Quantity:    quantity,
				Unit:        unit,
				Origin:      origin,
				HarvestDate: harvestDate,
			})
			if err != nil {
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return f.Print(newBatchView(b), func(w io.Writer) {
				fmt.Fprintf(w, "batch %s submitted\n", b.ID)
				fmt.Fprintf(w, "tracking token: %s\n", b.TrackingToken)
			})
		},
	}

	cmd.Flags().StringVar(&producer, "producer", "", "producer id (required)")
	cmd.Flags().StringVar(&product, "product", "", "product descriptor (required)")
	cmd.Flags().Int64Var(&quantity, "quantity", 0, "quantity (required)")
	cmd.Flags().StringVar(&unit, "unit", "kg", "quantity unit")
	cmd.Flags().StringVar(&origin, "origin", "", "origin (required)")
	cmd.Flags().StringVar(&harvest, "harvest", "", "harvest date, YYYY-MM-DD (required)")
	cmd.MarkFlagRequired("producer")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("quantity")
	cmd.MarkFlagRequired("origin")
	cmd.MarkFlagRequired("harvest")

	return cmd
}

// batchView is the JSON projection of a batch for CLI output.
type batchView struct {
	ID            string `json:"id"`
	ProducerID    string `json:"producer_id"`
	Product       string `json:"product"`
	Quantity      int64  `json:"quantity"`
	Unit          string `json:"unit"`
	Origin        string `json:"origin"`
	HarvestDate   string `json:"harvest_date"`
	TrackingToken string `json:"tracking_token"`
	Status        string `json:"status"`
}

func newBatchView(b cert.Batch) batchView {
	return batchView{
		ID:            b.ID,
		ProducerID:    b.ProducerID,
		Product:       b.Product,
		Quantity:      b.Quantity,
		Unit:          b.Unit,
		Origin:        b.Origin,
		HarvestDate:   b.HarvestDate.Format("2006-01-02"),
		TrackingToken: b.TrackingToken,
		Status:        string(b.Status),
	}
}
