package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldcert/fieldcert/internal/cert"
)

// NewCertifyCommand creates the certify command.
func NewCertifyCommand(opts *RootOptions) *cobra.Command {
	var (
		authority   string
		contentPath string
	)

	cmd := &cobra.Command{
		Use:   "certify <batch-id>",
		Short: "Issue a credential for an inspected batch",
		Long: "Certifies an inspected batch and records its credential. The content " +
			"file is a JSON object of strings, integers, booleans, arrays, and nested " +
			"objects; floats and nulls are rejected because the content is canonically hashed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(contentPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading content file", err)
			}
			content, err := cert.UnmarshalContent(data)
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing content file", err)
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.issuer.IssueCredential(cmd.Context(), args[0], authority, content)
			if err != nil {
				return err
			}

			f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			view := map[string]string{
				"credential_id": c.ID,
				"batch_id":      c.BatchID,
				"authority_id":  c.AuthorityID,
			}
			return f.Print(view, func(w io.Writer) {
				fmt.Fprintf(w, "credential %s issued for batch %s\n", c.ID, c.BatchID)
			})
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "", "issuing authority id (required)")
	cmd.Flags().StringVar(&contentPath, "content", "", "credential content JSON file (required)")
	cmd.MarkFlagRequired("authority")
	cmd.MarkFlagRequired("content")

	return cmd
}
