package cobra

import (
	"github.com/spf13/cobra"

	"github.com/nrchamb/QBDTestTool-Verosa/internal/commands"
)

func newCreateCmd() *cobra.Command {
	var opts commands.CreateOpts

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Generate a batch of test transactions",
		Long: `Generate a batch of test transactions in the company file.
Each transaction gets a unique ref number and is tracked in the session
so monitor and verify can follow it. The customer is created remotely
if it does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()
			return commands.Create(cmd.Context(), app, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "invoice", "transaction kind: invoice, sales_receipt, or statement_charge")
	cmd.Flags().IntVar(&opts.Count, "count", 1, "number of transactions to create")
	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer full name (required)")
	cmd.Flags().StringVar(&opts.Item, "item", "", "item full name for line items")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "ref number prefix (default per kind: INV, SR, CHG)")
	cmd.Flags().Float64Var(&opts.MinAmount, "min-amount", 0, "minimum random amount (default 10)")
	cmd.Flags().Float64Var(&opts.MaxAmount, "max-amount", 0, "maximum random amount (default 500)")
	cmd.Flags().StringVar(&opts.Memo, "memo", "", "memo stamped on each transaction")
	cmd.Flags().StringVar(&opts.Terms, "terms", "", "terms full name")
	cmd.Flags().StringVar(&opts.Class, "class", "", "class full name")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "random seed for reproducible batches (0 = time-based)")

	return cmd
}
