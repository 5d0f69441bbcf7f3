package cmd

import (
	"fmt"
	"log/slog"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/chart"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/config"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/db"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/posting"
	"github.com/spf13/cobra"
)

var postIBAN string

// postCmd represents the post command.
var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post new bank statements to the ledger",
	Long: `Post not-yet-posted bank statements to the double-entry ledger.

This command:
1. Selects statements above the account's high-water mark
2. Infers the contra account for each movement
3. Writes ledger entries and statement links atomically
4. Reconciles the ledger balance against the closing balance

Without --iban, all accounts in the chart of accounts are posted;
an account without a ledger mapping is reported and skipped, it never
stops the other accounts.

Example:
  banken-ledger post
  banken-ledger post --iban DE02120300000000202051`,
	Run: runPost,
}

func init() {
	postCmd.Flags().StringVar(&postIBAN, "iban", "", "post a single bank account")
}

func runPost(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")
	exitOnError(cfg.Validate(), "invalid configuration")

	accounts, err := chart.Load(cfg.ChartPath)
	exitOnError(err, "failed to load chart of accounts")

	slog.Debug("Opening database", "path", cfg.DBPath)
	conn, err := db.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	engine := posting.NewEngine(
		db.NewStatements(conn),
		db.NewLedger(conn),
		accounts,
		posting.WithTransferStart(cfg.TransferStart),
	)

	ibans := accounts.IBANs()
	if postIBAN != "" {
		ibans = []string{postIBAN}
	}

	totalPosted, totalSkipped := 0, 0
	for _, iban := range ibans {
		result, err := engine.Run(iban)
		exitOnError(err, fmt.Sprintf("posting failed for %s", iban))

		totalPosted += result.Posted
		totalSkipped += result.Skipped
		for _, note := range result.Notifications {
			fmt.Printf("[%s] %s\n", note.Severity, note.Text)
		}
	}

	fmt.Println("\n=== Posting Summary ===")
	fmt.Printf("Accounts processed: %d\n", len(ibans))
	fmt.Printf("Entries posted:     %d\n", totalPosted)
	fmt.Printf("Already linked:     %d\n", totalSkipped)
	fmt.Println()
}
