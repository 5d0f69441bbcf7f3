package cmd

import (
	"fmt"
	"log/slog"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/config"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/db"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display posting statistics",
	Long: `Display statistics about the ledger transfer.

Shows:
- Total number of ledger entries
- Total number of statement links
- Date of the latest ledger entry
- Timestamp of the last posting run

Example:
  banken-ledger stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	slog.Debug("Opening database", "path", cfg.DBPath)
	conn, err := db.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	stats, err := db.NewLedger(conn).GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Ledger Statistics ===")
	fmt.Printf("Ledger entries:    %d\n", stats.Entries)
	fmt.Printf("Statement links:   %d\n", stats.Links)

	if stats.LastEntry.Valid {
		fmt.Printf("Latest entry date: %s\n", stats.LastEntry.String)
	} else {
		fmt.Printf("Latest entry date: (none)\n")
	}
	if stats.LastPosted.Valid {
		fmt.Printf("Last posting run:  %s\n", stats.LastPosted.String)
	} else {
		fmt.Printf("Last posting run:  (never)\n")
	}

	fmt.Println()
}
