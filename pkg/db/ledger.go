package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Ledger reads and writes double-entry postings and their statement
// links. It is the only writer of both tables.
type Ledger struct {
	conn *Connection
}

// NewLedger creates a Ledger store on conn.
func NewLedger(conn *Connection) *Ledger {
	return &Ledger{conn: conn}
}

// MaxIDNo returns the largest id_no in [lo, hi), or false when the range
// holds no entries.
func (l *Ledger) MaxIDNo(lo, hi int64) (int64, bool, error) {
	var max sql.NullInt64
	err := l.conn.QueryRow(
		`SELECT MAX(id_no) FROM ledger WHERE id_no >= ? AND id_no < ?`, lo, hi,
	).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get max id_no: %w", err)
	}
	return max.Int64, max.Valid, nil
}

// LinkExists reports whether the statement key has already been posted.
func (l *Ledger) LinkExists(key ledger.Key) (bool, error) {
	var count int
	err := l.conn.QueryRow(`
		SELECT COUNT(*) FROM ledger_statement_links
		WHERE iban = ? AND entry_date = ? AND counter = ? AND status = ?
	`, key.IBAN, key.EntryDate.String(), key.Counter, string(key.Status)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check link for %s: %w", key, err)
	}
	return count > 0, nil
}

// InsertPosted writes a ledger entry and the link for the statement it
// came from in one transaction. Either both rows become visible or
// neither does; a crash can never leave an entry without its idempotency
// guard or a guard without its entry. An id_no collision surfaces as
// ledger.ErrIDNoTaken, a duplicate statement key as
// ledger.ErrAlreadyLinked.
func (l *Ledger) InsertPosted(entry ledger.Entry, key ledger.Key) error {
	err := l.conn.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO ledger (
				id_no, entry_date, value_date, amount, currency,
				posting_text, applicant_name, credit_account, debit_account
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			entry.IDNo,
			entry.Date.String(),
			nullDate(entry.ValueDate),
			entry.Amount.String(),
			nullString(entry.Currency),
			nullString(entry.PostingText),
			nullString(entry.ApplicantName),
			entry.CreditAccount,
			entry.DebitAccount,
		)
		if err != nil {
			if isConstraintErr(err) {
				return fmt.Errorf("id_no %d: %w", entry.IDNo, ledger.ErrIDNoTaken)
			}
			return fmt.Errorf("failed to insert ledger entry %d: %w", entry.IDNo, err)
		}

		_, err = tx.Exec(`
			INSERT INTO ledger_statement_links (iban, entry_date, counter, status, id_no)
			VALUES (?, ?, ?, ?, ?)
		`, key.IBAN, key.EntryDate.String(), key.Counter, string(key.Status), entry.IDNo)
		if err != nil {
			if isConstraintErr(err) {
				return fmt.Errorf("statement %s: %w", key, ledger.ErrAlreadyLinked)
			}
			return fmt.Errorf("failed to insert link for %s: %w", key, err)
		}

		return nil
	})
	return err
}

// SumSide totals the amounts posted to the given side of an account over
// [from, to]. Summation runs through decimal arithmetic on the stored
// amount strings; SQL SUM over floats would not be exact.
func (l *Ledger) SumSide(account string, side ledger.Status, from, to dates.Date) (decimal.Decimal, error) {
	column := "debit_account"
	if side == ledger.Credit {
		column = "credit_account"
	}

	query := fmt.Sprintf(`
		SELECT amount FROM ledger
		WHERE %s = ? AND entry_date >= ? AND entry_date <= ?
	`, column)

	rows, err := l.conn.Query(query, account, from.String(), to.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s postings: %w", column, err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		sum = sum.Add(d)
	}

	return sum, rows.Err()
}

// TextHistory builds the posting-text map for one side of an account:
// posting text to the contra account most recently used with it. Rows
// are scanned in id_no order so later postings overwrite earlier ones.
func (l *Ledger) TextHistory(account string, side ledger.Status) (ledger.TextHistory, error) {
	owning, contra := "debit_account", "credit_account"
	if side == ledger.Credit {
		owning, contra = "credit_account", "debit_account"
	}

	query := fmt.Sprintf(`
		SELECT posting_text, %s FROM ledger
		WHERE %s = ? AND posting_text IS NOT NULL
		ORDER BY id_no
	`, contra, owning)

	rows, err := l.conn.Query(query, account)
	if err != nil {
		return nil, fmt.Errorf("failed to build text history: %w", err)
	}
	defer rows.Close()

	history := make(ledger.TextHistory)
	for rows.Next() {
		var text, acct string
		if err := rows.Scan(&text, &acct); err != nil {
			return nil, fmt.Errorf("failed to scan text history: %w", err)
		}
		if text != "" && acct != "" && acct != ledger.NotAssigned {
			history[text] = acct
		}
	}

	return history, rows.Err()
}

// Stats summarizes posting progress for the stats command.
type Stats struct {
	Entries    int
	Links      int
	LastEntry  sql.NullString
	LastPosted sql.NullString
}

// GetStats reports entry and link counts plus the latest posting dates.
func (l *Ledger) GetStats() (*Stats, error) {
	var stats Stats

	if err := l.conn.QueryRow(`SELECT COUNT(*) FROM ledger`).Scan(&stats.Entries); err != nil {
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	if err := l.conn.QueryRow(`SELECT COUNT(*) FROM ledger_statement_links`).Scan(&stats.Links); err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	if err := l.conn.QueryRow(`SELECT MAX(entry_date) FROM ledger`).Scan(&stats.LastEntry); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last entry date: %w", err)
	}

	if err := l.conn.QueryRow(`SELECT MAX(posted_at) FROM ledger_statement_links`).Scan(&stats.LastPosted); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last posted time: %w", err)
	}

	return &stats, nil
}

func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
