package db

import (
	"database/sql"
	"fmt"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
	"github.com/shopspring/decimal"
)

func matchColumn(f ledger.MatchField) string {
	switch f {
	case ledger.MatchCreditorID:
		return "creditor_id"
	case ledger.MatchDebitorID:
		return "debitor_id"
	case ledger.MatchMandateID:
		return "mandate_id"
	case ledger.MatchApplicantIBAN:
		return "applicant_iban"
	case ledger.MatchApplicantName:
		return "applicant_name"
	default:
		return "purpose_wo_identifier"
	}
}

// Statements reads and writes bank statement rows. Writes are the
// statement-import collaborator's boundary; the posting engine only
// reads.
type Statements struct {
	conn *Connection
}

// NewStatements creates a Statements store on conn.
func NewStatements(conn *Connection) *Statements {
	return &Statements{conn: conn}
}

// Insert stores one statement row. Duplicate natural keys are rejected
// by the unique constraint.
func (s *Statements) Insert(rec ledger.StatementRecord) error {
	query := `
		INSERT INTO statements (
			iban, entry_date, counter, status, amount, currency,
			value_date, posting_text, purpose, purpose_wo_identifier,
			applicant_name, applicant_iban, creditor_id, debitor_id, mandate_id,
			opening_balance, opening_status, opening_date,
			closing_balance, closing_status, closing_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.conn.Exec(query,
		rec.IBAN,
		rec.EntryDate.String(),
		rec.Counter,
		string(rec.Status),
		rec.Amount.String(),
		rec.Currency,
		nullDate(rec.ValueDate),
		nullString(rec.PostingText),
		nullString(rec.Purpose),
		nullString(rec.PurposeWoIdentifier),
		nullString(rec.ApplicantName),
		nullString(rec.ApplicantIBAN),
		nullString(rec.CreditorID),
		nullString(rec.DebitorID),
		nullString(rec.MandateID),
		nullDecimal(rec.OpeningBalance),
		nullString(string(rec.OpeningStatus)),
		nullDate(rec.OpeningDate),
		nullDecimal(rec.ClosingBalance),
		nullString(string(rec.ClosingStatus)),
		nullDate(rec.ClosingDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert statement %s: %w", rec.Key(), err)
	}

	return nil
}

const statementColumns = `
	iban, entry_date, counter, status, amount, currency,
	value_date, posting_text, purpose, purpose_wo_identifier,
	applicant_name, applicant_iban, creditor_id, debitor_id, mandate_id,
	opening_balance, opening_status, opening_date,
	closing_balance, closing_status, closing_date
`

// Select returns statement rows for an IBAN with entry_date in
// [from, to], both bounds inclusive; a zero `to` leaves the upper end
// open. Rows come back in statement order: by entry date, then by the
// order they were imported in. No re-sorting by amount.
func (s *Statements) Select(iban string, from, to dates.Date) ([]ledger.StatementRecord, error) {
	query := `SELECT` + statementColumns + `FROM statements WHERE iban = ? AND entry_date >= ?`
	args := []interface{}{iban, from.String()}
	if !to.IsZero() {
		query += ` AND entry_date <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY entry_date, id`

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select statements: %w", err)
	}
	defer rows.Close()

	var records []ledger.StatementRecord
	for rows.Next() {
		rec, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// MaxLinkedDate returns the latest entry_date already linked to a
// ledger entry for this IBAN, the high-water mark of incremental
// posting. The second result is false when nothing has been linked yet.
func (s *Statements) MaxLinkedDate(iban string) (dates.Date, bool, error) {
	var max sql.NullString
	err := s.conn.QueryRow(
		`SELECT MAX(entry_date) FROM ledger_statement_links WHERE iban = ?`, iban,
	).Scan(&max)
	if err != nil {
		return dates.Date{}, false, fmt.Errorf("failed to get max linked date: %w", err)
	}
	if !max.Valid {
		return dates.Date{}, false, nil
	}

	d, err := dates.Parse(max.String)
	if err != nil {
		return dates.Date{}, false, fmt.Errorf("corrupt linked date: %w", err)
	}
	return d, true, nil
}

// ResolvedContra looks for a prior statement of the same IBAN within
// [from, to] whose given field matches value, and returns the contra
// account of the ledger entry that statement was posted to. The most
// recently dated match wins. Returns the NA sentinel when nothing
// matches or the match itself resolved to the sentinel.
func (s *Statements) ResolvedContra(iban string, field ledger.MatchField, value string, from, to dates.Date) (string, error) {
	if value == "" {
		return ledger.NotAssigned, nil
	}

	column := matchColumn(field)
	predicate := fmt.Sprintf("s.%s = ?", column)
	if field == ledger.MatchPurposePrefix {
		// substr counts characters, so truncate runes, not bytes.
		predicate = fmt.Sprintf("substr(s.%s, 1, %d) = ?", column, ledger.PurposePrefixLen)
		if r := []rune(value); len(r) > ledger.PurposePrefixLen {
			value = string(r[:ledger.PurposePrefixLen])
		}
	}

	query := `
		SELECT CASE WHEN s.status = 'C' THEN l.debit_account ELSE l.credit_account END
		FROM statements s
		JOIN ledger_statement_links k
			ON k.iban = s.iban AND k.entry_date = s.entry_date
			AND k.counter = s.counter AND k.status = s.status
		JOIN ledger l ON l.id_no = k.id_no
		WHERE s.iban = ? AND ` + predicate + `
			AND s.entry_date >= ? AND s.entry_date <= ?
		ORDER BY s.entry_date DESC, s.id DESC
		LIMIT 1
	`

	var account string
	err := s.conn.QueryRow(query, iban, value, from.String(), to.String()).Scan(&account)
	if err == sql.ErrNoRows {
		return ledger.NotAssigned, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve contra by %s: %w", column, err)
	}
	if account == "" {
		return ledger.NotAssigned, nil
	}

	return account, nil
}

func scanStatement(rows *sql.Rows) (ledger.StatementRecord, error) {
	var (
		rec        ledger.StatementRecord
		entryDate  string
		status     string
		amount     string
		valueDate  sql.NullString
		postText   sql.NullString
		purpose    sql.NullString
		purposeWoI sql.NullString
		applName   sql.NullString
		applIBAN   sql.NullString
		creditorID sql.NullString
		debitorID  sql.NullString
		mandateID  sql.NullString
		openBal    sql.NullString
		openStatus sql.NullString
		openDate   sql.NullString
		closeBal   sql.NullString
		closeStat  sql.NullString
		closeDate  sql.NullString
	)

	if err := rows.Scan(
		&rec.IBAN, &entryDate, &rec.Counter, &status, &amount, &rec.Currency,
		&valueDate, &postText, &purpose, &purposeWoI,
		&applName, &applIBAN, &creditorID, &debitorID, &mandateID,
		&openBal, &openStatus, &openDate,
		&closeBal, &closeStat, &closeDate,
	); err != nil {
		return rec, fmt.Errorf("failed to scan statement: %w", err)
	}

	var err error
	if rec.EntryDate, err = dates.Parse(entryDate); err != nil {
		return rec, fmt.Errorf("corrupt entry date: %w", err)
	}
	rec.Status = ledger.Status(status)
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return rec, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}

	if rec.ValueDate, err = parseNullDate(valueDate); err != nil {
		return rec, err
	}
	rec.PostingText = postText.String
	rec.Purpose = purpose.String
	rec.PurposeWoIdentifier = purposeWoI.String
	rec.ApplicantName = applName.String
	rec.ApplicantIBAN = applIBAN.String
	rec.CreditorID = creditorID.String
	rec.DebitorID = debitorID.String
	rec.MandateID = mandateID.String

	if rec.OpeningBalance, err = parseNullDecimal(openBal); err != nil {
		return rec, err
	}
	rec.OpeningStatus = ledger.Status(openStatus.String)
	if rec.OpeningDate, err = parseNullDate(openDate); err != nil {
		return rec, err
	}
	if rec.ClosingBalance, err = parseNullDecimal(closeBal); err != nil {
		return rec, err
	}
	rec.ClosingStatus = ledger.Status(closeStat.String)
	if rec.ClosingDate, err = parseNullDate(closeDate); err != nil {
		return rec, err
	}

	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d dates.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// nullDecimal stores NULL for the zero value, like nullDate and
// nullString; a zero balance scans back to decimal.Zero either way.
func nullDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (dates.Date, error) {
	if !s.Valid || s.String == "" {
		return dates.Date{}, nil
	}
	d, err := dates.Parse(s.String)
	if err != nil {
		return dates.Date{}, fmt.Errorf("corrupt date %q: %w", s.String, err)
	}
	return d, nil
}

func parseNullDecimal(s sql.NullString) (decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", s.String, err)
	}
	return d, nil
}
