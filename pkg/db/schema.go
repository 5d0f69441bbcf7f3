package db

// Schema defines the SQL statements to create database tables.
//
// Monetary amounts are stored as decimal strings, never as REAL;
// summation happens in Go through the money package so no binary
// floating point ever touches an amount.
const Schema = `
-- Bank statement rows, immutable once downloaded.
-- Owned by the statement-import collaborator; this module only reads
-- them. Natural key: (iban, entry_date, counter, status).
CREATE TABLE IF NOT EXISTS statements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    iban TEXT NOT NULL,
    entry_date TEXT NOT NULL,              -- YYYY-MM-DD
    counter INTEGER NOT NULL,              -- per-day sequence
    status TEXT NOT NULL,                  -- 'C' or 'D'
    amount TEXT NOT NULL,                  -- decimal string
    currency TEXT NOT NULL,
    value_date TEXT,
    posting_text TEXT,
    purpose TEXT,
    purpose_wo_identifier TEXT,
    applicant_name TEXT,
    applicant_iban TEXT,
    creditor_id TEXT,
    debitor_id TEXT,
    mandate_id TEXT,
    opening_balance TEXT,
    opening_status TEXT,
    opening_date TEXT,
    closing_balance TEXT,
    closing_status TEXT,
    closing_date TEXT,
    UNIQUE(iban, entry_date, counter, status)
);

CREATE INDEX IF NOT EXISTS idx_statements_iban_date
    ON statements(iban, entry_date);

CREATE INDEX IF NOT EXISTS idx_statements_creditor
    ON statements(iban, creditor_id);

CREATE INDEX IF NOT EXISTS idx_statements_applicant
    ON statements(iban, applicant_iban);

-- Double-entry ledger postings. Never updated after creation;
-- corrections are new entries. id_no is year-partitioned
-- (year*1,000,000 + n) so ordering by id_no approximates chronology.
CREATE TABLE IF NOT EXISTS ledger (
    id_no INTEGER PRIMARY KEY,
    entry_date TEXT NOT NULL,
    value_date TEXT,
    amount TEXT NOT NULL,
    currency TEXT,
    posting_text TEXT,
    applicant_name TEXT,
    credit_account TEXT NOT NULL,
    debit_account TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_credit
    ON ledger(credit_account, entry_date);

CREATE INDEX IF NOT EXISTS idx_ledger_debit
    ON ledger(debit_account, entry_date);

-- Statement-to-ledger links. A row here means the statement has been
-- posted; the engine skips linked statements on re-runs. Always written
-- in the same transaction as the ledger entry it references.
CREATE TABLE IF NOT EXISTS ledger_statement_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    iban TEXT NOT NULL,
    entry_date TEXT NOT NULL,
    counter INTEGER NOT NULL,
    status TEXT NOT NULL,
    id_no INTEGER NOT NULL REFERENCES ledger(id_no),
    posted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(iban, entry_date, counter, status)
);

CREATE INDEX IF NOT EXISTS idx_links_iban_date
    ON ledger_statement_links(iban, entry_date);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
