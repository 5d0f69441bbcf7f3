package posting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Severity grades a notification for the presentation layer.
type Severity int

const (
	Info Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "WARNING"
	}
	return "INFO"
}

// Code identifies the kind of condition a notification reports.
type Code string

const (
	// MappingMissing means no chart-of-accounts mapping resolves the
	// bank account to a ledger account; the run was aborted before any
	// posting.
	MappingMissing Code = "mapping_missing"
	// BalanceMismatch means the reconciled ledger balance differs from
	// the bank-reported closing balance. Postings are kept; the
	// operator must investigate the source data.
	BalanceMismatch Code = "balance_mismatch"
)

// Notification is a structured outcome the engine emits instead of
// rendering anything itself. How it is surfaced (log line, message box,
// API response) is the caller's decision.
type Notification struct {
	Code     Code
	Severity Severity
	Bank     string
	IBAN     string
	Account  string

	// Reconciliation detail, set for BalanceMismatch only.
	StatementBalance decimal.Decimal
	LedgerBalance    decimal.Decimal
	Difference       decimal.Decimal

	Text string
}

func mappingMissing(bank, iban string) Notification {
	// Unknown IBANs have no bank name to show.
	label := iban
	if bank != "" {
		label = bank + " " + iban
	}
	return Notification{
		Code:     MappingMissing,
		Severity: Info,
		Bank:     bank,
		IBAN:     iban,
		Text:     fmt.Sprintf("%s: no ledger account mapped, statements not posted", label),
	}
}

func balanceMismatch(bank, iban, account string, statement, computed decimal.Decimal) Notification {
	diff := statement.Sub(computed)
	return Notification{
		Code:             BalanceMismatch,
		Severity:         Warning,
		Bank:             bank,
		IBAN:             iban,
		Account:          account,
		StatementBalance: statement,
		LedgerBalance:    computed,
		Difference:       diff,
		Text: fmt.Sprintf("%s %s account %s: statement closing balance %s, ledger balance %s, difference %s",
			bank, iban, account, statement, computed, diff),
	}
}
