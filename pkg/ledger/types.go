// Package ledger defines the domain types shared between the statement
// store, the contra-account recommender, and the posting engine.
package ledger

import (
	"errors"
	"fmt"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/shopspring/decimal"
)

// ErrIDNoTaken reports an id_no collision on insert. Concurrent runs
// posting into the same year range can race on max-plus-one allocation;
// the engine reallocates and retries.
var ErrIDNoTaken = errors.New("ledger id_no already taken")

// ErrAlreadyLinked reports that a statement's natural key is already
// linked, i.e. another run posted it first.
var ErrAlreadyLinked = errors.New("statement already linked")

// NotAssigned is the sentinel account value distinguishing "no match
// found" from any real account identifier. A lookup that yields this
// value must never be treated as a resolved account.
const NotAssigned = "NA"

// Status marks the side of a bank statement movement.
type Status string

const (
	Credit Status = "C"
	Debit  Status = "D"
)

// StatementRecord is one bank-reported movement, immutable once
// downloaded. The statement-import collaborator owns these rows; this
// module only reads them.
type StatementRecord struct {
	IBAN      string
	EntryDate dates.Date
	Counter   int
	Status    Status
	Amount    decimal.Decimal
	Currency  string

	ValueDate dates.Date

	// PostingText is the bank's short booking text ("SEPA-Überweisung",
	// "Lastschrift", ...), Purpose the free-form purpose lines.
	PostingText         string
	Purpose             string
	PurposeWoIdentifier string

	ApplicantName string
	ApplicantIBAN string
	CreditorID    string
	DebitorID     string
	MandateID     string

	OpeningBalance decimal.Decimal
	OpeningStatus  Status
	OpeningDate    dates.Date
	ClosingBalance decimal.Decimal
	ClosingStatus  Status
	ClosingDate    dates.Date
}

// Key is the natural key of a StatementRecord.
type Key struct {
	IBAN      string
	EntryDate dates.Date
	Counter   int
	Status    Status
}

// Key returns the record's natural key.
func (r StatementRecord) Key() Key {
	return Key{IBAN: r.IBAN, EntryDate: r.EntryDate, Counter: r.Counter, Status: r.Status}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.IBAN, k.EntryDate, k.Counter, k.Status)
}

// Entry is one double-entry ledger posting. Entries are never updated
// after creation; corrections are new entries.
type Entry struct {
	IDNo          int64
	Date          dates.Date
	ValueDate     dates.Date
	Amount        decimal.Decimal
	Currency      string
	PostingText   string
	ApplicantName string
	CreditAccount string
	DebitAccount  string
}

// StatementLink records that a statement row has been transformed into a
// ledger entry. Its existence is the idempotency guard: a linked
// statement must be skipped on re-runs. Links are created in the same
// transaction as the entry they reference.
type StatementLink struct {
	Key  Key
	IDNo int64
}

// TextHistory maps a statement posting text to the contra account most
// recently used with it. One map is built per side (credit-attributed or
// debit-attributed) and per run; it is an immutable input to the
// recommender, never shared mutable state.
type TextHistory map[string]string

// Lookup returns the account mapped to text, or NotAssigned.
func (h TextHistory) Lookup(text string) string {
	if acct, ok := h[text]; ok && acct != "" {
		return acct
	}
	return NotAssigned
}
