// Package recommend infers the contra account for a bank statement
// movement through a layered heuristic: explicit chart configuration
// first, then recent SEPA identifier matches, then posting-text history
// as a last resort.
package recommend

import (
	"fmt"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/chart"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
)

// lookbackDays bounds the historical match window. A match exactly 370
// days before the entry date is still considered; 371 days is not. The
// entry date itself is excluded by the 1-day upper bound.
const lookbackDays = 370

// HistoryFinder resolves the contra account a prior matching statement
// was posted to. Implemented by db.Statements.
type HistoryFinder interface {
	ResolvedContra(iban string, field ledger.MatchField, value string, from, to dates.Date) (string, error)
}

// matcher pairs a statement field with its value extractor. The slice
// below fixes the lookup order; earlier fields carry more confidence.
type matcher struct {
	field ledger.MatchField
	value func(ledger.StatementRecord) string
}

var sepaMatchers = []matcher{
	{ledger.MatchCreditorID, func(r ledger.StatementRecord) string { return r.CreditorID }},
	{ledger.MatchDebitorID, func(r ledger.StatementRecord) string { return r.DebitorID }},
	{ledger.MatchMandateID, func(r ledger.StatementRecord) string { return r.MandateID }},
	{ledger.MatchApplicantIBAN, func(r ledger.StatementRecord) string { return r.ApplicantIBAN }},
	{ledger.MatchApplicantName, func(r ledger.StatementRecord) string { return r.ApplicantName }},
	{ledger.MatchPurposePrefix, func(r ledger.StatementRecord) string { return r.PurposeWoIdentifier }},
}

// Recommender returns the best-guess contra account for a statement
// record, or the NA sentinel when no tier yields one.
type Recommender struct {
	History HistoryFinder
}

// New creates a Recommender backed by the given history store.
func New(history HistoryFinder) *Recommender {
	return &Recommender{History: history}
}

// Recommend resolves the contra account for rec in strict priority
// order: the chart's fixed contra override, then prior statements with a
// matching SEPA field inside the lookback window, then the supplied
// posting-text history. A sentinel coming back from any lookup counts as
// "no match", never as an account.
func (rc *Recommender) Recommend(owning chart.Mapping, rec ledger.StatementRecord, texts ledger.TextHistory) (string, error) {
	if contra := owning.FixedContra(); contra != ledger.NotAssigned {
		return contra, nil
	}

	from := rec.EntryDate.Add(-lookbackDays)
	to := rec.EntryDate.Add(-1)
	for _, m := range sepaMatchers {
		value := m.value(rec)
		if value == "" {
			continue
		}
		account, err := rc.History.ResolvedContra(rec.IBAN, m.field, value, from, to)
		if err != nil {
			return "", fmt.Errorf("historical match failed: %w", err)
		}
		if account != "" && account != ledger.NotAssigned {
			return account, nil
		}
	}

	if account := texts.Lookup(rec.PostingText); account != ledger.NotAssigned && account != owning.LedgerAccount {
		return account, nil
	}

	return ledger.NotAssigned, nil
}
