// Package posting transforms not-yet-posted bank statement rows into
// balanced double-entry ledger postings and reconciles the resulting
// ledger balance against the bank-reported closing balance.
package posting

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/chart"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/money"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/recommend"
	"github.com/shopspring/decimal"
)

// DefaultTransferStart is the epoch used as high-water mark when an
// account has never been posted.
var DefaultTransferStart = dates.New(2020, time.January, 1)

// yearRange is the id_no partition width: entries of one calendar year
// live in [year*yearRange, (year+1)*yearRange).
const yearRange int64 = 1_000_000

// maxAllocAttempts bounds retries after an id_no collision. Collisions
// only happen when concurrent runs allocate into the same year range.
const maxAllocAttempts = 3

// StatementSource is the statement-import collaborator's read boundary.
// Implemented by db.Statements.
type StatementSource interface {
	recommend.HistoryFinder
	Select(iban string, from, to dates.Date) ([]ledger.StatementRecord, error)
	MaxLinkedDate(iban string) (dates.Date, bool, error)
}

// LedgerStore persists postings and answers the aggregate queries the
// engine reconciles with. Implemented by db.Ledger.
type LedgerStore interface {
	MaxIDNo(lo, hi int64) (int64, bool, error)
	LinkExists(key ledger.Key) (bool, error)
	InsertPosted(entry ledger.Entry, key ledger.Key) error
	SumSide(account string, side ledger.Status, from, to dates.Date) (decimal.Decimal, error)
	TextHistory(account string, side ledger.Status) (ledger.TextHistory, error)
}

// Result summarizes one engine run for a single bank account.
type Result struct {
	IBAN          string
	Posted        int
	Skipped       int
	Notifications []Notification
}

// Engine drives the statement-to-ledger transfer. It runs single
// threaded, one bank account per invocation; cross-invocation safety
// rests on the store's transactional guarantees.
type Engine struct {
	statements    StatementSource
	store         LedgerStore
	chart         *chart.Chart
	recommender   *recommend.Recommender
	calc          money.Calculator
	transferStart dates.Date
	log           *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTransferStart overrides the epoch used when an account has never
// been posted.
func WithTransferStart(d dates.Date) Option {
	return func(e *Engine) { e.transferStart = d }
}

// WithLogger sets the engine's logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a posting engine over the given stores and chart.
func NewEngine(statements StatementSource, store LedgerStore, accounts *chart.Chart, opts ...Option) *Engine {
	e := &Engine{
		statements:    statements,
		store:         store,
		chart:         accounts,
		recommender:   recommend.New(statements),
		calc:          money.New(),
		transferStart: DefaultTransferStart,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run posts all not-yet-posted statements of one bank account and
// reconciles the period balance. Store failures propagate to the caller
// untouched; the engine retries nothing beyond id_no collisions.
// Re-running after a partial failure is safe: linked statements are
// skipped.
func (e *Engine) Run(iban string) (*Result, error) {
	result := &Result{IBAN: iban}

	mapping, ok := e.chart.Lookup(iban)
	if !ok || mapping.LedgerAccount == "" || mapping.LedgerAccount == ledger.NotAssigned {
		e.log.Info("no ledger account mapped", "iban", iban)
		result.Notifications = append(result.Notifications, mappingMissing(mapping.Bank, iban))
		return result, nil
	}
	account := mapping.LedgerAccount

	creditTexts, err := e.store.TextHistory(account, ledger.Credit)
	if err != nil {
		return nil, err
	}
	debitTexts, err := e.store.TextHistory(account, ledger.Debit)
	if err != nil {
		return nil, err
	}

	highWater, linked, err := e.statements.MaxLinkedDate(iban)
	if err != nil {
		return nil, err
	}
	if !linked {
		highWater = e.transferStart
	}

	records, err := e.statements.Select(iban, highWater, dates.Date{})
	if err != nil {
		return nil, err
	}
	e.log.Debug("selected statements", "iban", iban, "high_water", highWater, "count", len(records))

	for _, rec := range records {
		if rec.Amount.IsZero() {
			continue
		}

		exists, err := e.store.LinkExists(rec.Key())
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		texts := debitTexts
		if rec.Status == ledger.Credit {
			texts = creditTexts
		}
		contra, err := e.recommender.Recommend(mapping, rec, texts)
		if err != nil {
			return result, err
		}

		entry := buildEntry(rec, account, contra)
		if err := e.post(entry, rec.Key()); err != nil {
			if errors.Is(err, ledger.ErrAlreadyLinked) {
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Posted++
	}

	note, err := e.reconcile(mapping, highWater)
	if err != nil {
		return result, err
	}
	if note != nil {
		result.Notifications = append(result.Notifications, *note)
	}

	e.log.Info("posting run finished",
		"iban", iban, "posted", result.Posted, "skipped", result.Skipped,
		"notifications", len(result.Notifications))
	return result, nil
}

// buildEntry copies the statement onto a new ledger entry, leaving
// empty source fields unset, and puts the owning ledger account on the
// side matching the statement status.
func buildEntry(rec ledger.StatementRecord, account, contra string) ledger.Entry {
	entry := ledger.Entry{
		Date:          rec.EntryDate,
		ValueDate:     rec.ValueDate,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		PostingText:   rec.PostingText,
		ApplicantName: rec.ApplicantName,
	}
	if rec.Status == ledger.Credit {
		entry.CreditAccount = account
		entry.DebitAccount = contra
	} else {
		entry.DebitAccount = account
		entry.CreditAccount = contra
	}
	return entry
}

// post allocates an id_no and writes entry plus link atomically,
// reallocating on an id_no collision.
func (e *Engine) post(entry ledger.Entry, key ledger.Key) error {
	for attempt := 0; attempt < maxAllocAttempts; attempt++ {
		idNo, err := e.allocateIDNo(entry.Date.Year())
		if err != nil {
			return err
		}
		entry.IDNo = idNo

		err = e.store.InsertPosted(entry, key)
		if errors.Is(err, ledger.ErrIDNoTaken) {
			e.log.Debug("id_no collision, reallocating", "id_no", idNo, "attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("could not allocate id_no for %s after %d attempts", key, maxAllocAttempts)
}

// allocateIDNo yields the next id_no in the entry year's partition:
// max+1 when the range holds entries, otherwise year*1,000,000+1.
func (e *Engine) allocateIDNo(year int) (int64, error) {
	lo := int64(year) * yearRange
	hi := lo + yearRange
	max, found, err := e.store.MaxIDNo(lo, hi)
	if err != nil {
		return 0, err
	}
	if found {
		return max + 1, nil
	}
	return lo + 1, nil
}

// reconcile checks opening balance plus ledger credits minus ledger
// debits against the statement-reported closing balance for the period
// from the high-water mark to Dec 31 of the current year. A mismatch is
// reported, never rolled back.
func (e *Engine) reconcile(mapping chart.Mapping, highWater dates.Date) (*Notification, error) {
	periodEnd := dates.New(dates.Today().Year(), time.December, 31)
	records, err := e.statements.Select(mapping.IBAN, highWater, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	opening := signedBalance(records[0].OpeningBalance, records[0].OpeningStatus)
	closing := signedBalance(records[len(records)-1].ClosingBalance, records[len(records)-1].ClosingStatus)

	credits, err := e.store.SumSide(mapping.LedgerAccount, ledger.Credit, highWater, periodEnd)
	if err != nil {
		return nil, err
	}
	debits, err := e.store.SumSide(mapping.LedgerAccount, ledger.Debit, highWater, periodEnd)
	if err != nil {
		return nil, err
	}

	computed := e.calc.Sub(e.calc.Add(opening, credits), debits)
	if computed.Equal(closing) {
		return nil, nil
	}

	e.log.Warn("balance mismatch",
		"iban", mapping.IBAN, "account", mapping.LedgerAccount,
		"statement", closing, "ledger", computed)
	note := balanceMismatch(mapping.Bank, mapping.IBAN, mapping.LedgerAccount, closing, computed)
	return &note, nil
}

// signedBalance flips a balance reported with debit status; credit
// balances pass through unchanged.
func signedBalance(balance decimal.Decimal, status ledger.Status) decimal.Decimal {
	if status == ledger.Debit {
		return balance.Neg()
	}
	return balance
}
