package db

import (
	"errors"
	"testing"

	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/dates"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/ledger"
	"github.com/WolfgangKramer/Banken-Ledger-sub001/pkg/money"
)

const testIBAN = "DE02120300000000202051"

func openTestDB(t *testing.T) *Connection {
	t.Helper()
	conn, err := OpenMemory()
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func statement(date string, counter int, status ledger.Status, amount string) ledger.StatementRecord {
	return ledger.StatementRecord{
		IBAN:      testIBAN,
		EntryDate: dates.MustParse(date),
		Counter:   counter,
		Status:    status,
		Amount:    money.MustParse(amount),
		Currency:  "EUR",
	}
}

// post writes a ledger entry and its statement link for rec, with the
// owning account on the side matching the statement status.
func post(t *testing.T, l *Ledger, rec ledger.StatementRecord, idNo int64, account, contra string) {
	t.Helper()
	entry := ledger.Entry{
		IDNo:        idNo,
		Date:        rec.EntryDate,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		PostingText: rec.PostingText,
	}
	if rec.Status == ledger.Credit {
		entry.CreditAccount, entry.DebitAccount = account, contra
	} else {
		entry.DebitAccount, entry.CreditAccount = account, contra
	}
	if err := l.InsertPosted(entry, rec.Key()); err != nil {
		t.Fatalf("failed to post %s: %v", rec.Key(), err)
	}
}

func TestStatementsInsertSelect(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)

	// Inserted out of date order; same-date rows keep insert order.
	for _, rec := range []ledger.StatementRecord{
		statement("2024-06-02", 1, ledger.Debit, "20.00"),
		statement("2024-06-01", 2, ledger.Credit, "10.00"),
		statement("2024-06-01", 1, ledger.Debit, "5.00"),
	} {
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Select(testIBAN, dates.MustParse("2024-06-01"), dates.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("Select returned %d rows, expected 3", len(got))
	}
	if got[0].Counter != 2 || got[1].Counter != 1 || got[2].EntryDate.String() != "2024-06-02" {
		t.Errorf("Select order wrong: %v %v %v", got[0].Key(), got[1].Key(), got[2].Key())
	}

	// Bounds are inclusive; zero upper bound leaves the range open.
	got, err = s.Select(testIBAN, dates.MustParse("2024-06-02"), dates.MustParse("2024-06-02"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EntryDate.String() != "2024-06-02" {
		t.Errorf("bounded Select = %d rows", len(got))
	}

	// Duplicate natural key is rejected.
	if err := s.Insert(statement("2024-06-02", 1, ledger.Debit, "20.00")); err == nil {
		t.Error("Insert accepted a duplicate natural key")
	}
}

func TestStatementRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)

	rec := statement("2024-06-01", 1, ledger.Debit, "42.50")
	rec.ValueDate = dates.MustParse("2024-06-02")
	rec.PostingText = "Lastschrift"
	rec.Purpose = "Miete Juni EREF+123"
	rec.PurposeWoIdentifier = "Miete Juni"
	rec.ApplicantName = "Hausverwaltung GmbH"
	rec.ApplicantIBAN = "DE02500105170137075030"
	rec.CreditorID = "DE98ZZZ09999999999"
	rec.MandateID = "M-001"
	rec.OpeningBalance = money.MustParse("100.00")
	rec.OpeningStatus = ledger.Credit
	rec.OpeningDate = dates.MustParse("2024-06-01")
	rec.ClosingBalance = money.MustParse("57.50")
	rec.ClosingStatus = ledger.Credit
	rec.ClosingDate = dates.MustParse("2024-06-01")

	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Select(testIBAN, rec.EntryDate, rec.EntryDate)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("Select returned %d rows", len(got))
	}

	r := got[0]
	if r.PostingText != rec.PostingText || r.CreditorID != rec.CreditorID ||
		r.MandateID != rec.MandateID || r.ApplicantIBAN != rec.ApplicantIBAN {
		t.Errorf("round trip lost fields: %+v", r)
	}
	if !r.Amount.Equal(rec.Amount) || !r.OpeningBalance.Equal(rec.OpeningBalance) {
		t.Errorf("round trip changed amounts: %s %s", r.Amount, r.OpeningBalance)
	}
	if r.ValueDate != rec.ValueDate || r.OpeningStatus != ledger.Credit {
		t.Errorf("round trip changed dates or status: %+v", r)
	}
}

func TestUnreportedBalancesStoredNull(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)

	if err := s.Insert(statement("2024-06-01", 1, ledger.Debit, "42.50")); err != nil {
		t.Fatal(err)
	}

	var openNull, closeNull bool
	err := conn.QueryRow(
		`SELECT opening_balance IS NULL, closing_balance IS NULL FROM statements WHERE iban = ?`,
		testIBAN,
	).Scan(&openNull, &closeNull)
	if err != nil {
		t.Fatal(err)
	}
	if !openNull || !closeNull {
		t.Errorf("absent balances stored as values: opening NULL=%v closing NULL=%v", openNull, closeNull)
	}
}

func TestMaxLinkedDate(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	if _, linked, err := s.MaxLinkedDate(testIBAN); err != nil || linked {
		t.Fatalf("MaxLinkedDate on empty store = linked %v, err %v", linked, err)
	}

	recA := statement("2024-06-01", 1, ledger.Debit, "5.00")
	recB := statement("2024-06-03", 1, ledger.Credit, "7.00")
	for _, rec := range []ledger.StatementRecord{recA, recB} {
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
	}
	post(t, l, recA, 2024000001, "1200", "4900")
	post(t, l, recB, 2024000002, "1200", "4900")

	max, linked, err := s.MaxLinkedDate(testIBAN)
	if err != nil || !linked {
		t.Fatalf("MaxLinkedDate = linked %v, err %v", linked, err)
	}
	if max.String() != "2024-06-03" {
		t.Errorf("MaxLinkedDate = %s, expected 2024-06-03", max)
	}
}

func TestResolvedContraWindow(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	entryDate := dates.MustParse("2024-06-15")
	creditorID := "DE98ZZZ09999999999"

	addMatch := func(date string, idNo int64, contra string) {
		rec := statement(date, 1, ledger.Debit, "9.99")
		rec.CreditorID = creditorID
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
		post(t, l, rec, idNo, "1200", contra)
	}

	tests := []struct {
		name     string
		date     string
		contra   string
		expected string
	}{
		// 371 days before the entry date is outside the window.
		{"before window", entryDate.Add(-371).String(), "3000", "NA"},
		// Exactly 370 days before is the window start.
		{"window start", entryDate.Add(-370).String(), "3001", "3001"},
		// One day before is the window end.
		{"window end", entryDate.Add(-1).String(), "3002", "3002"},
		// The entry date itself is excluded.
		{"entry date", entryDate.String(), "3003", "3002"},
	}

	from, to := entryDate.Add(-370), entryDate.Add(-1)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addMatch(tt.date, 2024000001+int64(i), tt.contra)
			got, err := s.ResolvedContra(testIBAN, ledger.MatchCreditorID, creditorID, from, to)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.expected {
				t.Errorf("ResolvedContra = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestResolvedContraSides(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	// A credit statement's contra is the debit account; a debit
	// statement's contra is the credit account.
	recC := statement("2024-05-01", 1, ledger.Credit, "10.00")
	recC.ApplicantIBAN = "DE02500105170137075030"
	recD := statement("2024-05-02", 1, ledger.Debit, "10.00")
	recD.ApplicantName = "Stadtwerke"
	for _, rec := range []ledger.StatementRecord{recC, recD} {
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
	}
	post(t, l, recC, 2024000001, "1200", "8000")
	post(t, l, recD, 2024000002, "1200", "4200")

	from, to := dates.MustParse("2024-01-01"), dates.MustParse("2024-12-31")

	got, err := s.ResolvedContra(testIBAN, ledger.MatchApplicantIBAN, recC.ApplicantIBAN, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != "8000" {
		t.Errorf("credit-side contra = %q, expected 8000", got)
	}

	got, err = s.ResolvedContra(testIBAN, ledger.MatchApplicantName, "Stadtwerke", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != "4200" {
		t.Errorf("debit-side contra = %q, expected 4200", got)
	}

	got, err = s.ResolvedContra(testIBAN, ledger.MatchApplicantName, "Unbekannt", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != ledger.NotAssigned {
		t.Errorf("unmatched lookup = %q, expected sentinel", got)
	}
}

func TestResolvedContraPurposePrefix(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	rec := statement("2024-05-01", 1, ledger.Debit, "650.00")
	rec.PurposeWoIdentifier = "Miete Wohnung Hauptstrasse 1 Juni"
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}
	post(t, l, rec, 2024000001, "1200", "4100")

	umlaut := statement("2024-05-02", 1, ledger.Debit, "120.00")
	umlaut.PurposeWoIdentifier = "Müller Miete Wohnung Hauptstrasse 1"
	if err := s.Insert(umlaut); err != nil {
		t.Fatal(err)
	}
	post(t, l, umlaut, 2024000002, "1200", "4200")

	from, to := dates.MustParse("2024-01-01"), dates.MustParse("2024-12-31")

	// Only the first 20 characters are compared; the texts diverge after.
	same20 := "Miete Wohnung Hauptstr. 99 Juli"
	got, err := s.ResolvedContra(testIBAN, ledger.MatchPurposePrefix, same20, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != "4100" {
		t.Errorf("prefix match = %q, expected 4100", got)
	}

	// Multi-byte runes inside the first 20 characters must still match
	// an identical purpose text.
	got, err = s.ResolvedContra(testIBAN, ledger.MatchPurposePrefix, "Müller Miete Wohnung Hauptstrasse 1", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != "4200" {
		t.Errorf("umlaut prefix match = %q, expected 4200", got)
	}

	got, err = s.ResolvedContra(testIBAN, ledger.MatchPurposePrefix, "Strom Abschlag", from, to)
	if err != nil {
		t.Fatal(err)
	}
	if got != ledger.NotAssigned {
		t.Errorf("non-matching prefix = %q, expected sentinel", got)
	}
}

func TestMaxIDNo(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	if _, found, err := l.MaxIDNo(2024000000, 2025000000); err != nil || found {
		t.Fatalf("MaxIDNo on empty range = found %v, err %v", found, err)
	}

	recA := statement("2024-06-01", 1, ledger.Debit, "5.00")
	recB := statement("2025-01-02", 1, ledger.Debit, "6.00")
	for _, rec := range []ledger.StatementRecord{recA, recB} {
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
	}
	post(t, l, recA, 2024000007, "1200", "4900")
	post(t, l, recB, 2025000001, "1200", "4900")

	max, found, err := l.MaxIDNo(2024000000, 2025000000)
	if err != nil || !found {
		t.Fatalf("MaxIDNo = found %v, err %v", found, err)
	}
	// The 2025 entry must not leak into the 2024 range.
	if max != 2024000007 {
		t.Errorf("MaxIDNo = %d, expected 2024000007", max)
	}
}

func TestInsertPostedAtomic(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	rec := statement("2024-06-01", 1, ledger.Debit, "5.00")
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}
	post(t, l, rec, 2024000001, "1200", "4900")

	linked, err := l.LinkExists(rec.Key())
	if err != nil || !linked {
		t.Fatalf("LinkExists = %v, err %v", linked, err)
	}

	// Same statement again with a fresh id_no: the link conflict must
	// roll back the ledger insert too.
	entry := ledger.Entry{
		IDNo: 2024000002, Date: rec.EntryDate, Amount: rec.Amount,
		DebitAccount: "1200", CreditAccount: "4900",
	}
	err = l.InsertPosted(entry, rec.Key())
	if !errors.Is(err, ledger.ErrAlreadyLinked) {
		t.Fatalf("duplicate link error = %v, expected ErrAlreadyLinked", err)
	}
	if _, found, _ := l.MaxIDNo(2024000002, 2024000003); found {
		t.Error("ledger entry survived a rolled-back link insert")
	}

	// A taken id_no surfaces as ErrIDNoTaken.
	other := statement("2024-06-02", 1, ledger.Debit, "6.00")
	if err := s.Insert(other); err != nil {
		t.Fatal(err)
	}
	entry.IDNo = 2024000001
	err = l.InsertPosted(entry, other.Key())
	if !errors.Is(err, ledger.ErrIDNoTaken) {
		t.Fatalf("id_no conflict error = %v, expected ErrIDNoTaken", err)
	}
	if linked, _ := l.LinkExists(other.Key()); linked {
		t.Error("link survived a rolled-back ledger insert")
	}
}

func TestSumSide(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	recs := []struct {
		rec    ledger.StatementRecord
		idNo   int64
		contra string
	}{
		{statement("2024-06-01", 1, ledger.Credit, "10.10"), 2024000001, "8000"},
		{statement("2024-06-02", 1, ledger.Credit, "0.20"), 2024000002, "8000"},
		{statement("2024-06-03", 1, ledger.Debit, "3.30"), 2024000003, "4900"},
	}
	for _, r := range recs {
		if err := s.Insert(r.rec); err != nil {
			t.Fatal(err)
		}
		post(t, l, r.rec, r.idNo, "1200", r.contra)
	}

	from, to := dates.MustParse("2024-06-01"), dates.MustParse("2024-12-31")

	credits, err := l.SumSide("1200", ledger.Credit, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if !credits.Equal(money.MustParse("10.30")) {
		t.Errorf("credit sum = %s, expected 10.30", credits)
	}

	debits, err := l.SumSide("1200", ledger.Debit, from, to)
	if err != nil {
		t.Fatal(err)
	}
	if !debits.Equal(money.MustParse("3.30")) {
		t.Errorf("debit sum = %s, expected 3.30", debits)
	}

	// Date bounds cut off postings outside the period.
	credits, err = l.SumSide("1200", ledger.Credit, from, dates.MustParse("2024-06-01"))
	if err != nil {
		t.Fatal(err)
	}
	if !credits.Equal(money.MustParse("10.10")) {
		t.Errorf("bounded credit sum = %s, expected 10.10", credits)
	}
}

func TestTextHistory(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	mk := func(date string, counter int, status ledger.Status, text, contra string, idNo int64) {
		rec := statement(date, counter, status, "1.00")
		rec.PostingText = text
		if err := s.Insert(rec); err != nil {
			t.Fatal(err)
		}
		post(t, l, rec, idNo, "1200", contra)
	}

	mk("2024-06-01", 1, ledger.Debit, "Lastschrift", "4100", 2024000001)
	// Same text later with another contra: the most recent wins.
	mk("2024-06-02", 1, ledger.Debit, "Lastschrift", "4200", 2024000002)
	mk("2024-06-03", 1, ledger.Credit, "Gutschrift", "8000", 2024000003)

	debitTexts, err := l.TextHistory("1200", ledger.Debit)
	if err != nil {
		t.Fatal(err)
	}
	if got := debitTexts.Lookup("Lastschrift"); got != "4200" {
		t.Errorf("debit text history = %q, expected 4200", got)
	}
	if got := debitTexts.Lookup("Gutschrift"); got != ledger.NotAssigned {
		t.Errorf("credit text leaked into debit history: %q", got)
	}

	creditTexts, err := l.TextHistory("1200", ledger.Credit)
	if err != nil {
		t.Fatal(err)
	}
	if got := creditTexts.Lookup("Gutschrift"); got != "8000" {
		t.Errorf("credit text history = %q, expected 8000", got)
	}
}

func TestGetStats(t *testing.T) {
	conn := openTestDB(t)
	s := NewStatements(conn)
	l := NewLedger(conn)

	stats, err := l.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 || stats.Links != 0 {
		t.Errorf("empty stats = %+v", stats)
	}

	rec := statement("2024-06-01", 1, ledger.Debit, "5.00")
	if err := s.Insert(rec); err != nil {
		t.Fatal(err)
	}
	post(t, l, rec, 2024000001, "1200", "4900")

	stats, err = l.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Links != 1 {
		t.Errorf("stats = %+v, expected one entry and one link", stats)
	}
	if !stats.LastEntry.Valid || stats.LastEntry.String != "2024-06-01" {
		t.Errorf("last entry = %+v", stats.LastEntry)
	}
}
