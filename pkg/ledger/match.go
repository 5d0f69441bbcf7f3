package ledger

// MatchField selects the statement field a historical contra lookup
// filters on. The declaration order is the recommender's priority order.
type MatchField int

const (
	MatchCreditorID MatchField = iota
	MatchDebitorID
	MatchMandateID
	MatchApplicantIBAN
	MatchApplicantName
	// MatchPurposePrefix compares the first PurposePrefixLen characters
	// of the purpose text without its structured identifier.
	MatchPurposePrefix
)

// PurposePrefixLen is the number of characters compared for
// MatchPurposePrefix lookups.
const PurposePrefixLen = 20
