package extraction

type FieldKind int

const (
	KindName FieldKind = iota
	KindAddress
	KindBedToken
	KindPriceToken
)

type CandidateSource int

const (
	SourceStructuredFragment CandidateSource = iota
	SourceFullTextScan
	SourceFallback
)

func (s CandidateSource) String() string {
	switch s {
	case SourceStructuredFragment:
		return "structured"
	case SourceFullTextScan:
		return "full_text"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// FieldCandidate is a raw token found by one discovery method, before expansion.
type FieldCandidate struct {
	Kind   FieldKind
	Raw    string
	Source CandidateSource
}

// CandidatePair is a bed token and a price token that were found together.
type CandidatePair struct {
	Bed   FieldCandidate
	Price FieldCandidate
}

// ValidatedPair is one concrete (bed, price) combination that passed validation.
type ValidatedPair struct {
	Bed   string
	Price string
}
