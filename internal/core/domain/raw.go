package domain

// RawPayload is the opaque response data fetched for one unit of work.
// It is the connector's output before normalisation.
type RawPayload struct {
	// Kind is the entity kind the payload will be normalised into.
	Kind EntityKind

	// ProductID is the product the unit of work fetched.
	ProductID int64

	// Parts holds the response bodies keyed by request name, for example
	// "windows" for a build listing or "average" for a rating request.
	Parts map[string][]byte

	// Country is the country prices were quoted for.
	Country string
}

// Part returns a response body by name.
func (p *RawPayload) Part(name string) ([]byte, bool) {
	b, ok := p.Parts[name]
	return b, ok
}

// Payload part names shared by the catalog client and the normalisers.
// Build payloads name their parts after the OS instead.
const (
	PartProduct  = "product"
	PartPrices   = "prices"
	PartReviews  = "reviews"
	PartAverage  = "average"
	PartVerified = "verified"
)
