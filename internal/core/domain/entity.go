package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// EntityKind identifies a tracked catalog entity type.
type EntityKind string

// Tracked entity kinds.
const (
	// KindProduct is a catalog product (game, DLC, pack, movie).
	KindProduct EntityKind = "product"

	// KindFile is an installer or patch file derived from product data.
	KindFile EntityKind = "file"

	// KindBuild is the build history of a product on one OS and branch.
	KindBuild EntityKind = "build"

	// KindPrice is a price quote in one country and currency.
	KindPrice EntityKind = "price"

	// KindRating is the aggregate user rating of a product.
	KindRating EntityKind = "rating"
)

// MainBranch names the default build branch.
const MainBranch = "main"

// AllKinds lists every entity kind in storage order.
func AllKinds() []EntityKind {
	return []EntityKind{KindProduct, KindFile, KindBuild, KindPrice, KindRating}
}

// IsValid returns true if the kind is recognised.
func (k EntityKind) IsValid() bool {
	return slices.Contains(AllKinds(), k)
}

// String returns the string representation.
func (k EntityKind) String() string {
	return string(k)
}

// ParseEntityKind converts a name into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
	return k, nil
}

// EntityKey uniquely identifies one tracked entity.
// Only the composite parts used by the kind are set; the rest stay empty.
type EntityKey struct {
	Kind      EntityKind
	ProductID int64

	// FileID is set for KindFile.
	FileID string

	// OS and Branch are set for KindBuild.
	OS     string
	Branch string

	// Country and Currency are set for KindPrice.
	Country  string
	Currency string
}

// ProductKey returns the key of a product.
func ProductKey(id int64) EntityKey {
	return EntityKey{Kind: KindProduct, ProductID: id}
}

// RatingKey returns the key of a product rating.
func RatingKey(id int64) EntityKey {
	return EntityKey{Kind: KindRating, ProductID: id}
}

// FileKey returns the key of an installer or patch file.
func FileKey(id int64, fileID string) EntityKey {
	return EntityKey{Kind: KindFile, ProductID: id, FileID: fileID}
}

// BuildKey returns the key of a build line. An empty branch is the main branch.
func BuildKey(id int64, os, branch string) EntityKey {
	if branch == "" {
		branch = MainBranch
	}
	return EntityKey{Kind: KindBuild, ProductID: id, OS: os, Branch: branch}
}

// PriceKey returns the key of a price quote.
func PriceKey(id int64, country, currency string) EntityKey {
	return EntityKey{
		Kind:      KindPrice,
		ProductID: id,
		Country:   strings.ToUpper(country),
		Currency:  strings.ToUpper(currency),
	}
}

// String renders the key as kind:id[/part...].
func (k EntityKey) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(k.ProductID, 10))
	for _, part := range k.parts() {
		b.WriteByte('/')
		b.WriteString(part)
	}
	return b.String()
}

func (k EntityKey) parts() []string {
	switch k.Kind {
	case KindFile:
		return []string{k.FileID}
	case KindBuild:
		return []string{k.OS, k.Branch}
	case KindPrice:
		return []string{k.Country, k.Currency}
	default:
		return nil
	}
}

// Validate checks that every composite part required by the kind is present.
func (k EntityKey) Validate() error {
	if !k.Kind.IsValid() {
		return fmt.Errorf("%w: key kind %q", ErrInvalidInput, k.Kind)
	}
	if k.ProductID <= 0 {
		return fmt.Errorf("%w: key %s has no product id", ErrInvalidInput, k)
	}
	for _, part := range k.parts() {
		if part == "" {
			return fmt.Errorf("%w: key %s is incomplete", ErrInvalidInput, k)
		}
	}
	return nil
}

// Scope is the set of keys one unit of work is authoritative for.
// A unit of work that fetched a product's prices in one country owns every
// price key of that product and country, and nothing else.
type Scope struct {
	Kind      EntityKind
	ProductID int64

	// Country restricts price scopes to one country.
	Country string

	// Currencies restricts price scopes to the listed currencies.
	// Empty means every currency.
	Currencies []string
}

// ScopeOf returns the narrowest scope containing the key's whole product.
func ScopeOf(kind EntityKind, productID int64) Scope {
	return Scope{Kind: kind, ProductID: productID}
}

// Contains reports whether the key belongs to the scope.
func (s Scope) Contains(k EntityKey) bool {
	if k.Kind != s.Kind || k.ProductID != s.ProductID {
		return false
	}
	if s.Kind != KindPrice {
		return true
	}
	if s.Country != "" && !strings.EqualFold(k.Country, s.Country) {
		return false
	}
	if len(s.Currencies) == 0 {
		return true
	}
	return slices.ContainsFunc(s.Currencies, func(c string) bool {
		return strings.EqualFold(c, k.Currency)
	})
}

// String renders the scope for logs.
func (s Scope) String() string {
	out := fmt.Sprintf("%s:%d", s.Kind, s.ProductID)
	if s.Country != "" {
		out += "/" + s.Country
	}
	if len(s.Currencies) > 0 {
		out += "[" + strings.Join(s.Currencies, ",") + "]"
	}
	return out
}
