package sqlite

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
)

// table describes how one entity kind maps onto its versioned table.
type table struct {
	name string

	// keys are the composite key columns after product_id.
	keys []string

	// superseded names the column closing a version.
	superseded string

	// columns are the flattened snapshot columns kept for ad-hoc queries.
	// The full snapshot lives in payload.
	columns []string
	values  func(domain.Snapshot) []any
}

var tables = map[domain.EntityKind]*table{
	domain.KindProduct: {
		name:       "products",
		superseded: "superseded",
		columns: []string{"title", "slug", "product_type", "release_date",
			"links_store", "links_support", "links_forum", "languages", "changelog"},
		values: func(s domain.Snapshot) []any {
			p := s.(*domain.ProductSnapshot)
			return []any{p.Name, p.Slug, p.ProductType, p.ReleaseDate,
				p.StoreLink, p.SupportLink, p.ForumLink, strings.Join(p.Languages, ", "), nullString(p.Changelog)}
		},
	},
	domain.KindFile: {
		name:       "files",
		keys:       []string{"file_id"},
		superseded: "superseded",
		columns:    []string{"file_type", "name", "os", "language", "version", "total_size"},
		values: func(s domain.Snapshot) []any {
			f := s.(*domain.FileSnapshot)
			return []any{string(f.Type), f.Name, f.OS, f.Language, nullString(f.Version), f.TotalSize}
		},
	},
	domain.KindBuild: {
		name:       "builds",
		keys:       []string{"os", "branch"},
		superseded: "superseded",
		columns:    []string{"build_version", "version_names", "build_count", "has_private_branches"},
		values: func(s domain.Snapshot) []any {
			b := s.(*domain.BuildSnapshot)
			return []any{b.LatestVersion, strings.Join(b.VersionNames, ", "), b.BuildCount, boolToInt(b.HasPrivateBranches)}
		},
	},
	domain.KindPrice: {
		name:       "prices",
		keys:       []string{"country", "currency"},
		superseded: "outdated_on",
		columns:    []string{"base_price", "final_price"},
		values: func(s domain.Snapshot) []any {
			p := s.(*domain.PriceSnapshot)
			return []any{p.BasePrice, p.FinalPrice}
		},
	},
	domain.KindRating: {
		name:       "ratings",
		superseded: "superseded",
		columns: []string{"review_count", "avg_rating", "avg_rating_count",
			"avg_rating_verified", "avg_rating_verified_count", "is_reviewable"},
		values: func(s domain.Snapshot) []any {
			r := s.(*domain.RatingSnapshot)
			return []any{r.ReviewCount, r.AvgRating, r.AvgRatingCount,
				r.AvgVerified, r.AvgVerifiedCount, boolToInt(r.IsReviewable)}
		},
	},
}

// tableFor returns the table of an entity kind.
func tableFor(kind domain.EntityKind) (*table, error) {
	t, ok := tables[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	return t, nil
}

// keyParts returns the composite key values matching t.keys.
func keyParts(k domain.EntityKey) []any {
	switch k.Kind {
	case domain.KindFile:
		return []any{k.FileID}
	case domain.KindBuild:
		return []any{k.OS, k.Branch}
	case domain.KindPrice:
		return []any{k.Country, k.Currency}
	default:
		return nil
	}
}

// recordColumns is the select list shared by every record query.
func (t *table) recordColumns() string {
	return "id, fingerprint, payload, added, updated, " + t.superseded + ", delisted"
}

// keyWhere matches the rows of one key.
func (t *table) keyWhere(k domain.EntityKey) (string, []any) {
	clauses := []string{"product_id = ?"}
	args := []any{k.ProductID}
	for i, part := range keyParts(k) {
		clauses = append(clauses, t.keys[i]+" = ?")
		args = append(args, part)
	}
	return strings.Join(clauses, " AND "), args
}

// scopeWhere matches the rows of one scope.
func (t *table) scopeWhere(s domain.Scope) (string, []any) {
	clauses := []string{"product_id = ?"}
	args := []any{s.ProductID}
	if s.Kind != domain.KindPrice {
		return clauses[0], args
	}
	if s.Country != "" {
		clauses = append(clauses, "country = ?")
		args = append(args, strings.ToUpper(s.Country))
	}
	if len(s.Currencies) > 0 {
		marks := make([]string, len(s.Currencies))
		for i, c := range s.Currencies {
			marks[i] = "?"
			args = append(args, strings.ToUpper(c))
		}
		clauses = append(clauses, "currency IN ("+strings.Join(marks, ", ")+")")
	}
	return strings.Join(clauses, " AND "), args
}

// keyOrder orders rows by key then by version.
func (t *table) keyOrder() string {
	return strings.Join(append(append([]string{"product_id"}, t.keys...), "id"), ", ")
}

// sameKey joins two aliases of the table on the key columns.
func (t *table) sameKey(a, b string) string {
	clauses := []string{a + ".product_id = " + b + ".product_id"}
	for _, col := range t.keys {
		clauses = append(clauses, a+"."+col+" = "+b+"."+col)
	}
	return strings.Join(clauses, " AND ")
}

// insertStatement returns the INSERT statement for a new version.
func (t *table) insertStatement() string {
	cols := append([]string{"product_id"}, t.keys...)
	cols = append(cols, t.columns...)
	cols = append(cols, "fingerprint", "payload", "added", "updated", "delisted")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), marks)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
