package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Snapshot is the canonical, normalised state of one entity at one scan
// instant. Snapshots carry no scan timestamps, so two snapshots of an
// unchanged entity encode to the same bytes.
type Snapshot interface {
	// Key returns the entity the snapshot describes.
	Key() EntityKey

	// Title returns a short human label used in logs.
	Title() string
}

// FileType distinguishes installer files from patches.
type FileType string

const (
	// FileInstaller is a full installer.
	FileInstaller FileType = "installer"

	// FilePatch is an incremental patch.
	FilePatch FileType = "patch"
)

// FileEntry is one downloadable installer or patch as listed on a product.
type FileEntry struct {
	ID        string   `json:"id"`
	Type      FileType `json:"type"`
	Name      string   `json:"name"`
	OS        string   `json:"os"`
	Language  string   `json:"language"`
	Version   string   `json:"version,omitempty"`
	TotalSize int64    `json:"total_size"`
	Parts     []string `json:"parts,omitempty"`
}

// ProductSnapshot is the normalised state of a catalog product.
type ProductSnapshot struct {
	ID          int64       `json:"id"`
	Name        string      `json:"title"`
	Slug        string      `json:"slug"`
	ProductType string      `json:"product_type"`
	ReleaseDate string      `json:"release_date,omitempty"`
	StoreLink   string      `json:"links_store,omitempty"`
	SupportLink string      `json:"links_support,omitempty"`
	ForumLink   string      `json:"links_forum,omitempty"`
	IsSecret    bool        `json:"is_secret"`
	IsInstall   bool        `json:"is_installable"`
	IsPreOrder  bool        `json:"is_pre_order"`
	InDevelop   bool        `json:"in_development"`
	Languages   []string    `json:"languages,omitempty"`
	Changelog   string      `json:"changelog,omitempty"`
	Description string      `json:"description,omitempty"`
	Installers  []FileEntry `json:"installers,omitempty"`
	Patches     []FileEntry `json:"patches,omitempty"`
}

// Key implements Snapshot.
func (s *ProductSnapshot) Key() EntityKey { return ProductKey(s.ID) }

// Title implements Snapshot.
func (s *ProductSnapshot) Title() string { return s.Name }

// FileSnapshot is the normalised state of one installer or patch file.
type FileSnapshot struct {
	ProductID int64    `json:"product_id"`
	FileID    string   `json:"file_id"`
	Type      FileType `json:"type"`
	Name      string   `json:"name"`
	OS        string   `json:"os"`
	Language  string   `json:"language"`
	Version   string   `json:"version,omitempty"`
	TotalSize int64    `json:"total_size"`
	Parts     []string `json:"parts,omitempty"`
}

// Key implements Snapshot.
func (s *FileSnapshot) Key() EntityKey { return FileKey(s.ProductID, s.FileID) }

// Title implements Snapshot.
func (s *FileSnapshot) Title() string { return s.Name }

// BuildSnapshot is the build history of one product on one OS and branch.
type BuildSnapshot struct {
	ProductID          int64    `json:"product_id"`
	OS                 string   `json:"os"`
	Branch             string   `json:"branch"`
	BuildCount         int      `json:"build_count"`
	LatestVersion      string   `json:"build_version"`
	VersionNames       []string `json:"version_names"`
	HasPrivateBranches bool     `json:"has_private_branches"`
}

// Key implements Snapshot.
func (s *BuildSnapshot) Key() EntityKey { return BuildKey(s.ProductID, s.OS, s.Branch) }

// Title implements Snapshot.
func (s *BuildSnapshot) Title() string { return s.LatestVersion }

// PriceSnapshot is a price quote in one country and currency.
// Amounts are canonical decimal strings with two fractional digits.
type PriceSnapshot struct {
	ProductID  int64  `json:"product_id"`
	Country    string `json:"country"`
	Currency   string `json:"currency"`
	BasePrice  string `json:"base_price"`
	FinalPrice string `json:"final_price"`
}

// Key implements Snapshot.
func (s *PriceSnapshot) Key() EntityKey { return PriceKey(s.ProductID, s.Country, s.Currency) }

// Title implements Snapshot.
func (s *PriceSnapshot) Title() string {
	return fmt.Sprintf("%s/%s %s", s.BasePrice, s.FinalPrice, s.Currency)
}

// RatingSnapshot is the aggregate user rating of a product.
// Averages are nil when the remote service reports none.
type RatingSnapshot struct {
	ProductID        int64    `json:"product_id"`
	ReviewCount      int      `json:"review_count"`
	IsReviewable     bool     `json:"is_reviewable"`
	AvgRating        *float64 `json:"avg_rating"`
	AvgRatingCount   int      `json:"avg_rating_count"`
	AvgVerified      *float64 `json:"avg_rating_verified"`
	AvgVerifiedCount int      `json:"avg_rating_verified_count"`
}

// Key implements Snapshot.
func (s *RatingSnapshot) Key() EntityKey { return RatingKey(s.ProductID) }

// Title implements Snapshot.
func (s *RatingSnapshot) Title() string {
	if s.AvgRating == nil {
		return fmt.Sprintf("%d reviews", s.ReviewCount)
	}
	return fmt.Sprintf("%.1f (%d reviews)", *s.AvgRating, s.ReviewCount)
}

// Fingerprint returns the SHA-256 of the snapshot's canonical JSON encoding.
// Struct fields encode in declaration order and normalisers sort every
// collection, so equal content always yields equal fingerprints.
func Fingerprint(s Snapshot) (string, error) {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// EncodeSnapshot returns the canonical JSON encoding of a snapshot.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidInput)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.Key(), err)
	}
	return data, nil
}

// DecodeSnapshot rebuilds a snapshot of the given kind from its encoding.
func DecodeSnapshot(kind EntityKind, data []byte) (Snapshot, error) {
	var s Snapshot
	switch kind {
	case KindProduct:
		s = &ProductSnapshot{}
	case KindFile:
		s = &FileSnapshot{}
	case KindBuild:
		s = &BuildSnapshot{}
	case KindPrice:
		s = &PriceSnapshot{}
	case KindRating:
		s = &RatingSnapshot{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return s, nil
}
