package product

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
	"github.com/custodia-labs/catalog-delta/internal/normalisers/markup"
)

// placeholderPrefix marks autogenerated descriptions with no content.
const placeholderPrefix = "product_description_"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles product payloads.
type Normaliser struct{}

// New creates a new product normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the entity kind this normaliser produces.
func (n *Normaliser) Kind() domain.EntityKind {
	return domain.KindProduct
}

type payload struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	GameType    string            `json:"game_type"`
	ReleaseDate *string           `json:"release_date"`
	IsSecret    bool              `json:"is_secret"`
	IsInstall   bool              `json:"is_installable"`
	IsPreOrder  bool              `json:"is_pre_order"`
	Languages   map[string]string `json:"languages"`
	Changelog   *string           `json:"changelog"`
	Links       struct {
		ProductCard string `json:"product_card"`
		Support     string `json:"support"`
		Forum       string `json:"forum"`
	} `json:"links"`
	InDevelopment struct {
		Active bool `json:"active"`
	} `json:"in_development"`
	Description *struct {
		Full string `json:"full"`
	} `json:"description"`
	Downloads struct {
		Installers []download `json:"installers"`
		Patches    []download `json:"patches"`
	} `json:"downloads"`
}

type download struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	OS        string          `json:"os"`
	Language  string          `json:"language"`
	Version   *string         `json:"version"`
	TotalSize int64           `json:"total_size"`
	Files     []struct {
		ID string `json:"id"`
	} `json:"files"`
}

// Normalise converts a product payload into a product snapshot.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	body, ok := raw.Part(domain.PartProduct)
	if !ok {
		return nil, fmt.Errorf("%w: product %d: no product payload", domain.ErrNormalise, raw.ProductID)
	}

	var p payload
	if err := json.Unmarshal(markup.StripControlEscapes(body), &p); err != nil {
		return nil, fmt.Errorf("%w: product %d: %w", domain.ErrNormalise, raw.ProductID, err)
	}
	if p.ID == 0 {
		p.ID = raw.ProductID
	}
	if p.ID != raw.ProductID {
		return nil, fmt.Errorf("%w: product %d: payload is for %d", domain.ErrNormalise, raw.ProductID, p.ID)
	}

	snap := &domain.ProductSnapshot{
		ID:          p.ID,
		Name:        strings.TrimSpace(p.Title),
		Slug:        p.Slug,
		ProductType: strings.ToUpper(p.GameType),
		StoreLink:   p.Links.ProductCard,
		SupportLink: p.Links.Support,
		ForumLink:   p.Links.Forum,
		IsSecret:    p.IsSecret,
		IsInstall:   p.IsInstall,
		IsPreOrder:  p.IsPreOrder,
		InDevelop:   p.InDevelopment.Active,
		Languages:   languages(p.Languages),
	}
	if p.ReleaseDate != nil {
		snap.ReleaseDate = *p.ReleaseDate
	}

	var err error
	if p.Changelog != nil {
		if snap.Changelog, err = markup.ToText(*p.Changelog); err != nil {
			return nil, fmt.Errorf("%w: product %d changelog: %w", domain.ErrNormalise, p.ID, err)
		}
	}
	if p.Description != nil && !strings.HasPrefix(strings.TrimSpace(p.Description.Full), placeholderPrefix) {
		if snap.Description, err = markup.ToText(p.Description.Full); err != nil {
			return nil, fmt.Errorf("%w: product %d description: %w", domain.ErrNormalise, p.ID, err)
		}
	}

	if snap.Installers, err = entries(p.Downloads.Installers, domain.FileInstaller); err != nil {
		return nil, fmt.Errorf("%w: product %d installers: %w", domain.ErrNormalise, p.ID, err)
	}
	if snap.Patches, err = entries(p.Downloads.Patches, domain.FilePatch); err != nil {
		return nil, fmt.Errorf("%w: product %d patches: %w", domain.ErrNormalise, p.ID, err)
	}

	return []domain.Snapshot{snap}, nil
}

// languages renders "code: name" pairs sorted by code.
func languages(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for code, name := range m {
		out = append(out, code+": "+name)
	}
	slices.Sort(out)
	return out
}

// entries converts download listings into file entries sorted by ID.
// Download IDs arrive as strings or numbers depending on the product.
func entries(downloads []download, fileType domain.FileType) ([]domain.FileEntry, error) {
	if len(downloads) == 0 {
		return nil, nil
	}
	out := make([]domain.FileEntry, 0, len(downloads))
	for _, d := range downloads {
		id, err := downloadID(d.ID)
		if err != nil {
			return nil, err
		}
		e := domain.FileEntry{
			ID:        id,
			Type:      fileType,
			Name:      strings.TrimSpace(d.Name),
			OS:        d.OS,
			Language:  d.Language,
			TotalSize: d.TotalSize,
		}
		if d.Version != nil {
			e.Version = strings.TrimSpace(*d.Version)
		}
		for _, f := range d.Files {
			e.Parts = append(e.Parts, f.ID)
		}
		slices.Sort(e.Parts)
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b domain.FileEntry) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func downloadID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("download id %s: %w", raw, err)
	}
	return n.String(), nil
}
