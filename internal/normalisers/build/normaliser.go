package build

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/catalog-delta/internal/core/domain"
	"github.com/custodia-labs/catalog-delta/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles build listings.
type Normaliser struct {
	oses []string
}

// New creates a new build normaliser for the supported platforms.
func New() *Normaliser {
	return &Normaliser{oses: domain.SupportedOSes}
}

// Kind returns the entity kind this normaliser produces.
func (n *Normaliser) Kind() domain.EntityKind {
	return domain.KindBuild
}

type listing struct {
	TotalCount         int    `json:"total_count"`
	Count              int    `json:"count"`
	Items              []item `json:"items"`
	HasPrivateBranches bool   `json:"has_private_branches"`
}

type item struct {
	BuildID       string  `json:"build_id"`
	VersionName   string  `json:"version_name"`
	Branch        *string `json:"branch"`
	DatePublished string  `json:"date_published"`
}

// Normalise converts per-OS build listings into build snapshots.
// It returns domain.ErrNotFound when no OS lists any build.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawPayload) ([]domain.Snapshot, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var snaps []domain.Snapshot
	for _, os := range n.oses {
		body, ok := raw.Part(os)
		if !ok {
			continue
		}

		var l listing
		if err := json.Unmarshal(body, &l); err != nil {
			return nil, fmt.Errorf("%w: builds of %d on %s: %w", domain.ErrNormalise, raw.ProductID, os, err)
		}
		if l.TotalCount == 0 {
			continue
		}
		snaps = append(snaps, branches(raw.ProductID, os, l)...)
	}

	if len(snaps) == 0 {
		return nil, fmt.Errorf("builds of %d: %w", raw.ProductID, domain.ErrNotFound)
	}
	return snaps, nil
}

// branches groups listing items by branch. A null or blank branch is main.
func branches(productID int64, os string, l listing) []domain.Snapshot {
	groups := make(map[string][]item)
	for _, it := range l.Items {
		branch := domain.MainBranch
		if it.Branch != nil && strings.TrimSpace(*it.Branch) != "" {
			branch = strings.TrimSpace(*it.Branch)
		}
		groups[branch] = append(groups[branch], it)
	}
	// A listing with builds but no items still has a main line.
	if len(groups) == 0 {
		groups[domain.MainBranch] = nil
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	snaps := make([]domain.Snapshot, 0, len(names))
	for _, name := range names {
		items := groups[name]
		slices.SortStableFunc(items, func(a, b item) int {
			if c := cmp.Compare(b.DatePublished, a.DatePublished); c != 0 {
				return c
			}
			return cmp.Compare(b.BuildID, a.BuildID)
		})

		snap := &domain.BuildSnapshot{
			ProductID:          productID,
			OS:                 os,
			Branch:             name,
			BuildCount:         len(items),
			VersionNames:       []string{},
			HasPrivateBranches: l.HasPrivateBranches,
		}
		if len(items) == 0 {
			snap.BuildCount = l.TotalCount
		}
		for _, it := range items {
			if v := strings.TrimSpace(it.VersionName); v != "" {
				snap.VersionNames = append(snap.VersionNames, v)
			}
		}
		if len(snap.VersionNames) > 0 {
			snap.LatestVersion = snap.VersionNames[0]
		}
		snaps = append(snaps, snap)
	}
	return snaps
}
