package route

import (
	"context"
	"strings"

	"github.com/exson6969/xplorer/engine/graph"
)

// Placeholder values for entities the store does not know. The coordinates
// are the Chennai city center, so unresolved stops still render on a map.
const (
	placeholderCategory    = "Point of Interest"
	placeholderDescription = "A popular destination among travellers."
	placeholderLat         = 13.0827
	placeholderLon         = 80.2707
	placeholderRating      = 4.0
)

// lookupDetails fetches store records for the given folded names. A store
// failure here is soft: every name will be synthesized instead.
func (o *Optimizer) lookupDetails(ctx context.Context, names []string) map[string]graph.Detail {
	found := make(map[string]graph.Detail, len(names))
	details, err := o.store.DetailsFor(ctx, names)
	if err != nil {
		o.log.Warn("detail lookup failed, synthesizing placeholders", "error", err)
		return found
	}
	for _, d := range details {
		folded := strings.ToLower(strings.TrimSpace(d.Name))
		if folded == "" {
			continue
		}
		if _, dup := found[folded]; !dup {
			found[folded] = d
		}
	}
	return found
}

// displayNames prefers the store's canonical casing over the input casing.
func displayNames(req request, found map[string]graph.Detail) map[string]string {
	display := make(map[string]string, len(req.display))
	for folded, name := range req.display {
		if d, ok := found[folded]; ok && d.Name != "" {
			display[folded] = d.Name
		} else {
			display[folded] = name
		}
	}
	return display
}

// attachDetails fills the bundle's detail lists: one entry per unique input
// name, store-backed where possible, synthesized otherwise. The home base
// always lands in HotelsDetail; everything else defaults to PlacesDetail
// unless the store says it is a hotel.
func attachDetails(req request, found map[string]graph.Detail, display map[string]string, bundle *Bundle) {
	bundle.PlacesDetail = []graph.Detail{}
	bundle.HotelsDetail = []graph.Detail{}

	for _, folded := range req.all {
		d, ok := found[folded]
		if !ok {
			d = synthesizeDetail(display[folded], folded == req.homeBase)
		}
		if d.Kind == "hotel" || folded == req.homeBase {
			bundle.HotelsDetail = append(bundle.HotelsDetail, d)
		} else {
			bundle.PlacesDetail = append(bundle.PlacesDetail, d)
		}
	}
}

func synthesizeDetail(name string, isHotel bool) graph.Detail {
	kind := "place"
	if isHotel {
		kind = "hotel"
	}
	return graph.Detail{
		Name:        name,
		Kind:        kind,
		Category:    placeholderCategory,
		Description: placeholderDescription,
		Lat:         placeholderLat,
		Lon:         placeholderLon,
		Rating:      placeholderRating,
	}
}

// transportOptions is best-effort; a store failure yields an empty listing.
func (o *Optimizer) transportOptions(ctx context.Context) []graph.TransportOption {
	opts, err := o.store.TransportOptions(ctx, 0)
	if err != nil {
		o.log.Warn("transport listing failed", "error", err)
		return []graph.TransportOption{}
	}
	if opts == nil {
		opts = []graph.TransportOption{}
	}
	return opts
}
