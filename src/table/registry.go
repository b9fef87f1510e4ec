package table

import (
	"sync"

	"github.com/mosaicnetworks/tablenet/src/common"
)

// Well-known identifiers registered by NewDefaultRegistry.
const (
	TabletopStrategyID StrategyID = "tabletop"
	CardStrategyID     StrategyID = "card"
	CardPileStrategyID StrategyID = "card_pile"

	AbsoluteLayoutID       LayoutID = "absolute"
	StackedLayoutID        LayoutID = "stacked"
	AccordionDownLayoutID  LayoutID = "accordion_down"
	AccordionRightLayoutID LayoutID = "accordion_right"

	TabletopDesignID  SurfaceDesignID = "tabletop"
	CardBackDesignID  SurfaceDesignID = "card.back"
	CardFrontDesignID SurfaceDesignID = "card.front"
	CardPileDesignID  SurfaceDesignID = "card_pile.base"
)

// ComponentStrategy defines the behaviour shared by a family of components.
type ComponentStrategy struct {
	ID                    StrategyID
	Container             bool
	SupportedOrientations []Orientation
	DefaultOrientation    Orientation
	DefaultLayout         LayoutID
	DefaultSurfaceDesigns map[Orientation]SurfaceDesignID
}

// Supports reports whether o is one of the strategy's orientations.
func (s *ComponentStrategy) Supports(o Orientation) bool {
	for _, so := range s.SupportedOrientations {
		if so == o {
			return true
		}
	}
	return false
}

// Registry resolves the identifiers referenced by mementos and increments.
// It is safe for concurrent use.
type Registry struct {
	sync.RWMutex
	surfaceDesigns map[SurfaceDesignID]SurfaceDesign
	layouts        map[LayoutID]Layout
	strategies     map[StrategyID]*ComponentStrategy
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		surfaceDesigns: make(map[SurfaceDesignID]SurfaceDesign),
		layouts:        make(map[LayoutID]Layout),
		strategies:     make(map[StrategyID]*ComponentStrategy),
	}
}

// NewDefaultRegistry returns a Registry populated with the tabletop, card and
// card pile families.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterSurfaceDesign(SurfaceDesign{ID: TabletopDesignID, Width: 800, Height: 600})
	r.RegisterSurfaceDesign(SurfaceDesign{ID: CardBackDesignID, Width: 71, Height: 96})
	r.RegisterSurfaceDesign(SurfaceDesign{ID: CardFrontDesignID, Width: 71, Height: 96})
	r.RegisterSurfaceDesign(SurfaceDesign{ID: CardPileDesignID, Width: 71, Height: 96})

	r.RegisterLayout(Layout{ID: AbsoluteLayoutID})
	r.RegisterLayout(Layout{ID: StackedLayoutID, OffsetX: 2, OffsetY: 1})
	r.RegisterLayout(Layout{ID: AccordionDownLayoutID, OffsetY: 18})
	r.RegisterLayout(Layout{ID: AccordionRightLayoutID, OffsetX: 16})

	r.RegisterStrategy(&ComponentStrategy{
		ID:                    TabletopStrategyID,
		Container:             true,
		SupportedOrientations: []Orientation{DefaultOrientation},
		DefaultOrientation:    DefaultOrientation,
		DefaultLayout:         AbsoluteLayoutID,
		DefaultSurfaceDesigns: map[Orientation]SurfaceDesignID{
			DefaultOrientation: TabletopDesignID,
		},
	})
	r.RegisterStrategy(&ComponentStrategy{
		ID:                    CardStrategyID,
		SupportedOrientations: []Orientation{FaceDown, FaceUp},
		DefaultOrientation:    FaceDown,
		DefaultSurfaceDesigns: map[Orientation]SurfaceDesignID{
			FaceDown: CardBackDesignID,
			FaceUp:   CardFrontDesignID,
		},
	})
	r.RegisterStrategy(&ComponentStrategy{
		ID:                    CardPileStrategyID,
		Container:             true,
		SupportedOrientations: []Orientation{DefaultOrientation},
		DefaultOrientation:    DefaultOrientation,
		DefaultLayout:         StackedLayoutID,
		DefaultSurfaceDesigns: map[Orientation]SurfaceDesignID{
			DefaultOrientation: CardPileDesignID,
		},
	})

	return r
}

// RegisterSurfaceDesign adds or replaces a surface design.
func (r *Registry) RegisterSurfaceDesign(d SurfaceDesign) {
	r.Lock()
	defer r.Unlock()
	r.surfaceDesigns[d.ID] = d
}

// RegisterLayout adds or replaces a layout.
func (r *Registry) RegisterLayout(l Layout) {
	r.Lock()
	defer r.Unlock()
	r.layouts[l.ID] = l
}

// RegisterStrategy adds or replaces a component strategy.
func (r *Registry) RegisterStrategy(s *ComponentStrategy) {
	r.Lock()
	defer r.Unlock()
	r.strategies[s.ID] = s
}

// SurfaceDesign resolves a surface design by id.
func (r *Registry) SurfaceDesign(id SurfaceDesignID) (SurfaceDesign, error) {
	r.RLock()
	defer r.RUnlock()
	d, ok := r.surfaceDesigns[id]
	if !ok {
		return SurfaceDesign{}, common.NewStoreErr("SurfaceDesign", common.KeyNotFound, string(id))
	}
	return d, nil
}

// Layout resolves a layout by id.
func (r *Registry) Layout(id LayoutID) (Layout, error) {
	r.RLock()
	defer r.RUnlock()
	l, ok := r.layouts[id]
	if !ok {
		return Layout{}, common.NewStoreErr("Layout", common.KeyNotFound, string(id))
	}
	return l, nil
}

// Strategy resolves a component strategy by id.
func (r *Registry) Strategy(id StrategyID) (*ComponentStrategy, error) {
	r.RLock()
	defer r.RUnlock()
	s, ok := r.strategies[id]
	if !ok {
		return nil, common.NewStoreErr("ComponentStrategy", common.KeyNotFound, string(id))
	}
	return s, nil
}

// SurfaceDesigns resolves a map of surface design ids.
func (r *Registry) SurfaceDesigns(ids map[Orientation]SurfaceDesignID) (map[Orientation]SurfaceDesign, error) {
	res := make(map[Orientation]SurfaceDesign, len(ids))
	for o, id := range ids {
		d, err := r.SurfaceDesign(id)
		if err != nil {
			return nil, err
		}
		res[o] = d
	}
	return res, nil
}
