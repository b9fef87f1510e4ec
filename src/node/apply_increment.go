package node

import (
	"github.com/mosaicnetworks/tablenet/src/table"
	"github.com/sirupsen/logrus"
)

// applyIncrement applies inc to comp. The environment lock must be held. A
// step that cannot be applied is logged and skipped; the rest of the
// increment is still applied.
func applyIncrement(comp table.Component, inc *table.ComponentIncrement, logger *logrus.Entry) {
	env := comp.Environment()
	registry := env.Registry()

	if inc.Location != nil {
		comp.SetLocation(*inc.Location)
	}

	if inc.Orientation != nil {
		if err := comp.SetOrientation(*inc.Orientation); err != nil {
			logger.WithError(err).Warn("Failed to set orientation")
		}
	}

	if inc.SurfaceDesigns != nil {
		designs := make(map[table.Orientation]table.SurfaceDesign, len(inc.SurfaceDesigns))
		for o, id := range inc.SurfaceDesigns {
			d, err := registry.SurfaceDesign(id)
			if err != nil {
				logger.WithError(err).WithField("surface_design", id).Warn("Unknown surface design")
				continue
			}
			designs[o] = d
		}
		if err := comp.SetSurfaceDesigns(designs); err != nil {
			logger.WithError(err).Warn("Failed to set surface designs")
		}
	}

	if inc.Container == nil {
		return
	}

	container, ok := comp.(*table.Container)
	if !ok {
		logger.Warn("Container increment for a component that is not a container")
		return
	}

	ci := inc.Container

	if ci.Layout != nil {
		layout, err := registry.Layout(*ci.Layout)
		if err != nil {
			logger.WithError(err).WithField("layout", *ci.Layout).Warn("Unknown layout")
		} else {
			container.SetLayout(layout)
		}
	}

	if index, count, ok := ci.RemovedComponents(); ok {
		if index == 0 && count == container.ComponentCount() {
			container.RemoveAllComponents()
		} else if _, err := container.RemoveComponents(index, count); err != nil {
			logger.WithError(err).Warn("Failed to remove components")
		}
	}

	if index, mementos, ok := ci.AddedComponents(); ok {
		at := index
		for _, m := range mementos {
			child, err := env.CreateComponent(m)
			if err != nil {
				logger.WithError(err).Warn("Failed to create component")
				continue
			}
			if err := container.AddComponentAt(child, at); err != nil {
				logger.WithError(err).Warn("Failed to add component")
				continue
			}
			at++
		}
	}
}
