// Package view picks the /video variant for a session view.
package view

import "github.com/dkeye/zoomify/internal/domain"

type Variant string

const (
	VariantGallery            Variant = "gallery"
	VariantGalleryNonIsolated Variant = "gallery-non-isolated"
	VariantSingle             Variant = "single"
)

// Select returns exactly one variant. Gallery support without an isolation
// constraint wins, then the isolation-constrained gallery, then single video.
func Select(c domain.ViewCapability) Variant {
	switch {
	case c.SupportsGalleryView && !c.GalleryViewRequiresIsolation:
		return VariantGallery
	case c.GalleryViewRequiresIsolation:
		return VariantGalleryNonIsolated
	default:
		return VariantSingle
	}
}

// Template is the HTML template rendering v.
func (v Variant) Template() string {
	return "video-" + string(v) + ".tmpl"
}
