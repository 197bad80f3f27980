package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/zoomify/internal/domain"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		cap  domain.ViewCapability
		want Variant
	}{
		{"gallery", domain.ViewCapability{SupportsGalleryView: true}, VariantGallery},
		{"gallery needs isolation", domain.ViewCapability{SupportsGalleryView: true, GalleryViewRequiresIsolation: true}, VariantGalleryNonIsolated},
		{"isolation only", domain.ViewCapability{GalleryViewRequiresIsolation: true}, VariantGalleryNonIsolated},
		{"single", domain.ViewCapability{}, VariantSingle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.cap))
		})
	}
}

func TestVariant_Template(t *testing.T) {
	assert.Equal(t, "video-gallery.tmpl", VariantGallery.Template())
	assert.Equal(t, "video-gallery-non-isolated.tmpl", VariantGalleryNonIsolated.Template())
	assert.Equal(t, "video-single.tmpl", VariantSingle.Template())
}
