package extractor

import (
	"errors"
	"strings"

	"github.com/ikonstantinov/document-research-assistant/internal/core/domain"
	"github.com/ikonstantinov/document-research-assistant/internal/core/ports"
)

// Registry dispatches extraction by media type. Image types share one
// extractor via the image/ prefix; everything else matches exactly.
type Registry struct {
	exact map[string]ports.Extractor
	image ports.Extractor
}

func NewRegistry() *Registry {
	return &Registry{exact: make(map[string]ports.Extractor)}
}

// Register binds an extractor to one or more exact media types.
func (r *Registry) Register(extractor ports.Extractor, mediaTypes ...string) {
	for _, mt := range mediaTypes {
		r.exact[strings.ToLower(mt)] = extractor
	}
}

// RegisterImages binds the extractor used for every image/* media type.
func (r *Registry) RegisterImages(extractor ports.Extractor) {
	r.image = extractor
}

func (r *Registry) Lookup(mediaType string) (ports.Extractor, error) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if e, ok := r.exact[mediaType]; ok {
		return e, nil
	}
	if r.image != nil && strings.HasPrefix(mediaType, "image/") {
		return r.image, nil
	}
	return nil, domain.WrapError(domain.ErrUnsupportedType, "lookup extractor", errors.New(mediaType))
}
