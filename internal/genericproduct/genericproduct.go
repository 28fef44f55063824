// Package genericproduct is the built-in, catch-all product type plugin
// the reference CLI (cmd/muninn) registers when no richer extension is
// configured for a product_type. Real embedders of internal/archive are
// expected to implement registry.ProductTypePlugin themselves for their own
// formats (the way product_type_extensions names them in configuration);
// Go has no equivalent to loading a plugin by dotted module name at
// runtime, so the reference binary ships this one plugin and otherwise
// treats product_type_extensions as informational.
package genericproduct

import (
	"context"
	"path/filepath"
	"strconv"
	"time"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/registry"
)

// Plugin is a product type plugin with no format-specific knowledge: it
// accepts any paths, derives no properties from them, and places bytes
// under "<product_type>/<year>".
type Plugin struct {
	ProductType string
}

var _ registry.ProductTypePlugin = (*Plugin)(nil)

// New returns a Plugin scoped to the given product type name, used as
// archive_path's leading path segment.
func New(productType string) *Plugin {
	return &Plugin{ProductType: productType}
}

func (p *Plugin) Identify(ctx context.Context, paths []string) bool {
	return len(paths) > 0
}

// Analyze derives no properties; callers that want namespace fields
// populated must supply properties.Container explicitly at ingest time.
func (p *Plugin) Analyze(ctx context.Context, paths []string) (*properties.Container, []string, apperrors.Error) {
	return properties.New(), nil, nil
}

// ArchivePath buckets products by ingest year under the product type name,
// e.g. "abc/2024".
func (p *Plugin) ArchivePath(ctx context.Context, props *properties.Container) (string, apperrors.Error) {
	return filepath.ToSlash(filepath.Join(p.ProductType, strconv.Itoa(time.Now().Year()))), nil
}
