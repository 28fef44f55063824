// Package registry implements the archive's plug-in registry (spec §4.7):
// four tables — product-type plugins, namespace schemas, remote-backend
// transports, and hook extensions — populated at archive open time from
// configuration and consulted by the orchestrator via lookup APIs.
package registry

import (
	"context"
	"fmt"

	"github.com/stcorp/muninn/internal/apperrors"
	"github.com/stcorp/muninn/internal/properties"
	"github.com/stcorp/muninn/internal/schema"
)

// ErrPlugin is the root of every error the registry itself returns (as
// opposed to errors a plug-in raises, which are themselves wrapped into
// ErrPlugin per spec §4.10's "leaked foreign exceptions are themselves a
// PluginError").
var ErrPlugin apperrors.Error = apperrors.ErrPlugin.Msg("plugin registry error")

// CascadeRule is one of the six cascade-engine dispositions a product type
// declares for its outgoing links (spec §4.9).
type CascadeRule string

const (
	CascadeIgnore            CascadeRule = "IGNORE"
	CascadeCascadePurgeStrip CascadeRule = "CASCADE_PURGE_AS_STRIP"
	CascadeCascadePurge      CascadeRule = "CASCADE_PURGE"
	CascadeStrip             CascadeRule = "STRIP"
	CascadeCascade           CascadeRule = "CASCADE"
	CascadePurge             CascadeRule = "PURGE"
)

// ProductTypePlugin is the behavior a product type contributes: how to
// recognize its products, how to derive properties from bytes, and how to
// place them in the archive hierarchy.
type ProductTypePlugin interface {
	// Identify reports whether paths look like this product type.
	Identify(ctx context.Context, paths []string) bool
	// Analyze derives a property container (and optional tags) from paths,
	// used when the caller doesn't supply properties directly.
	Analyze(ctx context.Context, paths []string) (*properties.Container, []string, apperrors.Error)
	// ArchivePath derives the archive_path a product should live under,
	// given its resolved properties.
	ArchivePath(ctx context.Context, props *properties.Container) (string, apperrors.Error)
}

// EnclosingDirectoryPlugin is implemented by product types whose products
// are multi-part: physical_name is then the enclosing directory name
// derived from properties rather than a single source file's base name.
type EnclosingDirectoryPlugin interface {
	EnclosingDirectory(ctx context.Context, props *properties.Container) (string, apperrors.Error)
}

// PostIngestHooker, PostPullHooker, PostRemoveHooker, and PostCreateHooker
// are the optional post-phase hooks a product type plugin or a hook
// extension may implement. The registry type-asserts for these rather than
// requiring every plug-in to implement a bag of no-op methods.
type PostIngestHooker interface {
	PostIngestHook(ctx context.Context, id string, props *properties.Container) apperrors.Error
}
type PostPullHooker interface {
	PostPullHook(ctx context.Context, id string, props *properties.Container) apperrors.Error
}
type PostRemoveHooker interface {
	PostRemoveHook(ctx context.Context, id string, props *properties.Container) apperrors.Error
}
type PostCreateHooker interface {
	PostCreateHook(ctx context.Context, id string, props *properties.Container) apperrors.Error
}

// Exporter is implemented by product type plugins that support
// export_<format>.
type Exporter interface {
	Export(ctx context.Context, format, targetDir string, paths []string) ([]string, apperrors.Error)
}

// ProductType bundles a registered plugin with its declared attributes.
type ProductType struct {
	Name                  string
	UseEnclosingDirectory bool
	HashType              string // "" becomes "md5" at registration; "none" disables hashing
	CascadeRule           CascadeRule
	Namespaces            []string
	Plugin                ProductTypePlugin
}

// RemoteBackend is a transport capable of pulling bytes for products whose
// remote_url it recognizes (spec §4.8's Pull operation).
type RemoteBackend interface {
	Identify(url string) bool
	// Pull fetches remoteURL's bytes into targetDir under physicalName and
	// returns the resulting local paths, the same shape storage.Backend.Put
	// expects for its own staging.
	Pull(ctx context.Context, remoteURL, physicalName, targetDir string) ([]string, apperrors.Error)
}

// ConfigurableRemoteBackend is implemented by remote backends that accept
// archive-level configuration (credentials, retry policy, etc).
type ConfigurableRemoteBackend interface {
	SetConfiguration(cfg map[string]string) apperrors.Error
}

// Registry holds the four plug-in tables for one open archive.
type Registry struct {
	schemas *schema.Registry

	productTypes   []*ProductType
	productTypeIdx map[string]*ProductType

	remotes []RemoteBackend

	// hookExtensions are consulted in registration order for every hook
	// except post_remove_hook, which runs in reverse order (spec §4.7).
	hookExtensions []any
}

// New returns an empty Registry backed by a fresh schema.Registry (which
// already seeds the core namespace).
func New() *Registry {
	return &Registry{
		productTypeIdx: map[string]*ProductType{},
		schemas:        schema.NewRegistry(),
	}
}

// Schemas exposes the namespace table for the expression analyzer and
// property validators.
func (r *Registry) Schemas() *schema.Registry { return r.schemas }

// RegisterNamespace adds a namespace schema, delegating to the underlying
// schema.Registry for the uuid/core-redefinition invariants.
func (r *Registry) RegisterNamespace(ns schema.Namespace) apperrors.Error {
	if err := r.schemas.Register(ns); err != nil {
		return err
	}
	return nil
}

// RegisterProductType adds a product type plugin. Re-registering the same
// name is rejected so a misconfigured extension list fails loudly at open
// time rather than silently shadowing an earlier plugin.
func (r *Registry) RegisterProductType(pt ProductType) apperrors.Error {
	if _, exists := r.productTypeIdx[pt.Name]; exists {
		return ErrPlugin.Msg(fmt.Sprintf("product type %q already registered", pt.Name))
	}
	if pt.CascadeRule == "" {
		pt.CascadeRule = CascadeIgnore
	}
	if pt.HashType == "" {
		pt.HashType = "md5"
	}
	entry := pt
	r.productTypes = append(r.productTypes, &entry)
	r.productTypeIdx[pt.Name] = &entry
	return nil
}

// ProductTypeNames lists every registered product type in registration
// order, for callers (e.g. an "info" command) that just need an overview.
func (r *Registry) ProductTypeNames() []string {
	names := make([]string, len(r.productTypes))
	for i, pt := range r.productTypes {
		names[i] = pt.Name
	}
	return names
}

// ProductType looks up a registered product type by name.
func (r *Registry) ProductType(name string) (*ProductType, apperrors.Error) {
	pt, ok := r.productTypeIdx[name]
	if !ok {
		return nil, ErrPlugin.Msg(fmt.Sprintf("unknown product type %q", name))
	}
	return pt, nil
}

// IdentifyProductType runs every registered plugin's Identify in
// registration order and returns the first match (spec §4.8 ingest step 1).
func (r *Registry) IdentifyProductType(ctx context.Context, paths []string) (*ProductType, apperrors.Error) {
	for _, pt := range r.productTypes {
		if pt.Plugin.Identify(ctx, paths) {
			return pt, nil
		}
	}
	return nil, ErrPlugin.Msg("no registered product type identifies the given paths")
}

// RegisterRemoteBackend adds a remote transport, consulted in registration
// order by SelectRemoteBackend.
func (r *Registry) RegisterRemoteBackend(rb RemoteBackend) {
	r.remotes = append(r.remotes, rb)
}

// SelectRemoteBackend returns the first registered remote backend whose
// Identify recognizes url (spec §4.8's Pull operation).
func (r *Registry) SelectRemoteBackend(url string) (RemoteBackend, apperrors.Error) {
	for _, rb := range r.remotes {
		if rb.Identify(url) {
			return rb, nil
		}
	}
	return nil, ErrPlugin.Msg(fmt.Sprintf("no remote backend recognizes url %q", url))
}

// RegisterHookExtension adds an extension to the hook-extension table. The
// value need only implement whichever *Hooker interfaces it supports;
// everything else is ignored at invocation time.
func (r *Registry) RegisterHookExtension(ext any) {
	r.hookExtensions = append(r.hookExtensions, ext)
}

// RunPostIngestHooks invokes post_ingest_hook on the product type plugin
// first (if it implements PostIngestHooker), then every hook extension that
// implements it, in registration order.
func (r *Registry) RunPostIngestHooks(ctx context.Context, pt *ProductType, id string, props *properties.Container) apperrors.Error {
	if hooker, ok := pt.Plugin.(PostIngestHooker); ok {
		if err := hooker.PostIngestHook(ctx, id, props); err != nil {
			return err
		}
	}
	for _, ext := range r.hookExtensions {
		if hooker, ok := ext.(PostIngestHooker); ok {
			if err := hooker.PostIngestHook(ctx, id, props); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunPostPullHooks mirrors RunPostIngestHooks for the pull phase.
func (r *Registry) RunPostPullHooks(ctx context.Context, pt *ProductType, id string, props *properties.Container) apperrors.Error {
	if hooker, ok := pt.Plugin.(PostPullHooker); ok {
		if err := hooker.PostPullHook(ctx, id, props); err != nil {
			return err
		}
	}
	for _, ext := range r.hookExtensions {
		if hooker, ok := ext.(PostPullHooker); ok {
			if err := hooker.PostPullHook(ctx, id, props); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunPostRemoveHooks runs in reverse registration order, per spec §4.7.
func (r *Registry) RunPostRemoveHooks(ctx context.Context, pt *ProductType, id string, props *properties.Container) apperrors.Error {
	for i := len(r.hookExtensions) - 1; i >= 0; i-- {
		if hooker, ok := r.hookExtensions[i].(PostRemoveHooker); ok {
			if err := hooker.PostRemoveHook(ctx, id, props); err != nil {
				return err
			}
		}
	}
	if hooker, ok := pt.Plugin.(PostRemoveHooker); ok {
		if err := hooker.PostRemoveHook(ctx, id, props); err != nil {
			return err
		}
	}
	return nil
}

// RunPostCreateHooks runs for catalogue-only ingests (no bytes written),
// orthogonally to post_ingest_hook (spec §9's hook-ordering Open Question —
// resolved here as "both can fire independently": post_create_hook marks
// the catalogue-row creation event, post_ingest_hook marks bytes landing,
// and a catalogue-only ingest only ever triggers the former).
func (r *Registry) RunPostCreateHooks(ctx context.Context, pt *ProductType, id string, props *properties.Container) apperrors.Error {
	if hooker, ok := pt.Plugin.(PostCreateHooker); ok {
		if err := hooker.PostCreateHook(ctx, id, props); err != nil {
			return err
		}
	}
	for _, ext := range r.hookExtensions {
		if hooker, ok := ext.(PostCreateHooker); ok {
			if err := hooker.PostCreateHook(ctx, id, props); err != nil {
				return err
			}
		}
	}
	return nil
}
