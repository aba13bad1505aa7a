// Package di provides dependency injection configuration for the FileDrop server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/di/providers"
	"github.com/filedrop/filedrop-server/internal/logger"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/storage"
	"github.com/filedrop/filedrop-server/internal/tagging"
	"github.com/filedrop/filedrop-server/internal/vision"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Persistence layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideStorage)

	// Tagging pipeline
	do.Provide(injector, providers.ProvideClassifier)
	do.Provide(injector, providers.ProvideLabeler)
	do.Provide(injector, providers.ProvideTagGenerator)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideFileService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*storage.Storage](injector)

	// Tagging pipeline
	_ = do.MustInvoke[*classify.Classifier](injector)
	_ = do.MustInvoke[vision.Labeler](injector)
	_ = do.MustInvoke[*tagging.Generator](injector)

	// Business services
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.FileService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
