package providers

import (
	"github.com/samber/do/v2"

	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/logger"
	"github.com/filedrop/filedrop-server/internal/service"
	"github.com/filedrop/filedrop-server/internal/storage"
	"github.com/filedrop/filedrop-server/internal/tagging"
)

// ProvideTagService provides the tag management service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	st := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(st.Store, log.Logger), nil
}

// ProvideFileService provides the file intake service.
func ProvideFileService(i do.Injector) (*service.FileService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	st := do.MustInvoke[*StoreHandle](i)
	stg := do.MustInvoke[*storage.Storage](i)
	classifier := do.MustInvoke[*classify.Classifier](i)
	generator := do.MustInvoke[*tagging.Generator](i)
	tags := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewFileService(
		st.Store,
		stg,
		classifier,
		generator,
		tags,
		cfg.Tagging.AutoTagEnabled,
		log.Logger,
	), nil
}
