package providers

import (
	"github.com/samber/do/v2"

	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/logger"
	"github.com/filedrop/filedrop-server/internal/storage"
)

// ProvideStorage provides the date-partitioned file storage.
func ProvideStorage(i do.Injector) (*storage.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	stg, err := storage.New(cfg.Storage.BasePath)
	if err != nil {
		return nil, err
	}

	log.Info("File storage ready", "path", cfg.Storage.BasePath)

	return stg, nil
}
