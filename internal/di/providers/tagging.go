package providers

import (
	"github.com/samber/do/v2"

	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/config"
	"github.com/filedrop/filedrop-server/internal/logger"
	"github.com/filedrop/filedrop-server/internal/storage"
	"github.com/filedrop/filedrop-server/internal/tagging"
	"github.com/filedrop/filedrop-server/internal/vision"
)

// ProvideClassifier provides the file category classifier.
func ProvideClassifier(i do.Injector) (*classify.Classifier, error) {
	return classify.New(classify.DefaultConfig()), nil
}

// ProvideLabeler provides the image labeling client, or a disabled stand-in
// when no credentials are configured.
func ProvideLabeler(i do.Injector) (vision.Labeler, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.VisionEnabled() {
		log.Info("Image labeling disabled, no API credentials configured")
		return vision.NewDisabled(log.Logger), nil
	}

	client := vision.NewClient(vision.Options{
		Endpoint:  cfg.Vision.Endpoint,
		APIKey:    cfg.Vision.APIKey,
		Timeout:   cfg.Vision.Timeout,
		MaxLabels: cfg.Vision.MaxLabels,
	}, log.Logger)

	log.Info("Image labeling enabled", "endpoint", cfg.Vision.Endpoint)

	return client, nil
}

// ProvideTagGenerator provides the auto-tagging generator.
func ProvideTagGenerator(i do.Injector) (*tagging.Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	stg := do.MustInvoke[*storage.Storage](i)
	labeler := do.MustInvoke[vision.Labeler](i)

	return tagging.New(tagging.Config{
		MaxTags:         cfg.Tagging.MaxTagsPerFile,
		StorageBasePath: stg.BasePath(),
	}, labeler, log.Logger), nil
}
