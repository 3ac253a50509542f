package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkshelfapp/inkshelf-server/internal/config"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/media/imagehost"
)

// ProvideImageHostClient provides the external image host client.
func ProvideImageHostClient(i do.Injector) (*imagehost.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := imagehost.New(imagehost.Config{
		BaseURL:   cfg.ImageHost.BaseURL,
		CloudName: cfg.ImageHost.CloudName,
		APIKey:    cfg.ImageHost.APIKey,
		APISecret: cfg.ImageHost.APISecret,
	}, log.Logger)

	if client.Configured() {
		log.Info("Image host client configured", "cloud", cfg.ImageHost.CloudName)
	} else {
		log.Warn("Image host credentials missing, book image uploads will fail")
	}

	return client, nil
}
