package data

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/config"
	"github.com/iWorld-y/daily_brief/app/daily_brief/pkg/storage"
	"github.com/iWorld-y/daily_brief/app/display/internal/conf"
)

// Data 数据资源
type Data struct {
	archivePath string
	store       *storage.Storage
}

// NewData 打开数据源
func NewData(c *conf.Data, logger log.Logger) (*Data, func(), error) {
	d := &Data{archivePath: "docs/data.json"}
	if c != nil && c.Archive != nil && c.Archive.Path != "" {
		d.archivePath = c.Archive.Path
	}

	if c != nil && c.Database != nil && c.Database.Driver != "" {
		store, err := storage.NewStorage(config.DBConfig{Driver: c.Database.Driver, DSN: c.Database.Source})
		if err != nil {
			return nil, nil, err
		}
		d.store = store
	}

	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		if d.store != nil {
			_ = d.store.Close()
		}
	}
	return d, cleanup, nil
}
