package cpu

import "github.com/ronan-kerviche/glip-lib-sub003/backend"

func init() {
	backend.Register(backend.NameCPU, func(cfg backend.Config) (backend.Device, error) {
		return New(WithWorkers(cfg.Workers)), nil
	})
}
