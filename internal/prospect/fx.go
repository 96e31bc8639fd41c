package prospect

import (
	"github.com/salestext/dtax-crm/internal/prospect/repository"
	"github.com/salestext/dtax-crm/internal/prospect/service"
	"go.uber.org/fx"
)

var Module = fx.Module("prospect.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
