package apikey

import (
	"github.com/salestext/dtax-crm/internal/apikey/repository"
	"github.com/salestext/dtax-crm/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
