package ticket

import (
	"github.com/salestext/dtax-crm/internal/ticket/repository"
	"github.com/salestext/dtax-crm/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
