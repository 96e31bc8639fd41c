package integrations

import (
	"github.com/salestext/dtax-crm/internal/integrations/intlog"
	"github.com/salestext/dtax-crm/internal/integrations/invoicesystem"
	"github.com/salestext/dtax-crm/internal/integrations/taxsystem"
	"go.uber.org/fx"
)

var Module = fx.Module("integrations",
	fx.Provide(intlog.NewRecorder),
	fx.Provide(taxsystem.New),
	fx.Provide(invoicesystem.New),
)
