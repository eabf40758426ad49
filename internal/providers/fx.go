package providers

import (
	"github.com/smallbiznis/guestlist/internal/providers/email"
	"github.com/smallbiznis/guestlist/internal/providers/whatsapp"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	whatsapp.Module,
)
