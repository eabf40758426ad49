package guest

import (
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/guest/repository"
	"github.com/smallbiznis/guestlist/internal/guest/service"
	"github.com/smallbiznis/guestlist/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("guest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewDeliveryRecorder),
	fx.Provide(reminderLock),
)

// reminderLock hands the shared limiter to the reminder sweep. A disabled
// limiter always grants the lock.
func reminderLock(l *ratelimit.Limiter) domain.ReminderLock {
	return l
}
