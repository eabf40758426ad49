package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/guestlist/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunAutoMigratesNonPostgres(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, Run(db, zap.NewNop()))

	for _, table := range []string{
		"guests", "rsvp_history_entries", "communication_log_entries",
		"transport_options", "schedules", "seat_bookings",
		"carpool_offers", "carpool_participants",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("seat_bookings", "ux_seat_bookings_schedule_guest"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestRunRejectsNilConn(t *testing.T) {
	assert.Error(t, Run(nil, zap.NewNop()))
}
