package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/coselection/internal/domain/entity"
	"github.com/garyjia/coselection/internal/domain/permission"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "coselection.db")
	cfg.Auth.Secret = "container-test-secret"
	cfg.Sweeper.Enabled = false
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), zap.NewNop())
	assert.ErrorContains(t, err, "auth secret")
}

func TestContainer_Lifecycle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, err := NewContainer(testConfig(t), zap.New(core))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx))

	health := c.Health()
	assert.True(t, health.Overall)
	assert.Equal(t, "sweeper disabled", health.Components["workers"].Message)
	assert.True(t, health.Components["dispatcher"].Healthy)
	assert.NotNil(t, c.HTTPServer())
	assert.NotNil(t, c.Sweeper())

	submitter := permission.Actor{ID: "u-1", Role: permission.RoleSubmitter}
	lead, err := c.Services().Lead.CreateLead(ctx, submitter, entity.LeadFields{CompanyName: "Acme"})
	require.NoError(t, err)

	stored, err := c.Repositories().Lead.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, lead.Status, stored.Status)

	summary, err := c.Sweeper().RunOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, summary.Locked.Applied)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())

	audit := logs.FilterLoggerName("audit").FilterField(zap.String("entity_id", lead.ID))
	assert.Equal(t, 1, audit.Len())
}

func TestContainer_SweeperEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweeper.Enabled = true
	cfg.Sweeper.Interval = time.Hour

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, 1, c.Workers().WorkerCount())
	assert.True(t, c.Workers().IsRunning())
	assert.True(t, c.Health().Components["workers"].Healthy)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("lead_id", "l-1", 42, "skipped", "error", errors.New("boom"), "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "lead_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
