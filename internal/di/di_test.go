package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl0bal01/discord-watchlists/internal/app"
	"github.com/gl0bal01/discord-watchlists/internal/config"
)

func TestInitializeApp(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("WATCHLISTS_MONITORS_RANSOMWARE_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := InitializeApp(cfg, app.Options{DryRun: true})
	require.NoError(t, err)

	ready := map[string]bool{}
	for _, status := range a.Monitors() {
		ready[status.Name] = status.Err == nil
	}
	assert.Equal(t, map[string]bool{"cve": false, "europol": false, "fbi": false, "ransomware": true}, ready)
}
