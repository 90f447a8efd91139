package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	home := t.TempDir()
	homeVar := "HOME"
	if runtime.GOOS == "windows" {
		homeVar = "USERPROFILE"
	}
	t.Setenv(homeVar, home)

	for _, tc := range []struct {
		name, explicit, env, want string
	}{
		{name: "default", want: filepath.Join(home, ".jskit", "config")},
		{name: "env", env: "/etc/jskit.conf", want: "/etc/jskit.conf"},
		{name: "explicit beats env", explicit: "./local.conf", env: "/etc/jskit.conf", want: "./local.conf"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnv, tc.env)
			got, err := ResolveConfigPath(tc.explicit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
