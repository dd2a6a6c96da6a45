package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoanbernabeu/sshinvoke/internal/config"
	"github.com/yoanbernabeu/sshinvoke/internal/ssh"
)

// useTempConfig points the CLI at an empty config file for one test
func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfgFile = path
	globalCfg = config.DefaultGlobalConfig()
	t.Cleanup(func() {
		cfgFile = ""
		globalCfg = nil
		hostsAddFlags = config.HostConfig{}
	})
	return path
}

func TestHostsAddListRemove(t *testing.T) {
	path := useTempConfig(t)

	hostsAddFlags = config.HostConfig{Port: 2222, HostKey: testHostKey}
	require.NoError(t, runHostsAdd(hostsAddCmd, []string{"web", "deploy@web.example.com"}))

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	host, err := loaded.GetHost("web")
	require.NoError(t, err)
	assert.Equal(t, config.HostConfig{
		Host:    "web.example.com",
		User:    "deploy",
		Port:    2222,
		HostKey: testHostKey,
	}, *host)

	var out bytes.Buffer
	printHosts(&out, globalCfg)
	assert.Contains(t, out.String(), "web")
	assert.Contains(t, out.String(), "deploy@web.example.com:2222")

	require.NoError(t, runHostsRemove(hostsRemoveCmd, []string{"web"}))
	loaded, err = config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.ListHosts())

	assert.Error(t, runHostsRemove(hostsRemoveCmd, []string{"web"}))
}

func TestHostsAdd_Invalid(t *testing.T) {
	useTempConfig(t)

	hostsAddFlags = config.HostConfig{HostKey: "not a key"}
	assert.Error(t, runHostsAdd(hostsAddCmd, []string{"web", "web.example.com"}))

	hostsAddFlags = config.HostConfig{}
	assert.Error(t, runHostsAdd(hostsAddCmd, []string{"bad alias", "web.example.com"}))
	assert.Empty(t, globalCfg.ListHosts())
}

func TestPrintHosts_Empty(t *testing.T) {
	var out bytes.Buffer
	printHosts(&out, config.DefaultGlobalConfig())
	assert.Contains(t, out.String(), "No hosts configured")
}

func TestHostkey_Save(t *testing.T) {
	path := useTempConfig(t)

	key, err := ssh.ParsePublicKey(testHostKey)
	require.NoError(t, err)

	var gotTarget ssh.Target
	fetchHostKey = func(ctx context.Context, target ssh.Target, timeout time.Duration) (*ssh.HostKeyInfo, error) {
		gotTarget = target
		return ssh.DescribeHostKey(key), nil
	}
	t.Cleanup(func() { fetchHostKey = ssh.FetchHostKey })

	host, err := ResolveHost(globalCfg, "deploy@web.example.com", connectOptions{Port: 2200, Insecure: true}, env(nil))
	require.NoError(t, err)

	var out bytes.Buffer
	info, err := printHostKey(context.Background(), host.Target, time.Second, &out)
	require.NoError(t, err)
	assert.Equal(t, ssh.Target{Host: "web.example.com", Port: 2200}, gotTarget)
	assert.Equal(t, testHostKey+"\n", out.String())

	require.NoError(t, saveHostWithKey(globalCfg, "web", host, info.AuthorizedLine))

	loaded, err := config.LoadFromFile(path)
	require.NoError(t, err)
	saved, err := loaded.GetHost("web")
	require.NoError(t, err)
	assert.Equal(t, testHostKey, saved.HostKey)
	assert.Equal(t, 2200, saved.Port)
}

func TestConfigShow(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, globalCfg.AddHost("db", config.HostConfig{Host: "10.0.0.2"}))

	var out, errOut bytes.Buffer
	configShowCmd.SetOut(&out)
	configShowCmd.SetErr(&errOut)
	t.Cleanup(func() {
		configShowCmd.SetOut(nil)
		configShowCmd.SetErr(nil)
	})

	require.NoError(t, runConfigShow(configShowCmd, nil))
	assert.Contains(t, out.String(), "connect_timeout: 30s")
	assert.Contains(t, out.String(), "host: 10.0.0.2")
	assert.Contains(t, errOut.String(), "config.yaml")
}
