package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Config{
		APIURL:         defaultAPIURL,
		AppID:          defaultAppID,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       defaultLogLevel,
	}, cfg)
}

func TestLoadConfigLayers(t *testing.T) {
	env := map[string]string{
		"INVOICEDESK_CONFIG": `{"apiUrl":"http://blob.local","appId":"from-blob"}`,
		"APP_ID":             "from-env",
		"INITIAL_AUTH_TOKEN": " tok \n",
		"REQUEST_TIMEOUT":    "5s",
	}
	cfg, err := loadConfig([]string{"-api", "https://desk.example/", "-timeout", "9s"}, envOf(env))
	require.NoError(t, err)

	assert.Equal(t, "https://desk.example", cfg.APIURL)
	assert.Equal(t, "from-env", cfg.AppID)
	assert.Equal(t, "tok", cfg.InitialAuthToken)
	assert.Equal(t, 9*time.Second, cfg.RequestTimeout)

	cfg, err = loadConfig(nil, envOf(env))
	require.NoError(t, err)
	assert.Equal(t, "http://blob.local", cfg.APIURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := map[string]struct {
		args []string
		env  map[string]string
	}{
		"bad blob":    {env: map[string]string{"INVOICEDESK_CONFIG": "{"}},
		"bad timeout": {args: []string{"-timeout", "soon"}},
		"bad url":     {args: []string{"-api", "localhost"}},
		"bad flag":    {args: []string{"-nope"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(tc.args, envOf(tc.env))
			assert.Error(t, err)
		})
	}
}

func TestConnectionsValidate(t *testing.T) {
	var nilConns *Connections
	assert.True(t, errors.Is(nilConns.Validate(), ErrNotConfigured))

	err := (&Connections{}).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Contains(t, err.Error(), "auth, records, subscriptions, uploads")
}

func TestRemoteErrorMessage(t *testing.T) {
	assert.Equal(t, "remote status 502", (&RemoteError{Status: 502}).Error())
	assert.Equal(t, "remote status 400: No file part", (&RemoteError{Status: 400, Message: "No file part"}).Error())
}

func TestNotifierLatestWins(t *testing.T) {
	var n Notifier[int]
	n.Publish(1)

	ch, unsubscribe := n.Subscribe()
	assert.Equal(t, 1, <-ch, "new subscribers start with the last value")

	n.Publish(2)
	n.Publish(3)
	assert.Equal(t, 3, <-ch)
	assert.Equal(t, 1, n.Len())

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, n.Len())

	n.Publish(4)
}

func TestNotifierWithoutValue(t *testing.T) {
	var n Notifier[string]
	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %q", v)
	default:
	}
}
