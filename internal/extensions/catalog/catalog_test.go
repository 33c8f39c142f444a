package catalog

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/extension"
	"github.com/srg/botlink/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilies(t *testing.T) {
	assert.Equal(t, []string{"aicobot", "aidrone", "firmtech", "jcboard", "jdcode", "robodog"}, IDs())

	services := map[string]string{}
	for _, f := range Families() {
		services[f.ID] = f.ServiceUUID
	}
	assert.Equal(t, "2261", services["aicobot"])
	assert.Equal(t, "2261", services["jdcode"])
	assert.Equal(t, "2262", services["jcboard"])
	assert.Equal(t, "2264", services["robodog"])
}

func TestLookup(t *testing.T) {
	f, err := Lookup("firmtech")
	require.NoError(t, err)
	assert.Equal(t, "FDrone2", f.Name)

	_, err = Lookup("tello")
	assert.ErrorIs(t, err, extension.ErrUnknownExtension)
}

func TestConstructorsMatchFamilies(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	for _, f := range Families() {
		t.Run(f.ID, func(t *testing.T) {
			ext := f.New(nil, session.Options{}, logger)
			assert.Equal(t, f.ID, ext.Info().ID)
			assert.Equal(t, f.Name, ext.Info().Name)
			assert.Equal(t, f.ServiceUUID, ext.Session().Descriptor().ServiceUUID)
			assert.Equal(t, session.Disconnected, ext.Session().State())
		})
	}
}

func TestNewRuntime(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	rt, err := NewRuntime(nil, session.Options{}, logger)
	require.NoError(t, err)
	assert.Len(t, rt.Extensions(), 6)

	_, err = rt.Call(context.Background(), "aicobot", "motor", extension.Args{"TEXT": 50})
	require.NoError(t, err)

	rt.StopAll()
	for _, ext := range rt.Extensions() {
		assert.False(t, ext.Session().IsConnected())
	}
}
