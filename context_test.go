package iocboot

import (
	"reflect"
	"testing"

	"github.com/Station-Manager/iocboot/log"
	"github.com/Station-Manager/iocboot/startup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type endpointBean struct {
	Endpoint string
}

func TestContextRefresh_EndToEnd(t *testing.T) {
	recorder := startup.NewBuffering()
	f := NewFactory(WithLogger(log.DiscardLogger), WithStartup(recorder))
	ctx := NewContext(WithFactory(f))

	// A supplied registry mutator contributes the service definition; the
	// placeholder processor then rewrites its property values.
	l := &invocationLog{}
	seed := newRegistryMutator("seed", l)
	seed.onRegistry = func(f *Factory) error {
		return f.RegisterDefinition("service", NewDefinition(reflect.TypeOf(endpointBean{})).
			WithProperty("Endpoint", "${service.endpoint:localhost:4317}"))
	}
	ctx.AddFactoryPostProcessor(seed)
	ctx.AddFactoryPostProcessor(NewPlaceholderPostProcessor(MapValueProvider(map[string]string{
		"service.endpoint": "collector:4317",
	})))

	require.NoError(t, f.RegisterDefinition("listener", NewDefinition(reflect.TypeOf(listenerBean{}))))

	require.NoError(t, ctx.Refresh())

	v, err := f.GetBean("service")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", v.(*endpointBean).Endpoint)

	// The listener bean was pre-instantiated and detected.
	assert.Contains(t, f.ListenerNames(), "listener")

	// The refresh is bracketed by its startup steps.
	assert.Len(t, recorder.EventsNamed(stepContextRefresh), 1)
	assert.Len(t, recorder.EventsNamed(stepBeansPostProcess), 1)
	assert.NotEmpty(t, recorder.EventsNamed(stepDefinitionRegistryPostProcess))
}

func TestContextRefresh_HoldsNoStateAcrossContexts(t *testing.T) {
	first := NewContext(WithContextLogger(log.DiscardLogger))
	require.NoError(t, first.Factory().RegisterDefinition("w", NewDefinition(reflect.TypeOf(workerBean{}))))
	require.NoError(t, first.Refresh())
	require.True(t, first.Factory().ContainsSingleton("w"))

	second := NewContext(WithContextLogger(log.DiscardLogger))
	assert.False(t, second.Factory().ContainsDefinition("w"))
	require.NoError(t, second.Refresh())
	assert.False(t, second.Factory().ContainsSingleton("w"))
}
