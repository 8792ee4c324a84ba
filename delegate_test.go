package iocboot

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/Station-Manager/iocboot/log"
	"github.com/Station-Manager/iocboot/startup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DelegateTestSuite struct {
	suite.Suite
}

func TestDelegateTestSuite(t *testing.T) {
	suite.Run(t, new(DelegateTestSuite))
}

// invocationLog records callback order across post-processor fixtures.
type invocationLog struct {
	events []string
}

func (l *invocationLog) add(event string) { l.events = append(l.events, event) }

// registryMutator is a RegistryPostProcessor fixture with optional
// behavior hooks.
type registryMutator struct {
	id         string
	log        *invocationLog
	onRegistry func(f *Factory) error
	onFactory  func(f *Factory) error
}

func (m *registryMutator) PostProcessDefinitionRegistry(f *Factory) error {
	m.log.add("registry:" + m.id)
	if m.onRegistry != nil {
		return m.onRegistry(f)
	}
	return nil
}

func (m *registryMutator) PostProcessFactory(f *Factory) error {
	m.log.add("factory:" + m.id)
	if m.onFactory != nil {
		return m.onFactory(f)
	}
	return nil
}

type orderedRegistryMutator struct {
	registryMutator
	order int
}

func (m *orderedRegistryMutator) Order() int { return m.order }

type priorityRegistryMutator struct {
	orderedRegistryMutator
}

func (m *priorityRegistryMutator) PriorityOrdered() {}

// factoryMutator is a plain FactoryPostProcessor fixture.
type factoryMutator struct {
	id  string
	log *invocationLog
	err error
}

func (m *factoryMutator) PostProcessFactory(*Factory) error {
	m.log.add("factory:" + m.id)
	return m.err
}

type orderedFactoryMutator struct {
	factoryMutator
	order int
}

func (m *orderedFactoryMutator) Order() int { return m.order }

type priorityFactoryMutator struct {
	orderedFactoryMutator
}

func (m *priorityFactoryMutator) PriorityOrdered() {}

// mutatorDefinition registers a ready-made post-processor instance behind
// a definition so it is discovered, not supplied.
func mutatorDefinition(instance any) *Definition {
	return NewDefinition(reflect.TypeOf(instance)).
		WithSupplier(func() (any, error) { return instance, nil })
}

func newRegistryMutator(id string, l *invocationLog) *registryMutator {
	return &registryMutator{id: id, log: l}
}

func newOrderedRegistryMutator(id string, order int, l *invocationLog) *orderedRegistryMutator {
	m := &orderedRegistryMutator{order: order}
	m.id, m.log = id, l
	return m
}

func newPriorityRegistryMutator(id string, order int, l *invocationLog) *priorityRegistryMutator {
	m := &priorityRegistryMutator{}
	m.id, m.log, m.order = id, l, order
	return m
}

func (suite *DelegateTestSuite) newFactory(opts ...FactoryOption) *Factory {
	opts = append([]FactoryOption{WithLogger(log.DiscardLogger)}, opts...)
	return NewFactory(opts...)
}

func (suite *DelegateTestSuite) TestRegistryPhase_PriorityTiers() {
	l := &invocationLog{}
	f := suite.newFactory()

	// Registration order deliberately interleaves the tiers.
	require.NoError(suite.T(), f.RegisterDefinition("pA", mutatorDefinition(newPriorityRegistryMutator("pA", 10, l))))
	require.NoError(suite.T(), f.RegisterDefinition("oC", mutatorDefinition(newOrderedRegistryMutator("oC", 5, l))))
	require.NoError(suite.T(), f.RegisterDefinition("uE", mutatorDefinition(newRegistryMutator("uE", l))))
	require.NoError(suite.T(), f.RegisterDefinition("pB", mutatorDefinition(newPriorityRegistryMutator("pB", 1, l))))
	require.NoError(suite.T(), f.RegisterDefinition("oD", mutatorDefinition(newOrderedRegistryMutator("oD", 2, l))))
	require.NoError(suite.T(), f.RegisterDefinition("uF", mutatorDefinition(newRegistryMutator("uF", l))))

	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, nil))

	assert.Equal(suite.T(), []string{
		// PriorityOrdered tier, rank ascending.
		"registry:pB", "registry:pA",
		// Ordered tier, rank ascending.
		"registry:oD", "registry:oC",
		// Unordered, registration-scan order.
		"registry:uE", "registry:uF",
		// Factory callback on every registry mutator, accumulated order.
		"factory:pB", "factory:pA", "factory:oD", "factory:oC", "factory:uE", "factory:uF",
	}, l.events)
}

func (suite *DelegateTestSuite) TestRegistryPhase_NoMutatorInvokedTwice() {
	l := &invocationLog{}
	f := suite.newFactory()

	// PriorityOrdered also satisfies the Ordered predicate; the processed
	// set must keep it out of the later passes.
	require.NoError(suite.T(), f.RegisterDefinition("p", mutatorDefinition(newPriorityRegistryMutator("p", 0, l))))
	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, nil))

	registryEvents := 0
	for _, ev := range l.events {
		if ev == "registry:p" {
			registryEvents++
		}
	}
	assert.Equal(suite.T(), 1, registryEvents)
}

func (suite *DelegateTestSuite) TestRegistryPhase_SuppliedInvokedFirstInInputOrder() {
	l := &invocationLog{}
	f := suite.newFactory()

	require.NoError(suite.T(), f.RegisterDefinition("discovered", mutatorDefinition(newPriorityRegistryMutator("discovered", 0, l))))

	// Supplied mutators run in input order even when their markers would
	// sort them differently.
	s1 := newOrderedRegistryMutator("s1", 5, l)
	s2 := newPriorityRegistryMutator("s2", 0, l)
	plain := &factoryMutator{id: "plain", log: l}

	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, []FactoryPostProcessor{s1, s2, plain}))

	assert.Equal(suite.T(), []string{
		"registry:s1", "registry:s2",
		"registry:discovered",
		"factory:s1", "factory:s2", "factory:discovered",
		"factory:plain",
	}, l.events)
}

func (suite *DelegateTestSuite) TestRegistryPhase_FixedPointDiscoversNewMutators() {
	l := &invocationLog{}
	f := suite.newFactory()

	grandchild := newRegistryMutator("grandchild", l)
	child := newRegistryMutator("child", l)
	child.onRegistry = func(f *Factory) error {
		return f.RegisterDefinition("grandchild", mutatorDefinition(grandchild))
	}
	seed := newRegistryMutator("seed", l)
	seed.onRegistry = func(f *Factory) error {
		return f.RegisterDefinition("child", mutatorDefinition(child))
	}

	require.NoError(suite.T(), f.RegisterDefinition("seed", mutatorDefinition(seed)))
	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, nil))

	assert.Equal(suite.T(), []string{
		"registry:seed", "registry:child", "registry:grandchild",
		"factory:seed", "factory:child", "factory:grandchild",
	}, l.events)
}

func (suite *DelegateTestSuite) TestRegistryPhase_DiscoveryCapSurfacesDiagnostic() {
	l := &invocationLog{}
	f := suite.newFactory(WithMaxDiscoveryRounds(3))

	// Each generation registers the next one, never reaching a fixed
	// point within the cap.
	generation := 0
	var spawn func(f *Factory) error
	spawn = func(f *Factory) error {
		generation++
		m := newRegistryMutator(fmt.Sprintf("gen%d", generation), l)
		m.onRegistry = spawn
		return f.RegisterDefinition(m.id, mutatorDefinition(m))
	}

	root := newRegistryMutator("root", l)
	root.onRegistry = spawn
	require.NoError(suite.T(), f.RegisterDefinition("root", mutatorDefinition(root)))

	err := InvokeFactoryPostProcessors(f, nil)
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, ErrDiscoveryNotConverging)
}

func (suite *DelegateTestSuite) TestFactoryPhase_PriorityTiers() {
	l := &invocationLog{}
	f := suite.newFactory()

	pA := &priorityFactoryMutator{}
	pA.id, pA.log, pA.order = "pA", l, 7
	pB := &priorityFactoryMutator{}
	pB.id, pB.log, pB.order = "pB", l, 3
	oC := &orderedFactoryMutator{order: 9}
	oC.id, oC.log = "oC", l
	oD := &orderedFactoryMutator{order: 1}
	oD.id, oD.log = "oD", l
	uE := &factoryMutator{id: "uE", log: l}
	uF := &factoryMutator{id: "uF", log: l}

	require.NoError(suite.T(), f.RegisterDefinition("pA", mutatorDefinition(pA)))
	require.NoError(suite.T(), f.RegisterDefinition("oC", mutatorDefinition(oC)))
	require.NoError(suite.T(), f.RegisterDefinition("uE", mutatorDefinition(uE)))
	require.NoError(suite.T(), f.RegisterDefinition("pB", mutatorDefinition(pB)))
	require.NoError(suite.T(), f.RegisterDefinition("oD", mutatorDefinition(oD)))
	require.NoError(suite.T(), f.RegisterDefinition("uF", mutatorDefinition(uF)))

	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, nil))

	assert.Equal(suite.T(), []string{
		"factory:pB", "factory:pA",
		"factory:oD", "factory:oC",
		"factory:uE", "factory:uF",
	}, l.events)
}

func (suite *DelegateTestSuite) TestFactoryPhase_ErrorPropagatesAndAbortsRemainingPhases() {
	l := &invocationLog{}
	boom := errors.New("boom")

	f := suite.newFactory()
	require.NoError(suite.T(), f.RegisterDefinition("broken",
		mutatorDefinition(&factoryMutator{id: "broken", log: l, err: boom})))
	require.NoError(suite.T(), f.RegisterDefinition("unreached",
		mutatorDefinition(&factoryMutator{id: "unreached", log: l})))

	ctx := NewContext(WithFactory(f))
	err := ctx.Refresh()
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, boom)

	// The lifecycle-interceptor registration phase never ran.
	assert.Zero(suite.T(), f.BeanPostProcessorCount())
	assert.Equal(suite.T(), []string{"factory:broken"}, l.events)
}

func (suite *DelegateTestSuite) TestFactoryPhase_ClearsMergedMetadata() {
	f := suite.newFactory()

	type widget struct{ Label string }
	require.NoError(suite.T(), f.RegisterDefinition("widget",
		NewDefinition(reflect.TypeOf(widget{})).WithProperty("Label", "before")))

	// Warm the merged cache, then let a mutator rewrite the raw data.
	merged, err := f.MergedDefinition("widget")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "before", merged.Properties[0].Value)

	def, err := f.Definition("widget")
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, []FactoryPostProcessor{
		factoryPostProcessorFunc(func(*Factory) error {
			def.Properties[0].Value = "after"
			return nil
		}),
	}))

	merged, err = f.MergedDefinition("widget")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "after", merged.Properties[0].Value)
}

func (suite *DelegateTestSuite) TestInvocationsAreBracketedByStartupSteps() {
	l := &invocationLog{}
	recorder := startup.NewBuffering()
	f := suite.newFactory(WithStartup(recorder))

	require.NoError(suite.T(), f.RegisterDefinition("m", mutatorDefinition(newRegistryMutator("m", l))))
	require.NoError(suite.T(), InvokeFactoryPostProcessors(f, nil))

	registrySteps := recorder.EventsNamed(stepDefinitionRegistryPostProcess)
	require.Len(suite.T(), registrySteps, 1)
	assert.Contains(suite.T(), registrySteps[0].Tags[tagPostProcessor], "registryMutator")

	factorySteps := recorder.EventsNamed(stepBeanFactoryPostProcess)
	require.Len(suite.T(), factorySteps, 1)
}

// factoryPostProcessorFunc adapts a func to FactoryPostProcessor.
type factoryPostProcessorFunc func(f *Factory) error

func (fn factoryPostProcessorFunc) PostProcessFactory(f *Factory) error { return fn(f) }
