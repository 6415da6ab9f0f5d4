package executor_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vk/provisiongrid/internal/backend"
	"github.com/vk/provisiongrid/internal/binder"
	"github.com/vk/provisiongrid/internal/builder"
	"github.com/vk/provisiongrid/internal/executor"
	"github.com/vk/provisiongrid/internal/graph"
	"github.com/vk/provisiongrid/internal/node"
	"github.com/vk/provisiongrid/internal/nodeid"
	"github.com/vk/provisiongrid/internal/scheduler"
	"github.com/vk/provisiongrid/internal/testutil"
)

func build(t *testing.T, ctx context.Context, decls []node.Declaration) *graph.Graph {
	t.Helper()
	g, err := builder.Build(ctx, decls)
	require.NoError(t, err)
	return g
}

func id(raw string) nodeid.ID {
	return nodeid.MustParse(raw)
}

// eventLog records observer events. The controller calls it from one
// goroutine, but tests read it afterwards, so it is still guarded.
type eventLog struct {
	mu     sync.Mutex
	events []executor.Event
}

func (l *eventLog) Observe(_ context.Context, ev executor.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// index returns the position of the first event for node in state, or -1.
func (l *eventLog) index(node string, state node.State) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ev := range l.events {
		if ev.Node.String() == node && ev.State == state {
			return i
		}
	}
	return -1
}

func TestRun_TranslationChain(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	clock := testutil.NewVirtualClock()
	be := testutil.NewRecordingBackend()
	be.Clock = clock
	be.Outputs["cloud_function.tts"] = map[string]any{"url": "https://tts-abc123.a.run.app"}

	g := build(t, ctx, testutil.TranslationChain(30*time.Second))
	outputs := []node.Output{
		{Name: "gateway_url", Ref: node.Reference{Node: id("api_gateway.gateway"), Key: "url"}},
		{Name: "function", Ref: node.Reference{Node: id("cloud_function.tts")}},
	}
	obs := &eventLog{}
	exec := executor.New(be, executor.WithClock(clock), executor.WithWorkers(4), executor.WithObserver(obs))

	// --- Act ---
	report, err := exec.Run(ctx, g, outputs)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
	assert.False(t, report.Cancelled)

	assert.Equal(t, []string{
		"project.main",
		"service.translate",
		"cloud_function.tts",
		"api_gateway.gateway",
	}, be.Nodes(backend.OpCreate), "gates never reach the backend")

	gateStart := obs.index("gate.propagation", node.StateRunning)
	gateDone := obs.index("gate.propagation", node.StateComplete)
	assert.Less(t, obs.index("service.translate", node.StateComplete), gateStart)
	assert.Less(t, gateStart, gateDone)
	assert.Less(t, gateDone, obs.index("cloud_function.tts", node.StateRunning))

	gw, ok := be.Call(backend.OpCreate, "api_gateway.gateway")
	require.True(t, ok)
	assert.Equal(t, "https://tts-abc123.a.run.app", gw.Inputs["url"])

	svc, _ := be.Call(backend.OpCreate, "service.translate")
	fn, _ := be.Call(backend.OpCreate, "cloud_function.tts")
	assert.GreaterOrEqual(t, fn.Start.Sub(svc.End), 30*time.Second)
	assert.Equal(t, "project/main", fn.Inputs["project"], "project id output is bound into the function")

	assert.Equal(t, "https://tts-abc123.a.run.app", report.Outputs["gateway_url"])
	assert.Equal(t, "cloud_function/tts", report.Outputs["function"].(map[string]any)["id"])
	assert.GreaterOrEqual(t, report.Duration, 30*time.Second)
}

func TestRun_ConcurrencyBound(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	var running, peak atomic.Int32
	be := testutil.NewRecordingBackend()
	be.Hold = func(context.Context, string) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
	}
	decls := []node.Declaration{
		testutil.Op("bucket.a1", nil),
		testutil.Op("bucket.a2", map[string]node.Input{"parent": testutil.Ref("bucket.a1", "id")}),
		testutil.Op("bucket.b1", nil),
		testutil.Op("bucket.b2", map[string]node.Input{"parent": testutil.Ref("bucket.b1", "id")}),
	}

	// --- Act ---
	report, err := executor.New(be, executor.WithWorkers(1)).Run(ctx, build(t, ctx, decls), nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, []string{"bucket.a1", "bucket.a2", "bucket.b1", "bucket.b2"}, be.Nodes(backend.OpCreate))
}

func TestRun_PartialFailure(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	quota := errors.New("quota exceeded")
	be.Fail["service.translate"] = quota

	decls := []node.Declaration{
		testutil.Op("project.main", nil),
		testutil.Op("service.translate", map[string]node.Input{"project": testutil.Ref("project.main", "id")}),
		testutil.Gate("propagation", time.Second, "service.translate"),
		testutil.Op("cloud_function.tts", nil, "gate.propagation"),
		testutil.Op("api_gateway.gateway", map[string]node.Input{"url": testutil.Ref("cloud_function.tts", "url")}),
		testutil.Op("bucket.assets", map[string]node.Input{"project": testutil.Ref("project.main", "id")}),
	}
	outputs := []node.Output{
		{Name: "gateway_url", Ref: node.Reference{Node: id("api_gateway.gateway"), Key: "url"}},
		{Name: "bucket", Ref: node.Reference{Node: id("bucket.assets"), Key: "id"}},
	}
	obs := &eventLog{}
	exec := executor.New(be, executor.WithClock(testutil.NewVirtualClock()), executor.WithObserver(obs))

	// --- Act ---
	report, err := exec.Run(ctx, build(t, ctx, decls), outputs)

	// --- Assert ---
	require.NoError(t, err, "node failures are reported, not returned")
	assert.Equal(t, []string{"project.main", "bucket.assets"}, testutil.Strings(report.Complete()))
	assert.Equal(t, []string{"service.translate"}, testutil.Strings(report.Failed()))
	assert.Equal(t, []string{"gate.propagation", "cloud_function.tts", "api_gateway.gateway"}, testutil.Strings(report.DependencyFailed()))
	assert.Empty(t, report.NotStarted())

	assert.NotContains(t, be.Nodes(backend.OpCreate), "cloud_function.tts")
	assert.NotContains(t, be.Nodes(backend.OpCreate), "api_gateway.gateway")

	st, ok := report.Status(id("api_gateway.gateway"))
	require.True(t, ok)
	var depErr *binder.DependencyFailedError
	require.True(t, errors.As(st.Err, &depErr))
	assert.Equal(t, "service.translate", depErr.Failed.String())

	runErr := report.Err()
	assert.ErrorIs(t, runErr, quota)
	var beErr *backend.Error
	require.True(t, errors.As(runErr, &beErr))
	assert.Equal(t, backend.OpCreate, beErr.Op)
	assert.Equal(t, "service", beErr.Type)

	assert.NotContains(t, report.Outputs, "gateway_url")
	assert.Equal(t, "bucket/assets", report.Outputs["bucket"])
	assert.GreaterOrEqual(t, obs.index("api_gateway.gateway", node.StateDependencyFailed), 0)
}

func TestRun_CycleMakesNoBackendCall(t *testing.T) {
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	decls := []node.Declaration{
		testutil.Op("project.main", nil),
		testutil.Op("service.a", map[string]node.Input{"x": testutil.Ref("service.b", "x")}),
		testutil.Op("service.b", map[string]node.Input{"x": testutil.Ref("service.a", "x")}),
	}

	report, err := executor.New(be).Run(ctx, build(t, ctx, decls), nil)

	var cycle *scheduler.CycleError
	require.True(t, errors.As(err, &cycle), "got %v", err)
	assert.Nil(t, report)
	assert.Empty(t, be.Calls())
}

func TestRun_GateWaitsForAllPredecessors(t *testing.T) {
	for _, workers := range []int{1, 2, 3} {
		for _, slow := range []string{"service.a", "service.b"} {
			t.Run(slow+" slow", func(t *testing.T) {
				// --- Arrange ---
				ctx, _ := testutil.Context(t)
				be := testutil.NewRecordingBackend()
				be.Hold = func(_ context.Context, n string) {
					if n == slow {
						time.Sleep(10 * time.Millisecond)
					}
				}
				decls := []node.Declaration{
					testutil.Op("service.a", nil),
					testutil.Op("service.b", nil),
					testutil.Gate("settle", 5*time.Second, "service.a", "service.b"),
					testutil.Op("cloud_function.fn", nil, "gate.settle"),
				}
				obs := &eventLog{}
				exec := executor.New(be,
					executor.WithWorkers(workers),
					executor.WithClock(testutil.NewVirtualClock()),
					executor.WithObserver(obs),
				)

				// --- Act ---
				report, err := exec.Run(ctx, build(t, ctx, decls), nil)

				// --- Assert ---
				require.NoError(t, err)
				require.True(t, report.Succeeded())
				gateStart := obs.index("gate.settle", node.StateRunning)
				require.GreaterOrEqual(t, gateStart, 0)
				assert.Less(t, obs.index("service.a", node.StateComplete), gateStart)
				assert.Less(t, obs.index("service.b", node.StateComplete), gateStart)
				assert.Less(t, obs.index("gate.settle", node.StateComplete), obs.index("cloud_function.fn", node.StateRunning))
			})
		}
	}
}

func TestRun_Cancellation(t *testing.T) {
	// --- Arrange ---
	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	defer cancel()

	var inFlightErr error
	be := testutil.NewRecordingBackend()
	be.Hold = func(callCtx context.Context, n string) {
		if n == "service.slow" {
			cancel()
			inFlightErr = callCtx.Err()
		}
	}
	decls := []node.Declaration{
		testutil.Op("project.main", nil),
		testutil.Op("service.slow", nil, "project.main"),
		testutil.Op("cloud_function.fn", map[string]node.Input{"svc": testutil.Ref("service.slow", "id")}),
	}

	// --- Act ---
	report, err := executor.New(be, executor.WithWorkers(1)).Run(ctx, build(t, ctx, decls), nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.NoError(t, inFlightErr, "in-flight calls are not cancelled")
	assert.Equal(t, []string{"project.main", "service.slow"}, testutil.Strings(report.Complete()))
	assert.Equal(t, []string{"cloud_function.fn"}, testutil.Strings(report.NotStarted()))
	assert.Equal(t, []string{"project.main", "service.slow"}, be.Nodes(backend.OpCreate))
	assert.NoError(t, report.Err())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	cancel()
	be := testutil.NewRecordingBackend()

	report, err := executor.New(be).Run(ctx, build(t, base, testutil.TranslationChain(0)), nil)

	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Len(t, report.NotStarted(), 5)
	assert.Empty(t, be.Calls())
}

func TestRun_FailFast(t *testing.T) {
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	be.Fail["service.a"] = errors.New("denied")
	decls := []node.Declaration{
		testutil.Op("service.a", nil),
		testutil.Op("service.b", nil),
		testutil.Op("service.c", nil),
	}

	report, err := executor.New(be, executor.WithWorkers(1), executor.WithFailFast(true)).Run(ctx, build(t, ctx, decls), nil)

	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Equal(t, []string{"service.a"}, be.Nodes(backend.OpCreate))
	assert.Equal(t, []string{"service.b", "service.c"}, testutil.Strings(report.NotStarted()))
}

func TestRun_LocalKinds(t *testing.T) {
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	decls := []node.Declaration{
		{ID: nodeid.New(nodeid.TypeValue, "settings"), Kind: node.KindValue, Inputs: map[string]node.Input{
			"region": node.Literal("us-central1"),
		}},
		testutil.Op("cloud_function.fn", map[string]node.Input{"region": testutil.Ref("value.settings", "region")}),
		{ID: nodeid.New(nodeid.TypeComposite, "api"), Kind: node.KindComposite, Inputs: map[string]node.Input{
			"function_id": testutil.Ref("cloud_function.fn", "id"),
		}},
	}
	outputs := []node.Output{{Name: "api", Ref: node.Reference{Node: nodeid.New(nodeid.TypeComposite, "api")}}}

	report, err := executor.New(be).Run(ctx, build(t, ctx, decls), outputs)

	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.Equal(t, []string{"cloud_function.fn"}, be.Nodes(backend.OpCreate))
	fn, _ := be.Call(backend.OpCreate, "cloud_function.fn")
	assert.Equal(t, "us-central1", fn.Inputs["region"])
	assert.Equal(t, map[string]any{"function_id": "cloud_function/fn"}, report.Outputs["api"])
}

func TestRun_MissingOutputFailsConsumer(t *testing.T) {
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	decls := []node.Declaration{
		testutil.Op("cloud_function.fn", nil),
		testutil.Op("api_gateway.gw", map[string]node.Input{"url": testutil.Ref("cloud_function.fn", "url")}),
	}

	report, err := executor.New(be).Run(ctx, build(t, ctx, decls), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"api_gateway.gw"}, testutil.Strings(report.Failed()))
	var missing *node.MissingValueError
	assert.True(t, errors.As(report.Err(), &missing))
	assert.Equal(t, []string{"cloud_function.fn"}, be.Nodes(backend.OpCreate))
}

func TestRun_MetricsAndSpans(t *testing.T) {
	ctx, _ := testutil.Context(t)
	reg := prometheus.NewRegistry()
	metrics := executor.NewMetrics(reg)
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	be := testutil.NewRecordingBackend()
	be.Fail["service.translate"] = errors.New("boom")

	var duringCreate float64
	be.Hold = func(_ context.Context, n string) {
		if n == "project.main" {
			duringCreate = inFlight(reg)
		}
	}

	exec := executor.New(be,
		executor.WithClock(testutil.NewVirtualClock()),
		executor.WithMetrics(metrics),
		executor.WithTracer(tp.Tracer("test")),
	)
	_, err := exec.Run(ctx, build(t, ctx, testutil.TranslationChain(time.Second)), nil)
	require.NoError(t, err)

	assert.Equal(t, float64(1), duringCreate)
	assert.Equal(t, float64(0), inFlight(reg), "every started node is balanced")

	count, err := promtest.GatherAndCount(reg, "provisiongrid_nodes_finished_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "one series per kind/state pair seen")

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"provision project.main", "provision service.translate"}, names)
}

// inFlight reads the in-flight gauge, or -1 when it was not gathered.
func inFlight(reg *prometheus.Registry) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if f.GetName() == "provisiongrid_nodes_in_flight" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func TestRun_CancelledDuringGate(t *testing.T) {
	// --- Arrange ---
	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	defer cancel()

	be := testutil.NewRecordingBackend()
	reg := prometheus.NewRegistry()
	events := &eventLog{}
	obs := executor.ObserverFunc(func(ctx context.Context, ev executor.Event) {
		events.Observe(ctx, ev)
		if ev.Node.String() == "gate.wait" && ev.State == node.StateRunning {
			cancel()
		}
	})
	decls := []node.Declaration{
		testutil.Op("service.a", nil),
		testutil.Gate("wait", time.Hour, "service.a"),
		testutil.Op("cloud_function.fn", nil, "gate.wait"),
	}
	exec := executor.New(be, executor.WithObserver(obs), executor.WithMetrics(executor.NewMetrics(reg)))

	// --- Act ---
	report, err := exec.Run(ctx, build(t, ctx, decls), nil)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, []string{"service.a"}, testutil.Strings(report.Complete()))
	assert.Equal(t, []string{"gate.wait", "cloud_function.fn"}, testutil.Strings(report.NotStarted()))
	assert.Empty(t, report.Failed())
	assert.Empty(t, report.DependencyFailed())
	assert.NoError(t, report.Err())
	assert.Greater(t, events.index("gate.wait", node.StateReady), events.index("gate.wait", node.StateRunning))
	assert.Equal(t, float64(0), inFlight(reg))
	assert.Equal(t, []string{"service.a"}, be.Nodes(backend.OpCreate))
}

func TestRun_PanickingHandlerFailsNode(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	be.Hold = func(_ context.Context, n string) {
		if n == "service.a" {
			panic("handler bug")
		}
	}
	decls := []node.Declaration{
		testutil.Op("service.a", nil),
		testutil.Op("service.b", nil),
		testutil.Op("cloud_function.fn", nil, "service.a"),
	}

	// --- Act ---
	report, err := executor.New(be, executor.WithWorkers(2)).Run(ctx, build(t, ctx, decls), nil)

	// --- Assert ---
	require.Error(t, err)
	var panicked *executor.PanicError
	require.True(t, errors.As(err, &panicked), "got %v", err)
	assert.Equal(t, "service.a", panicked.Node.String())
	assert.NotEmpty(t, panicked.Stack)

	require.NotNil(t, report, "the report survives a panic")
	assert.Equal(t, []string{"service.a"}, testutil.Strings(report.Failed()))
	assert.Equal(t, []string{"cloud_function.fn"}, testutil.Strings(report.DependencyFailed()))
	assert.Equal(t, []string{"service.b"}, testutil.Strings(report.Complete()))
}

func TestRun_WithoutLoggerInContext(t *testing.T) {
	be := testutil.NewRecordingBackend()
	decls := []node.Declaration{testutil.Op("service.a", nil)}
	g, err := builder.Build(context.Background(), decls)
	require.NoError(t, err)

	report, err := executor.New(be).Run(context.Background(), g, nil)

	require.NoError(t, err)
	assert.True(t, report.Succeeded())
}

func TestTeardown_ReverseOrder(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	exec := executor.New(be, executor.WithClock(testutil.NewVirtualClock()))
	g := build(t, ctx, testutil.TranslationChain(time.Second))
	report, err := exec.Run(ctx, g, nil)
	require.NoError(t, err)
	live := liveResources(report)

	// --- Act ---
	td, err := exec.Teardown(ctx, build(t, ctx, testutil.TranslationChain(time.Second)), live)

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, td.Err())
	created := be.Nodes(backend.OpCreate)
	deleted := be.Nodes(backend.OpDelete)
	require.Len(t, deleted, len(created))
	for i := range created {
		assert.Equal(t, created[i], deleted[len(created)-1-i])
	}
	call, _ := be.Call(backend.OpDelete, "cloud_function.tts")
	assert.Equal(t, "cloud_function/tts", call.ID)
	assert.Equal(t, testutil.Strings(td.Deleted), deleted)
}

func TestTeardown_FailedDeleteRetainsDependencies(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	exec := executor.New(be, executor.WithClock(testutil.NewVirtualClock()))
	g := build(t, ctx, testutil.TranslationChain(time.Second))
	report, err := exec.Run(ctx, g, nil)
	require.NoError(t, err)
	be.Fail["cloud_function.tts"] = errors.New("still in use")

	// --- Act ---
	td, err := exec.Teardown(ctx, g, liveResources(report))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"api_gateway.gateway"}, testutil.Strings(td.Deleted))
	assert.Equal(t, []string{"cloud_function.tts", "service.translate", "project.main"}, testutil.Strings(td.Retained))
	assert.Equal(t, []string{"api_gateway.gateway", "cloud_function.tts"}, be.Nodes(backend.OpDelete))
	assert.ErrorContains(t, td.Err(), "still in use")
	assert.Contains(t, td.Failures, id("cloud_function.tts"))
}

func TestTeardown_SkipsResourcesNeverCreated(t *testing.T) {
	ctx, _ := testutil.Context(t)
	be := testutil.NewRecordingBackend()
	exec := executor.New(be)
	live := map[nodeid.ID]map[string]any{
		id("project.main"): {"id": "projects/p-1"},
	}

	td, err := exec.Teardown(ctx, build(t, ctx, testutil.TranslationChain(0)), live)

	require.NoError(t, err)
	assert.Equal(t, []string{"project.main"}, be.Nodes(backend.OpDelete))
	call, _ := be.Call(backend.OpDelete, "project.main")
	assert.Equal(t, "projects/p-1", call.ID)
	assert.Equal(t, []string{"project.main"}, testutil.Strings(td.Deleted))
}

func liveResources(r *executor.Report) map[nodeid.ID]map[string]any {
	live := make(map[nodeid.ID]map[string]any)
	for _, n := range r.Nodes {
		if n.Kind == node.KindOperation && n.State == node.StateComplete {
			live[n.ID] = n.Outputs
		}
	}
	return live
}
