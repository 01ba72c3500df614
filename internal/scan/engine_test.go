package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/relink/internal/document"
	"github.com/standardbeagle/relink/pkg/events"
)

var red = document.Color{R: 1, A: 1}

func rawRect(t *testing.T, id, name string, c document.Color) *document.Rectangle {
	t.Helper()
	r := document.NewRectangle(id, name)
	require.NoError(t, r.SetFills([]document.Paint{document.SolidPaint(c)}))
	return r
}

func TestScanWholePageFillScenario(t *testing.T) {
	m := newHost()
	frame := document.NewFrame("1:1", "Card")
	m.Attach(nil, frame)
	m.Attach(frame,
		rawRect(t, "1:2", "BG", red),
		rawRect(t, "1:3", "Accent", red),
		rawRect(t, "1:4", "Divider", red),
	)

	m.VariableStore().Add(&document.Variable{ID: "V:red", Name: "color/red", Type: document.VariableColor})
	bound := rawRect(t, "1:5", "Bound", red)
	bound.Bindings().SetPaint(document.FieldFills, 0, "V:red")
	m.Attach(frame, bound)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryFill}, nil)
	require.NoError(t, err)

	assert.Equal(t, CategoryFill, res.Category)
	assert.Equal(t, 3, res.Total, "the bound rect is not a finding")
	require.Len(t, res.Groups, 1, "three identical reds collapse into one group")

	g := res.Groups[0]
	assert.Equal(t, "fill:RAW:255:0:0:1", g.Key)
	assert.Equal(t, []string{"1:2", "1:3", "1:4"}, memberIDs(g))
	for _, f := range g.Findings {
		assert.Equal(t, BindingRaw, f.Binding)
		assert.Equal(t, "fills[0]", f.Property)
		assert.Equal(t, []string{"Page 1", "Card"}, f.NodePath)
		assert.True(t, f.Visible)
	}
}

func TestScanSkipsGradientPaints(t *testing.T) {
	m := newHost()
	r := document.NewRectangle("1:1", "Hero")
	require.NoError(t, r.SetFills([]document.Paint{{Kind: document.PaintGradient, Visible: true, Opacity: 1}}))
	m.Attach(nil, r)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryFill}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Total, "gradients are never reported as raw colors")
	assert.Empty(t, res.Groups)
}

func TestScanStrokes(t *testing.T) {
	m := newHost()
	r := document.NewRectangle("1:1", "Outline")
	require.NoError(t, r.SetStrokes([]document.Paint{document.SolidPaint(document.Color{B: 1, A: 1})}))
	m.Attach(nil, r)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryStroke}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "strokes[0]", res.Groups[0].Findings[0].Property)
}

func TestScanTypography(t *testing.T) {
	inter := document.FontName{Family: "Inter", Style: "Regular"}

	t.Run("uniform runs", func(t *testing.T) {
		m := newHost()
		txt := document.NewText("1:1", "Label", document.Run("Checkout", inter, 16))
		m.Attach(nil, txt)

		e := NewEngine(m, nil, nil, Options{})
		res, err := e.Scan(context.Background(), Request{Category: CategoryTypography}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Total)

		f := res.Groups[0].Findings[0]
		assert.Equal(t, "textStyleId", f.Property)
		v := f.Value.(TypographyValue)
		assert.Equal(t, "Inter", v.Family)
		assert.Equal(t, "Regular", v.Weight)
		assert.Equal(t, "16", v.Size)
		assert.Equal(t, "AUTO", v.LineHeight)
		assert.Equal(t, "Checkout", v.Sample)
	})

	t.Run("mixed size is reported verbatim", func(t *testing.T) {
		m := newHost()
		txt := document.NewText("1:1", "Ransom",
			document.Run("big ", inter, 24),
			document.Run("small", inter, 12),
		)
		m.Attach(nil, txt)

		e := NewEngine(m, nil, nil, Options{})
		res, err := e.Scan(context.Background(), Request{Category: CategoryTypography}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Total)

		v := res.Groups[0].Findings[0].Value.(TypographyValue)
		assert.Equal(t, "Inter", v.Family, "family agrees across runs")
		assert.Equal(t, Mixed, v.Size, "sizes disagree")
		assert.Equal(t, "big small", v.Sample)
	})

	t.Run("text style suppresses the finding", func(t *testing.T) {
		m := newHost()
		txt := document.NewText("1:1", "Styled", document.Run("ok", inter, 16))
		require.NoError(t, txt.SetTextStyleID("S:body"))
		m.Attach(nil, txt)

		e := NewEngine(m, nil, nil, Options{})
		res, err := e.Scan(context.Background(), Request{Category: CategoryTypography}, nil)
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})

	t.Run("long content is sampled", func(t *testing.T) {
		long := ""
		for i := 0; i < 20; i++ {
			long += "lorem "
		}
		m := newHost()
		m.Attach(nil, document.NewText("1:1", "Body", document.Run(long, inter, 14)))

		e := NewEngine(m, nil, nil, Options{})
		res, err := e.Scan(context.Background(), Request{Category: CategoryTypography}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, res.Total)
		v := res.Groups[0].Findings[0].Value.(TypographyValue)
		assert.Len(t, v.Sample, sampleLimit)
	})
}

func TestScanVerticalGap(t *testing.T) {
	m := newHost()
	stack := document.NewFrame("1:1", "Stack")
	stack.SetLayout(document.AutoLayout{Mode: document.LayoutVertical, ItemSpacing: 12})
	row := document.NewFrame("1:2", "Row")
	row.SetLayout(document.AutoLayout{Mode: document.LayoutHorizontal, ItemSpacing: 12})
	tight := document.NewFrame("1:3", "Tight")
	tight.SetLayout(document.AutoLayout{Mode: document.LayoutVertical})
	m.Attach(nil, stack, row, tight)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryVerticalGap}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "horizontal stacks and zero gaps are not findings")

	f := res.Groups[0].Findings[0]
	assert.Equal(t, "1:1", f.NodeID)
	assert.Equal(t, "itemSpacing", f.Property)
	assert.Equal(t, ScalarValue{Value: 12, Display: "12"}, f.Value)
}

func TestScanPartialPadding(t *testing.T) {
	m := newHost()
	f := document.NewFrame("1:1", "Panel")
	f.SetLayout(document.AutoLayout{Mode: document.LayoutVertical, PaddingBottom: 16})
	m.Attach(nil, f)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryVerticalPadding}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "only the nonzero side is a finding")
	assert.Equal(t, "paddingBottom", res.Groups[0].Findings[0].Property)

	res, err = e.Scan(context.Background(), Request{Category: CategoryHorizontalPadding}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestScanCornerRadius(t *testing.T) {
	m := newHost()
	uniform := document.NewRectangle("1:1", "Chip")
	require.NoError(t, uniform.SetCornerRadius(8))
	lopsided := document.NewRectangle("1:2", "Tab")
	require.NoError(t, lopsided.SetCorner(document.CornerTopLeft, 6))
	m.Attach(nil, uniform, lopsided)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryCornerRadius}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)

	props := map[string]string{}
	for _, g := range res.Groups {
		f := g.Findings[0]
		props[f.NodeID] = f.Property
	}
	assert.Equal(t, "cornerRadius", props["1:1"], "uniform radius reports once")
	assert.Equal(t, "topLeftRadius", props["1:2"], "diverged radii report per corner")
}

func TestScanOpacity(t *testing.T) {
	m := newHost()
	dim := document.NewRectangle("1:1", "Dim")
	require.NoError(t, dim.SetOpacity(0.45))
	solid := document.NewRectangle("1:2", "Solid")
	m.VariableStore().Add(&document.Variable{ID: "V:o", Name: "opacity/hint", Type: document.VariableNumber})
	boundDim := document.NewRectangle("1:3", "BoundDim")
	require.NoError(t, boundDim.SetOpacity(0.3))
	boundDim.Bindings().Set(document.FieldOpacity, "V:o")
	m.Attach(nil, dim, solid, boundDim)

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryOpacity}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "full opacity and bound opacity are not findings")

	f := res.Groups[0].Findings[0]
	assert.Equal(t, "1:1", f.NodeID)
	assert.Equal(t, ScalarValue{Value: 0.45, Display: "45%"}, f.Value)
}

func TestScanLibraryAudits(t *testing.T) {
	m := newHost()
	m.VariableStore().SetImporter(&recordingImporter{})
	m.VariableStore().Add(&document.Variable{
		ID: "V:local", Name: "color/surface", Type: document.VariableColor,
	})
	m.VariableStore().Add(&document.Variable{
		ID: "V:team", Name: "color/bg", Key: "K1", Type: document.VariableColor,
		Remote: true, LibraryName: "Tokens",
	})

	localRect := document.NewRectangle("1:1", "Local")
	localRect.Bindings().SetPaint(document.FieldFills, 0, "V:local")
	teamRect := document.NewRectangle("1:2", "Team")
	teamRect.Bindings().SetPaint(document.FieldFills, 0, "V:team")
	brokenRect := document.NewRectangle("1:3", "Broken")
	brokenRect.Bindings().Set(document.FieldCornerRadius, "V:gone")
	m.Attach(nil, localRect, teamRect, brokenRect)

	e := NewEngine(m, nil, nil, Options{})

	res, err := e.Scan(context.Background(), Request{Category: CategoryTeamLibrary}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	f := res.Groups[0].Findings[0]
	assert.Equal(t, "1:2", f.NodeID)
	assert.Equal(t, "fills[0]", f.Property)
	assert.Equal(t, BindingTeamActive, f.Binding)
	ref := f.Value.(VariableRefValue)
	assert.Equal(t, "V:team", ref.VariableID)
	assert.Equal(t, "Tokens", ref.LibraryName)

	res, err = e.Scan(context.Background(), Request{Category: CategoryLocalLibrary}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "1:1", res.Groups[0].Findings[0].NodeID)

	res, err = e.Scan(context.Background(), Request{Category: CategoryMissingLibrary}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	f = res.Groups[0].Findings[0]
	assert.Equal(t, "1:3", f.NodeID)
	assert.Equal(t, "cornerRadius", f.Property)
	assert.Equal(t, BindingMissing, f.Binding)
}

func TestScanExcludesInstanceInternals(t *testing.T) {
	m := newHost()
	inst := document.NewInstance("1:1", "Button")
	require.NoError(t, inst.SetFills([]document.Paint{document.SolidPaint(red)}))
	m.Attach(nil, inst)
	m.Attach(inst, rawRect(t, "1:2", "Inner", red))

	e := NewEngine(m, nil, nil, Options{})
	res, err := e.Scan(context.Background(), Request{Category: CategoryFill}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total, "the instance itself is scanned, its internals are not")
	assert.Equal(t, "1:1", res.Groups[0].Findings[0].NodeID)
}

func TestScanUnknownCategory(t *testing.T) {
	e := NewEngine(newHost(), nil, nil, Options{})
	_, err := e.Scan(context.Background(), Request{Category: "shadow"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scan category")
}

func TestScanRejectsConcurrentScan(t *testing.T) {
	m := newHost()
	m.Attach(nil, rawRect(t, "1:1", "A", red), rawRect(t, "1:2", "B", red))

	e := NewEngine(m, nil, nil, Options{})
	var nested error
	var once sync.Once
	res, err := e.Scan(context.Background(), Request{Category: CategoryFill}, func(int) {
		once.Do(func() {
			_, nested = e.Scan(context.Background(), Request{Category: CategoryOpacity}, nil)
		})
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.ErrorIs(t, nested, ErrScanActive)
	assert.False(t, e.Active(), "finished scan releases the slot")
}

func TestScanStopDuringProgress(t *testing.T) {
	m := newHost()
	for i := 0; i < 5; i++ {
		m.Attach(nil, rawRect(t, nodeID(i), "R", red))
	}

	e := NewEngine(m, nil, nil, Options{})
	var stopped bool
	var once sync.Once
	res, err := e.Scan(context.Background(), Request{Category: CategoryFill}, func(int) {
		once.Do(func() { stopped = e.Stop() })
	})

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, res, "partial findings are never reported")
	assert.True(t, stopped)
	assert.False(t, e.Active())

	res, err = e.Scan(context.Background(), Request{Category: CategoryFill}, nil)
	require.NoError(t, err, "a new scan starts cleanly after cancellation")
	assert.Equal(t, 5, res.Total)
}

func TestStopWithoutActiveScan(t *testing.T) {
	e := NewEngine(newHost(), nil, nil, Options{})
	assert.False(t, e.Stop())
}

func TestPauseGating(t *testing.T) {
	m := newHost()
	m.Attach(nil, rawRect(t, "1:1", "A", red), rawRect(t, "1:2", "B", red))

	e := NewEngine(m, nil, nil, Options{})
	require.Error(t, e.Pause(), "nothing to pause when idle")
	require.Error(t, e.Resume(), "nothing to resume when idle")

	var pauseErr error
	var once sync.Once
	_, err := e.Scan(context.Background(), Request{Category: CategoryFill}, func(int) {
		once.Do(func() { pauseErr = e.Pause() })
	})
	require.NoError(t, err)
	require.Error(t, pauseErr)
	assert.Contains(t, pauseErr.Error(), "does not support pausing")
}

func TestPauseAndResumeLibraryScan(t *testing.T) {
	m := newHost()
	m.VariableStore().Add(&document.Variable{ID: "V:local", Name: "color/x", Type: document.VariableColor})
	const count = 40
	for i := 0; i < count; i++ {
		r := document.NewRectangle(nodeID(i), "R")
		r.Bindings().SetPaint(document.FieldFills, 0, "V:local")
		m.Attach(nil, r)
	}

	e := NewEngine(m, nil, nil, Options{})
	paused := make(chan error, 1)
	var once sync.Once
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Scan(context.Background(), Request{Category: CategoryLocalLibrary}, func(int) {
			once.Do(func() { paused <- e.Pause() })
		})
		done <- outcome{res: res, err: err}
	}()

	require.NoError(t, <-paused)
	select {
	case out := <-done:
		t.Fatalf("scan finished while paused: %+v, %v", out.res, out.err)
	case <-time.After(120 * time.Millisecond):
	}
	assert.True(t, e.Active())
	assert.Greater(t, e.Progress(), 0.0)

	require.NoError(t, e.Resume())
	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.res)
	assert.Equal(t, count, out.res.Total)
	assert.False(t, e.Active())
}

func TestScanProgressReachesCompletion(t *testing.T) {
	m := newHost()
	m.Attach(nil, rawRect(t, "1:1", "A", red), rawRect(t, "1:2", "B", red), rawRect(t, "1:3", "C", red))

	e := NewEngine(m, nil, nil, Options{})
	var sent []int
	_, err := e.Scan(context.Background(), Request{Category: CategoryFill}, func(p int) {
		sent = append(sent, p)
	})
	require.NoError(t, err)
	require.NotEmpty(t, sent)
	assert.Equal(t, 100, sent[len(sent)-1])
	assert.Zero(t, e.Progress(), "idle engine reports zero progress")
}

func TestScanPublishesLifecycleEvents(t *testing.T) {
	m := newHost()
	m.Attach(nil, rawRect(t, "1:1", "A", red))

	bus := events.NewBusWithConfig(events.WorkerPoolConfig{WorkerCount: 1, BufferSize: 16})
	defer bus.Shutdown()

	var mu sync.Mutex
	var seen []events.EventType
	record := func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	}
	bus.Subscribe(events.ScanStarted, record)
	bus.Subscribe(events.ScanCompleted, record)

	e := NewEngine(m, bus, nil, Options{})
	_, err := e.Scan(context.Background(), Request{Category: CategoryFill}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.EventType{events.ScanStarted, events.ScanCompleted}, seen)
}
