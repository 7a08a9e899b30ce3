// Package ui is the interactive light-field dataset viewer.
package ui

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/linusmossberg/light-field-renderer/internal/config"
	"github.com/linusmossberg/light-field-renderer/internal/dataset"
)

// Run opens the viewer on the dataset in dir. cfg seeds the sliders; nil means
// the config.cfg next to the dataset (or the defaults).
func Run(dir string, cfg *config.Viewer, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg == nil {
		var err error
		if cfg, err = config.LoadViewer(dir); err != nil {
			return err
		}
	}
	arr, err := dataset.Load(dir, dataset.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Infow("viewer starting", "dir", dir, "views", len(arr.Views), "light_slab", arr.LightSlab)

	st := newState(arr, cfg)

	a := app.New()
	w := a.NewWindow("Light Field Viewer")

	first := arr.Views[0].Size
	placeholder := image.NewRGBA(image.Rect(0, 0, first.X, first.Y))
	for i := 3; i < len(placeholder.Pix); i += 4 {
		placeholder.Pix[i] = 255
	}
	imgCanvas := canvas.NewImageFromImage(placeholder)
	imgCanvas.FillMode = canvas.ImageFillContain

	maxDisplayW, maxDisplayH := float32(1024), float32(768)
	aspect := float32(first.X) / float32(first.Y)
	displayW, displayH := maxDisplayW, maxDisplayW/aspect
	if displayH > maxDisplayH {
		displayH = maxDisplayH
		displayW = displayH * aspect
	}
	imgCanvas.SetMinSize(fyne.NewSize(displayW, displayH))

	status := widget.NewLabel("Idle")
	timing := widget.NewLabel("")

	var (
		mu          sync.Mutex
		cancel      context.CancelFunc
		renderTimer *time.Timer
		current     image.Image
	)

	doRender := func() {
		mu.Lock()
		if cancel != nil {
			cancel()
		}
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		snapshot := *st
		viewerCfg := *st.cfg
		snapshot.cfg = &viewerCfg
		mu.Unlock()

		go func() {
			start := time.Now()
			status.SetText("Rendering...")
			img, label, err := snapshot.frame(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				logger.Warnw("render failed", "error", err)
				status.SetText(fmt.Sprintf("Error: %v", err))
				return
			}
			mu.Lock()
			current = img
			mu.Unlock()
			imgCanvas.Image = img
			imgCanvas.Refresh()
			status.SetText(label)
			timing.SetText(fmt.Sprintf("%d ms", time.Since(start).Milliseconds()))
		}()
	}

	// Slider drags fire many events; refocus renders are expensive.
	startRender := func() {
		mu.Lock()
		if renderTimer != nil {
			renderTimer.Stop()
		}
		delay := 10 * time.Millisecond
		if st.mode == ModeRefocus {
			delay = 150 * time.Millisecond
		}
		renderTimer = time.AfterFunc(delay, doRender)
		mu.Unlock()
	}

	lo, hi := arr.Bounds()
	uSlider := widget.NewSlider(lo.X, hi.X)
	vSlider := widget.NewSlider(lo.Y, hi.Y)
	for _, s := range []*widget.Slider{uSlider, vSlider} {
		s.Step = st.step() / 10
	}
	uSlider.Value, vSlider.Value = st.uv.X, st.uv.Y
	setUV := func() {
		mu.Lock()
		st.setUV(r2.Vec{X: uSlider.Value, Y: vSlider.Value})
		mu.Unlock()
		startRender()
	}
	uSlider.OnChanged = func(float64) { setUV() }
	vSlider.OnChanged = func(float64) { setUV() }

	propertySlider := func(p *config.Property) *widget.Slider {
		lo, hi := p.DisplayBounds()
		s := widget.NewSlider(lo, hi)
		s.Step = (hi - lo) / 200
		s.Value = p.Display()
		s.OnChanged = func(v float64) {
			mu.Lock()
			p.SetDisplay(v)
			mu.Unlock()
			startRender()
		}
		return s
	}
	focusSlider := propertySlider(&cfg.FocusDistance)
	fstopSlider := propertySlider(&cfg.FStop)
	focalSlider := propertySlider(&cfg.FocalLength)
	sensorSlider := propertySlider(&cfg.SensorWidth)
	zSlider := propertySlider(&cfg.Z)
	stWidthSlider := propertySlider(&cfg.STWidth)
	stDistSlider := propertySlider(&cfg.STDistance)

	breathing := widget.NewCheck("Focus breathing", func(on bool) {
		mu.Lock()
		st.breathing = on
		mu.Unlock()
		startRender()
	})

	afX, afY := widget.NewSlider(0, 1), widget.NewSlider(0, 1)
	for _, s := range []*widget.Slider{afX, afY} {
		s.Step = 0.01
		s.Value = 0.5
	}
	setAFPoint := func() {
		mu.Lock()
		st.afPoint = r2.Vec{X: afX.Value, Y: afY.Value}
		mu.Unlock()
	}
	afX.OnChanged = func(float64) { setAFPoint() }
	afY.OnChanged = func(float64) { setAFPoint() }

	runAutofocus := func() {
		mu.Lock()
		snapshot := *st
		viewerCfg := *st.cfg
		snapshot.cfg = &viewerCfg
		mu.Unlock()
		go func() {
			d, err := snapshot.autofocus(context.Background())
			if err != nil {
				logger.Warnw("autofocus failed", "error", err)
				status.SetText(fmt.Sprintf("Autofocus: %v", err))
				return
			}
			logger.Debugw("autofocus", "distance", d, "point", snapshot.afPoint)
			// The slider writes the property and schedules a render.
			focusSlider.SetValue(d)
		}()
	}
	autofocusBtn := widget.NewButton("Autofocus", runAutofocus)

	refocusBox := container.NewVBox(
		widget.NewLabel("Refocus"),
		container.NewGridWithColumns(2,
			widget.NewLabel("Focus distance (m)"), focusSlider,
			widget.NewLabel("f-stop"), fstopSlider,
			widget.NewLabel("Focal length (mm)"), focalSlider,
			widget.NewLabel("Sensor width (mm)"), sensorSlider,
			widget.NewLabel("Eye height (m)"), zSlider,
		),
		breathing,
		container.NewGridWithColumns(2,
			widget.NewLabel("AF point x"), afX,
			widget.NewLabel("AF point y"), afY,
		),
		autofocusBtn,
	)
	if arr.LightSlab {
		refocusBox.Add(container.NewGridWithColumns(2,
			widget.NewLabel("ST width (m)"), stWidthSlider,
			widget.NewLabel("ST distance (m)"), stDistSlider,
		))
	}
	refocusBox.Hide()

	modeSelect := widget.NewRadioGroup(modeNames, func(selected string) {
		mu.Lock()
		for i, name := range modeNames {
			if name == selected {
				st.mode = Mode(i)
			}
		}
		refocus := st.mode == ModeRefocus
		mu.Unlock()
		if refocus {
			refocusBox.Show()
		} else {
			refocusBox.Hide()
		}
		startRender()
	})
	modeSelect.Horizontal = true
	modeSelect.SetSelected(ModeClosest.String())

	outputPath := widget.NewEntry()
	outputPath.SetText("view.png")
	saveImageBtn := widget.NewButton("Save image", func() {
		path := outputPath.Text
		if path == "" {
			path = "view.png"
		}
		mu.Lock()
		img := current
		mu.Unlock()
		if img == nil {
			status.SetText("Nothing rendered yet")
			return
		}
		go func() {
			if err := imaging.Save(img, path); err != nil {
				status.SetText(fmt.Sprintf("Save image error: %v", err))
				return
			}
			status.SetText(fmt.Sprintf("Image saved to %s", path))
		}()
	})

	kind := "perspective"
	if arr.LightSlab {
		kind = "light slab"
	}
	controls := container.NewVBox(
		widget.NewLabel(fmt.Sprintf("%s: %d views, %s", dir, len(arr.Views), kind)),
		modeSelect,
		container.NewGridWithColumns(2,
			widget.NewLabel("u (m)"), uSlider,
			widget.NewLabel("v (m)"), vSlider,
		),
		refocusBox,
		container.NewGridWithColumns(2,
			widget.NewLabel("Image path"), outputPath,
		),
		saveImageBtn,
		status,
		timing,
	)

	content := container.NewHSplit(
		container.NewVScroll(controls),
		container.NewStack(imgCanvas),
	)
	content.SetOffset(0.3)

	w.SetContent(content)
	w.Resize(fyne.NewSize(1280, 800))

	// Arrow keys step through the array; the sliders follow. F autofocuses.
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		var du, dv float64
		switch ev.Name {
		case fyne.KeyF:
			mu.Lock()
			refocus := st.mode == ModeRefocus
			mu.Unlock()
			if refocus {
				runAutofocus()
			}
			return
		case fyne.KeyLeft, fyne.KeyA:
			du = -1
		case fyne.KeyRight, fyne.KeyD:
			du = 1
		case fyne.KeyUp, fyne.KeyW:
			dv = 1
		case fyne.KeyDown, fyne.KeyS:
			dv = -1
		default:
			return
		}
		mu.Lock()
		st.move(du, dv)
		uv := st.uv
		mu.Unlock()
		uSlider.SetValue(uv.X)
		vSlider.SetValue(uv.Y)
	})

	go startRender()
	w.ShowAndRun()

	mu.Lock()
	if cancel != nil {
		cancel()
	}
	mu.Unlock()
	return nil
}
