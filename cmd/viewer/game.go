package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/ecs/debugui"
	debugui_ebiten "github.com/plus3/softbody/ecs/debugui/ebiten"
	"github.com/plus3/softbody/engine"
	"github.com/plus3/softbody/gfx/soft"
)

// Game implements ebiten.Game. Update runs one head system pass inside an
// ImGui frame; Draw blits the software framebuffer under the UI.
type Game struct {
	head         *engine.HeadSystem
	device       *soft.Device
	imguiBackend *ecs.Singleton[debugui_ebiten.ImguiBackend]
	inputState   *ecs.Singleton[debugui.ImguiInputState]
	frame        *ebiten.Image
}

func newGame(head *engine.HeadSystem, device *soft.Device) *Game {
	storage := head.Storage()
	return &Game{
		head:         head,
		device:       device,
		imguiBackend: ecs.NewSingleton[debugui_ebiten.ImguiBackend](storage),
		inputState:   ecs.NewSingleton[debugui.ImguiInputState](storage),
	}
}

func (g *Game) Update() error {
	typing := g.inputState.Get().WantCaptureKeyboard
	if !typing && (ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyEscape)) {
		g.head.Push(components.InputEvent{Kind: components.QuitEvent})
	}

	// flush failures are logged by the head system and the next frame runs
	g.imguiBackend.Get().BeginFrame()
	_ = g.head.Run()
	g.imguiBackend.Get().EndFrame()

	if g.head.Quit() {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if img := g.device.Snapshot(); img != nil {
		bounds := img.Bounds()
		if g.frame == nil || g.frame.Bounds() != bounds {
			g.frame = ebiten.NewImage(bounds.Dx(), bounds.Dy())
		}
		// framebuffer alpha is either 0 or 255, so straight and
		// premultiplied pixels are the same
		g.frame.WritePixels(img.Pix)

		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(
			float64(screen.Bounds().Dx())/float64(bounds.Dx()),
			float64(screen.Bounds().Dy())/float64(bounds.Dy()),
		)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(g.frame, op)
	}

	g.imguiBackend.Get().Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.imguiBackend.Get().Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
