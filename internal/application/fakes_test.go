package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"card-grader/internal/domain/entity"
)

// fakePeripheral отвечает на команды как контроллер подсветки.
type fakePeripheral struct {
	mu          sync.Mutex
	onAck       func(entity.LightingAck)
	onDisc      func(error)
	connectErr  error
	sendErr     error
	sent        []entity.LightingCommand
	connects    int
	disconnects int
	lit         entity.LightingCommand

	silentOn   entity.LightingCommand // команда без подтверждения
	wrongAckOn entity.LightingCommand // команда с чужим подтверждением
	dropOn     entity.LightingCommand // команда, на которой связь рвётся
}

func newFakePeripheral() *fakePeripheral {
	return &fakePeripheral{lit: entity.CommandNone}
}

func (p *fakePeripheral) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connects++
	return p.connectErr
}

func (p *fakePeripheral) Send(ctx context.Context, cmd entity.LightingCommand) error {
	p.mu.Lock()
	p.sent = append(p.sent, cmd)
	if p.sendErr != nil {
		p.mu.Unlock()
		return p.sendErr
	}
	p.lit = cmd
	onAck, onDisc := p.onAck, p.onDisc
	silent := cmd == p.silentOn
	wrong := cmd == p.wrongAckOn
	drop := cmd == p.dropOn
	p.mu.Unlock()

	go func() {
		switch {
		case drop:
			onDisc(errors.New("link lost"))
		case silent:
		case wrong:
			if cmd.ExpectedAck() == entity.AckLedOn {
				onAck(entity.AckLedOff)
			} else {
				onAck(entity.AckLedOn)
			}
		default:
			onAck(cmd.ExpectedAck())
		}
	}()
	return nil
}

func (p *fakePeripheral) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects++
	p.lit = entity.CommandNone
	return nil
}

func (p *fakePeripheral) OnNotification(handler func(entity.LightingAck)) {
	p.mu.Lock()
	p.onAck = handler
	p.mu.Unlock()
}

func (p *fakePeripheral) OnDisconnect(handler func(err error)) {
	p.mu.Lock()
	p.onDisc = handler
	p.mu.Unlock()
}

func (p *fakePeripheral) Lit() entity.LightingCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lit
}

func (p *fakePeripheral) Sent() []entity.LightingCommand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.LightingCommand(nil), p.sent...)
}

func (p *fakePeripheral) Disconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

// fakeCamera снимает однотонный кадр, яркость которого зависит от включённого света.
type fakeCamera struct {
	lights  *fakePeripheral
	width   int
	height  int
	allLit  color.RGBA
	levels  map[entity.LightingCommand]uint8
	block   chan struct{} // пока не закрыт, Capture висит и игнорирует контекст
	entered chan struct{}
	calls   int
	mu      sync.Mutex
}

func newFakeCamera(lights *fakePeripheral, w, h int) *fakeCamera {
	return &fakeCamera{
		lights: lights,
		width:  w,
		height: h,
		allLit: color.RGBA{R: 200, G: 10, B: 20, A: 255},
		levels: map[entity.LightingCommand]uint8{
			entity.CommandUpOn:       200,
			entity.CommandRightOn:    150,
			entity.CommandDownOn:     100,
			entity.CommandLeftOn:     50,
			entity.CommandUpPulse:    200,
			entity.CommandRightPulse: 150,
			entity.CommandDownPulse:  100,
			entity.CommandLeftPulse:  50,
		},
	}
}

func (c *fakeCamera) Capture(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	c.calls++
	block, entered := c.block, c.entered
	c.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}

	lit := c.lights.Lit()
	if lit == entity.CommandToggleAllOn {
		return uniformRGBA(c.width, c.height, c.allLit), nil
	}
	level, ok := c.levels[lit]
	if !ok {
		return nil, errors.New("photo taken with lights off: " + lit.String())
	}
	return uniformRGBA(c.width, c.height, color.RGBA{R: level, G: level, B: level, A: 255}), nil
}

func uniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type stubModel struct {
	result *entity.DetectionResult
	err    error
}

func (m *stubModel) Detect(ctx context.Context, input *entity.InputTensor) (*entity.DetectionResult, error) {
	return m.result, m.err
}

func fullMask(w, h int, score float32) *entity.DetectionResult {
	masks := make([]float32, w*h)
	for i := range masks {
		masks[i] = 1
	}
	return &entity.DetectionResult{
		Boxes:  []float32{0, 0, float32(w), float32(h)},
		Labels: []int64{2},
		Scores: []float32{score},
		Masks:  masks,
		Height: h,
		Width:  w,
	}
}
