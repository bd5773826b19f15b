package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
	"card-grader/internal/infrastructure/vision"
)

// CaptureConfig задаёт тайминги съёмки.
type CaptureConfig struct {
	AckTimeout     time.Duration
	CaptureTimeout time.Duration
	SettleDelay    time.Duration
	PulseCommands  bool
	Rotate         bool
	QualityGate    *vision.QualityGate
}

// DefaultCaptureConfig возвращает тайминги по умолчанию.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		AckTimeout:     5 * time.Second,
		CaptureTimeout: 3 * time.Second,
		SettleDelay:    300 * time.Millisecond,
	}
}

// CaptureOrchestrator ведёт контроллер подсветки по фиксированной
// последовательности и снимает пять кадров. Одновременно в полёте не больше
// одной команды; любой сбой прерывает прогон и разрывает соединение.
type CaptureOrchestrator struct {
	peripheral port.LightingPeripheral
	camera     port.Camera
	cfg        CaptureConfig
	logger     *slog.Logger

	mu        sync.Mutex
	state     entity.PipelineState
	running   bool
	listeners []func(entity.PipelineState)

	acks ackSlot
}

// NewCaptureOrchestrator создаёт оркестратор и подписывается на события контроллера.
func NewCaptureOrchestrator(peripheral port.LightingPeripheral, camera port.Camera, cfg CaptureConfig, logger *slog.Logger) *CaptureOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &CaptureOrchestrator{
		peripheral: peripheral,
		camera:     camera,
		cfg:        cfg,
		logger:     logger,
		state:      entity.StateDisconnected,
	}
	peripheral.OnNotification(o.handleAck)
	peripheral.OnDisconnect(o.handleDisconnect)
	return o
}

// State возвращает текущее состояние сценария.
func (o *CaptureOrchestrator) State() entity.PipelineState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnStateChange регистрирует обработчик смены состояния.
func (o *CaptureOrchestrator) OnStateChange(fn func(entity.PipelineState)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// setState меняет состояние. Переходы в Disconnected и Failed разрешены всегда.
func (o *CaptureOrchestrator) setState(to entity.PipelineState) bool {
	o.mu.Lock()
	from := o.state
	if from == to {
		o.mu.Unlock()
		return true
	}
	forced := to == entity.StateDisconnected || to == entity.StateFailed
	if !forced && !from.CanTransition(to) {
		o.mu.Unlock()
		o.logger.Warn("invalid pipeline transition ignored", "from", from, "to", to)
		return false
	}
	o.state = to
	listeners := append([]func(entity.PipelineState){}, o.listeners...)
	o.mu.Unlock()

	o.logger.Info("pipeline state changed", "from", from, "to", to)
	for _, fn := range listeners {
		fn(to)
	}
	return true
}

// Connect ищет контроллер и подключается к нему.
func (o *CaptureOrchestrator) Connect(ctx context.Context) error {
	o.mu.Lock()
	state, running := o.state, o.running
	o.mu.Unlock()

	if running {
		return entity.ErrBusy
	}
	if state == entity.StateConnected {
		return nil
	}
	if !state.NeedsReconnect() {
		return &entity.DeviceError{Op: "connect", Err: fmt.Errorf("cannot connect while %s", state)}
	}

	o.setState(entity.StateScanning)
	if err := o.peripheral.Connect(ctx); err != nil {
		o.setState(entity.StateDisconnected)
		o.logger.Warn("lighting device connect failed", "err", err)
		return &entity.DeviceError{Op: "connect", Err: err}
	}
	o.setState(entity.StateConnected)
	return nil
}

// Disconnect разрывает соединение с контроллером.
func (o *CaptureOrchestrator) Disconnect(ctx context.Context) error {
	o.acks.fail(entity.ErrDisconnected)
	err := o.peripheral.Disconnect(ctx)
	o.setState(entity.StateDisconnected)
	if err != nil {
		return &entity.DeviceError{Op: "disconnect", Err: err}
	}
	return nil
}

// FinishProcessing возвращает сценарий к готовности после обработки кадров.
func (o *CaptureOrchestrator) FinishProcessing() {
	if o.State() == entity.StateProcessingImages {
		o.setState(entity.StateConnected)
	}
}

// Capture выполняет полную последовательность съёмки. При сбое состояние
// переходит в Failed, соединение разрывается, частичный набор отбрасывается.
func (o *CaptureOrchestrator) Capture(ctx context.Context) (*entity.DirectionalImageSet, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, entity.ErrBusy
	}
	if o.state != entity.StateConnected {
		state := o.state
		o.mu.Unlock()
		return nil, &entity.DeviceError{Op: "capture", Err: fmt.Errorf("%w (state %s)", entity.ErrNotConnected, state)}
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if !o.setState(entity.StateCapturing) {
		return nil, &entity.DeviceError{Op: "capture", Err: entity.ErrNotConnected}
	}
	set, err := o.runSequence(ctx)
	if err != nil {
		o.abort(err)
		return nil, err
	}
	if !o.setState(entity.StateProcessingImages) {
		// контроллер отвалился после последнего подтверждения
		err := &entity.CaptureError{Step: "finish", Err: entity.ErrDisconnected}
		o.abort(err)
		return nil, err
	}
	return set, nil
}

func (o *CaptureOrchestrator) abort(cause error) {
	o.logger.Error("capture aborted, disconnecting", "err", cause)
	o.acks.disarm()

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.AckTimeout)
	defer cancel()
	if err := o.peripheral.Disconnect(ctx); err != nil {
		o.logger.Warn("forced disconnect failed", "err", err)
	}
	o.setState(entity.StateFailed)
}

func (o *CaptureOrchestrator) runSequence(ctx context.Context) (*entity.DirectionalImageSet, error) {
	set := &entity.DirectionalImageSet{}

	if err := o.shoot(ctx, set, entity.PositionAllLit); err != nil {
		return nil, err
	}
	for _, pos := range entity.DirectionalOrder {
		if err := o.shoot(ctx, set, pos); err != nil {
			return nil, err
		}
	}

	if err := set.Validate(); err != nil {
		return nil, &entity.CaptureError{Step: "assemble", Err: err}
	}
	return set, nil
}

// shoot включает свет для позиции, снимает кадр и гасит свет.
func (o *CaptureOrchestrator) shoot(ctx context.Context, set *entity.DirectionalImageSet, pos entity.Position) error {
	cmd, err := entity.CommandFor(pos, o.cfg.PulseCommands)
	if err != nil {
		return &entity.CaptureError{Step: pos.String(), Err: err}
	}
	if err := o.sendAndAwait(ctx, cmd); err != nil {
		return err
	}
	if err := o.captureFrame(ctx, set, pos); err != nil {
		return err
	}
	return o.sendAndAwait(ctx, entity.CommandNone)
}

func (o *CaptureOrchestrator) sendAndAwait(ctx context.Context, cmd entity.LightingCommand) error {
	step := "command " + cmd.String()
	want := cmd.ExpectedAck()

	// ожидание открывается до записи: подтверждение может прийти раньше возврата из Send
	wait, err := o.acks.arm()
	if err != nil {
		return &entity.CaptureError{Step: step, Err: err}
	}
	if err := o.peripheral.Send(ctx, cmd); err != nil {
		o.acks.disarm()
		return &entity.CaptureError{Step: step, Err: &entity.DeviceError{Op: "send", Err: err}}
	}

	timer := time.NewTimer(o.cfg.AckTimeout)
	defer timer.Stop()

	select {
	case res := <-wait:
		if res.err != nil {
			return &entity.CaptureError{Step: step, Err: res.err}
		}
		if res.ack != want {
			return &entity.CaptureError{Step: step, Err: fmt.Errorf("%w: got %s, want %s", entity.ErrUnexpectedAck, res.ack, want)}
		}
		o.logger.Debug("lighting command acknowledged", "command", cmd, "ack", res.ack)
		return nil
	case <-timer.C:
		o.acks.disarm()
		return &entity.CaptureError{Step: step, Err: entity.ErrAckTimeout}
	case <-ctx.Done():
		o.acks.disarm()
		return &entity.CaptureError{Step: step, Err: ctx.Err()}
	}
}

type frameResult struct {
	img image.Image
	err error
}

func (o *CaptureOrchestrator) captureFrame(ctx context.Context, set *entity.DirectionalImageSet, pos entity.Position) error {
	step := "capture " + pos.String()

	if o.cfg.SettleDelay > 0 {
		settle := time.NewTimer(o.cfg.SettleDelay)
		select {
		case <-settle.C:
		case <-ctx.Done():
			settle.Stop()
			return &entity.CaptureError{Step: step, Err: ctx.Err()}
		}
	}

	cctx, cancel := context.WithTimeout(ctx, o.cfg.CaptureTimeout)
	defer cancel()

	done := make(chan frameResult, 1)
	go func() {
		img, err := o.camera.Capture(cctx)
		done <- frameResult{img: img, err: err}
	}()

	var frame frameResult
	select {
	case frame = <-done:
	case <-cctx.Done():
		if ctx.Err() != nil {
			return &entity.CaptureError{Step: step, Err: ctx.Err()}
		}
		return &entity.CaptureError{Step: step, Err: entity.ErrCaptureTimeout}
	}
	if frame.err != nil {
		if errors.Is(frame.err, context.DeadlineExceeded) && ctx.Err() == nil {
			frame.err = fmt.Errorf("%w: %v", entity.ErrCaptureTimeout, frame.err)
		}
		return &entity.CaptureError{Step: step, Err: frame.err}
	}
	if frame.img == nil || frame.img.Bounds().Empty() {
		return &entity.CaptureError{Step: step, Err: errors.New("camera returned an empty frame")}
	}

	img := frame.img
	if o.cfg.Rotate {
		img = vision.RotateClockwise(img)
	}
	gray := vision.ToGray(img)

	if pos == entity.PositionAllLit {
		if o.cfg.QualityGate != nil {
			if err := o.cfg.QualityGate.Check(gray, pos.String()); err != nil {
				return &entity.CaptureError{Step: step, Err: err}
			}
		}
		set.Reference = vision.ToRGBA(img)
	}
	set.Set(pos, gray)
	o.logger.Debug("frame captured", "position", pos, "width", gray.Bounds().Dx(), "height", gray.Bounds().Dy())
	return nil
}

func (o *CaptureOrchestrator) handleAck(ack entity.LightingAck) {
	if !o.acks.resolve(ack) {
		o.logger.Debug("unsolicited acknowledgement dropped", "ack", ack)
	}
}

func (o *CaptureOrchestrator) handleDisconnect(err error) {
	o.logger.Warn("lighting device disconnected", "err", err)
	o.acks.fail(&entity.DeviceError{Op: "notify", Err: entity.ErrDisconnected})
	o.setState(entity.StateDisconnected)
}
