package game

import "time"

// Board and physics constants. Coordinates are canvas pixels, time is seconds.

const (
	MinRows = 8
	MaxRows = 16

	// TopRowPins is the pin count of the first row; row r has TopRowPins + r pins.
	TopRowPins = 3

	CanvasWidth   = 800.0
	CanvasHeight  = 800.0
	PaddingTop    = 80.0
	PaddingBottom = 120.0
	PaddingSide   = 50.0

	// BallToSpacing sizes the ball relative to horizontal pin spacing.
	BallToSpacing = 0.16
	MinPinRadius  = 2.5

	SensorHeight = 4.0
)

const (
	Gravity         = 1000.0
	BallRestitution = 0.8
	WallRestitution = 0.5
	ContactFriction = 0.05
	SubSteps        = 4

	// TimeStep is the fixed simulation step, one animation tick at 60Hz.
	TimeStep = 1.0 / 60.0

	// MaxSteps bounds a single run; a ball that has not landed by then is abandoned.
	MaxSteps = 60 * 30

	// FallbackDelaySteps is how long a ball may sit past the sensor line before
	// the position rule classifies it without a sensor event.
	FallbackDelaySteps = 6
	// HitGuardSteps suppresses duplicate landing triggers after a hit.
	HitGuardSteps = 30

	// SettleSteps keeps a landed ball on screen before it is removed.
	SettleSteps = 20

	// balanceJitter breaks perfect balance on top of a pin.
	balanceJitter = 6.0
)

const (
	DefaultSamplesPerSlot = 20
	DefaultMaxAttempts    = 20000
	DefaultYieldEvery     = 25
	DefaultReplaySpeed    = 1.0
	DefaultGuidedBias     = 0.6
	DefaultGuidedGain     = 5.0
	DefaultGuidedMaxForce = 700.0
	DefaultGuidedDamping  = 8.0
	DefaultTickInterval   = time.Second / 60
)
