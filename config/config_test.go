package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"card-grader/internal/domain/entity"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	require.Equal(t, 800, cfg.ModelWidth)
	require.Equal(t, 1120, cfg.ModelHeight)
	require.Equal(t, uint8(100), cfg.MaskBoost)
	require.Equal(t, float32(0.5), cfg.ScoreThreshold)
	require.Equal(t, entity.CompositeOverlay, cfg.CompositeMode)
	require.Equal(t, TransportSerial, cfg.LightingTransport)
	require.Equal(t, 115200, cfg.SerialBaud)
	require.Equal(t, 5*time.Second, cfg.AckTimeout)
	require.Equal(t, 3*time.Second, cfg.CaptureTimeout)
	require.Equal(t, 300*time.Millisecond, cfg.SettleDelay)
	require.Equal(t, 10*time.Second, cfg.BLEScanTimeout)
	require.Equal(t, ResizerLanczos, cfg.Resizer)
	require.False(t, cfg.RotateCaptures)
	require.Empty(t, cfg.ReportDB)
	require.Equal(t, 32, cfg.ReportHistory)
	require.True(t, cfg.ChatAllowed(42))
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TELEGRAM_TOKEN":     " token ",
		"ALLOWED_CHAT_IDS":   "1, 2,,-100",
		"COMPOSITE_MODE":     "Normal-Map",
		"LIGHTING_TRANSPORT": "BLE",
		"MASK_BOOST":         "60",
		"ACK_TIMEOUT":        "750ms",
		"ROTATE_CAPTURES":    "true",
		"PULSE_COMMANDS":     "1",
	}))
	require.NoError(t, err)

	require.Equal(t, "token", cfg.TelegramToken)
	require.Equal(t, []int64{1, 2, -100}, cfg.AllowedChatIDs)
	require.Equal(t, entity.CompositeNormalMap, cfg.CompositeMode)
	require.Equal(t, TransportBLE, cfg.LightingTransport)
	require.Equal(t, uint8(60), cfg.MaskBoost)
	require.Equal(t, 750*time.Millisecond, cfg.AckTimeout)
	require.True(t, cfg.RotateCaptures)
	require.True(t, cfg.PulseCommands)
	require.True(t, cfg.ChatAllowed(-100))
	require.False(t, cfg.ChatAllowed(3))
}

func TestFromLookup_CollectsAllErrors(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"MASK_BOOST":         "300",
		"ACK_TIMEOUT":        "soon",
		"LIGHTING_TRANSPORT": "usb",
		"COMPOSITE_MODE":     "sepia",
		"SCORE_THRESHOLD":    "1.5",
		"CAPTURE_TIMEOUT":    "0s",
	}))
	require.Error(t, err)
	for _, key := range []string{"MASK_BOOST", "ACK_TIMEOUT", "LIGHTING_TRANSPORT", "COMPOSITE_MODE", "SCORE_THRESHOLD", "CAPTURE_TIMEOUT"} {
		require.ErrorContains(t, err, key)
	}
}
