package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"card-grader/internal/domain/entity"
)

func TestAckSlot_ResolvesOnce(t *testing.T) {
	var slot ackSlot

	wait, err := slot.arm()
	require.NoError(t, err)

	require.True(t, slot.resolve(entity.AckLedOn))
	require.False(t, slot.resolve(entity.AckLedOff))

	res := <-wait
	require.NoError(t, res.err)
	require.Equal(t, entity.AckLedOn, res.ack)
}

func TestAckSlot_RejectsSecondCommand(t *testing.T) {
	var slot ackSlot

	_, err := slot.arm()
	require.NoError(t, err)

	_, err = slot.arm()
	require.ErrorIs(t, err, entity.ErrCommandInFlight)

	slot.disarm()
	_, err = slot.arm()
	require.NoError(t, err)
}

func TestAckSlot_Fail(t *testing.T) {
	var slot ackSlot
	boom := errors.New("boom")

	wait, err := slot.arm()
	require.NoError(t, err)
	require.True(t, slot.fail(boom))

	res := <-wait
	require.ErrorIs(t, res.err, boom)
}

func TestAckSlot_UnsolicitedAckDropped(t *testing.T) {
	var slot ackSlot
	require.False(t, slot.resolve(entity.AckLedOn))
}
