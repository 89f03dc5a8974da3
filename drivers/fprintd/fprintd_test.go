//go:build linux

package fprintd

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDevicePath = dbus.ObjectPath("/net/reactivated/Fprint/Device/0")

func statusSignal(path dbus.ObjectPath, body ...any) *dbus.Signal {
	return &dbus.Signal{Path: path, Name: signalVerifyStatus, Body: body}
}

func TestVerifyStatus(t *testing.T) {
	t.Parallel()

	t.Run("final match", func(t *testing.T) {
		t.Parallel()

		result, done, ok := verifyStatus(statusSignal(testDevicePath, "verify-match", true), testDevicePath)
		require.True(t, ok)
		assert.True(t, done)
		assert.Equal(t, "verify-match", result)
	})

	t.Run("retry prompt", func(t *testing.T) {
		t.Parallel()

		result, done, ok := verifyStatus(statusSignal(testDevicePath, "verify-swipe-too-short", false), testDevicePath)
		require.True(t, ok)
		assert.False(t, done)
		assert.Equal(t, "verify-swipe-too-short", result)
	})

	t.Run("other signal", func(t *testing.T) {
		t.Parallel()

		signal := statusSignal(testDevicePath, "verify-match", true)
		signal.Name = deviceIface + ".EnrollStatus"

		_, _, ok := verifyStatus(signal, testDevicePath)
		assert.False(t, ok)
	})

	t.Run("other device", func(t *testing.T) {
		t.Parallel()

		signal := statusSignal("/net/reactivated/Fprint/Device/1", "verify-match", true)

		_, _, ok := verifyStatus(signal, testDevicePath)
		assert.False(t, ok)
	})

	t.Run("short body", func(t *testing.T) {
		t.Parallel()

		_, _, ok := verifyStatus(statusSignal(testDevicePath, "verify-match"), testDevicePath)
		assert.False(t, ok)
	})

	t.Run("mistyped body", func(t *testing.T) {
		t.Parallel()

		_, _, ok := verifyStatus(statusSignal(testDevicePath, 7, true), testDevicePath)
		assert.False(t, ok)

		_, _, ok = verifyStatus(statusSignal(testDevicePath, "verify-match", "done"), testDevicePath)
		assert.False(t, ok)
	})
}
