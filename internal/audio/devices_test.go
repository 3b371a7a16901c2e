package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestChooseDefaultSource(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := Choose(devices, "default", "")
	require.NoError(t, err)
	require.Equal(t, "elgato", selection.Device.ID)
	require.Empty(t, selection.Warning)
	require.False(t, selection.Fallback)
}

func TestChooseMutedInputUsesFallback(t *testing.T) {
	devices := []Device{
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Muted: true, Default: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	selection, err := Choose(devices, "elgato", "sony")
	require.NoError(t, err)
	require.Equal(t, "sony", selection.Device.ID)
	require.Contains(t, selection.Warning, "muted")
	require.True(t, selection.Fallback)
}

func TestChooseErrors(t *testing.T) {
	tests := []struct {
		name     string
		devices  []Device
		input    string
		fallback string
		want     error
	}{
		{name: "no devices", want: ErrNoDevices},
		{
			name:    "only source muted",
			devices: []Device{{ID: "elgato", Available: true, Muted: true, Default: true}},
			want:    ErrMuted,
		},
		{
			name:    "only source unavailable",
			devices: []Device{{ID: "elgato", Default: true}},
			want:    ErrUnavailable,
		},
		{
			name:    "unknown input",
			devices: []Device{{ID: "elgato", Available: true, Default: true}},
			input:   "missing",
			want:    ErrNoMatch,
		},
		{
			name:     "unknown fallback",
			devices:  []Device{{ID: "elgato", Available: true, Muted: true, Default: true}},
			fallback: "missing",
			want:     ErrNoMatch,
		},
		{
			name: "no default source",
			devices: []Device{
				{ID: "elgato", Available: true},
			},
			want: ErrNoMatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Choose(tc.devices, tc.input, tc.fallback)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
}

func TestSourceState(t *testing.T) {
	require.Equal(t, "running", sourceState(0))
	require.Equal(t, "idle", sourceState(1))
	require.Equal(t, "suspended", sourceState(2))
	require.Equal(t, "unknown(99)", sourceState(99))
}

func TestPortAvailable(t *testing.T) {
	require.False(t, portAvailable(nil))
	require.True(t, portAvailable(&pulseproto.GetSourceInfoReply{}))

	yes := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, yes, []sourcePort{{name: "mic", available: 2}})
	require.True(t, portAvailable(yes))

	no := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, no, []sourcePort{{name: "mic", available: 1}})
	require.False(t, portAvailable(no))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	slice := reflect.MakeSlice(reflect.TypeOf(reply.Ports), len(ports), len(ports))
	for i, port := range ports {
		item := slice.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(slice)
}
