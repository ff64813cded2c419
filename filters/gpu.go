package filters

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// GPU owns the WebGPU device shared by the GPU filters.
type GPU struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
}

// OpenGPU requests a low power adapter and its default device.
// It fails with [ErrNoGPU] wrapped when WebGPU is unavailable.
func OpenGPU() (*GPU, error) {
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return nil, ErrNoGPU
	}
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceLowPower,
	})
	if err != nil {
		instance.Release()
		return nil, gpuError{"adapter", err}
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, gpuError{"device", err}
	}
	return &GPU{
		instance: instance,
		adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
	}, nil
}

// Release frees the device, adapter and instance.
func (g *GPU) Release() {
	if g.Device != nil {
		g.Device.Release()
		g.Device = nil
	}
	if g.adapter != nil {
		g.adapter.Release()
		g.adapter = nil
	}
	if g.instance != nil {
		g.instance.Release()
		g.instance = nil
	}
}

// ErrNoGPU is returned by [OpenGPU] when no WebGPU adapter can be used.
var ErrNoGPU error = errorString("WebGPU not available")

type gpuError struct {
	stage string
	err   error
}

func (e gpuError) Error() string { return "request " + e.stage + ": " + e.err.Error() }
func (e gpuError) Unwrap() []error {
	return []error{ErrNoGPU, e.err}
}
