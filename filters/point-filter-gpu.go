package filters

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/soypat/pixtone"
)

//go:embed point-filter-gpu.wgsl
var baseShaderWGSL string

// toneUniforms mirrors the Uniforms struct of point-filter-gpu.wgsl.
type toneUniforms struct {
	width, height float32
	param0        float32
	param1        float32
}

func (u toneUniforms) bytes() []byte {
	return wgpu.ToBytes([]float32{u.width, u.height, u.param0, u.param1})
}

// PointFilterGPU runs a per-pixel tone curve as a WebGPU compute shader.
// Concrete filters embed it and supply a WGSL transform over normalized
// RGBA plus up to two curve parameters.
type PointFilterGPU struct {
	mu       sync.Mutex
	device   *wgpu.Device
	queue    *wgpu.Queue
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	uniforms *wgpu.Buffer
	params   [2]float32
}

// init compiles transform into the base shader.
// transform must define fn transform(c: vec4<f32>) -> vec4<f32>.
func (f *PointFilterGPU) init(device *wgpu.Device, queue *wgpu.Queue, transform string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.device, f.queue = device, queue
	defer func() {
		if err != nil {
			f.release()
		}
	}()
	code := strings.Replace(baseShaderWGSL, "// TRANSFORM_PLACEHOLDER", transform, 1)
	f.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return fmt.Errorf("shader module: %w", err)
	}
	f.pipeline, err = device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Compute: wgpu.ProgrammableStageDescriptor{Module: f.module, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("compute pipeline: %w", err)
	}
	f.layout = f.pipeline.GetBindGroupLayout(0)
	f.uniforms, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}
	return nil
}

func (f *PointFilterGPU) setParams(p0, p1 float32) {
	f.mu.Lock()
	f.params = [2]float32{p0, p1}
	f.mu.Unlock()
}

// ProcessBuffer runs the curve over buf and returns a newly allocated result.
// Storage buffers live only for the call so results never alias.
func (f *PointFilterGPU) ProcessBuffer(buf *pixtone.Buffer) (*pixtone.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pipeline == nil {
		return nil, pixtone.WrapError(pixtone.ErrOperatorFailure, "gpu", errGPUNotInitialized)
	}
	w, h := buf.Width(), buf.Height()
	if w == 0 || h == 0 {
		return buf.Clone(), nil
	}
	packed, err := f.run(packRGBX(buf), w, h)
	if err != nil {
		return nil, pixtone.WrapError(pixtone.ErrOperatorFailure, "gpu", err)
	}
	return unpackRGBX(packed, w, h)
}

// run uploads pixels, dispatches one invocation per pixel and reads back
// the shader output in a single submission.
func (f *PointFilterGPU) run(pix []byte, w, h int) ([]byte, error) {
	size := uint64(len(pix))
	u := toneUniforms{width: float32(w), height: float32(h), param0: f.params[0], param1: f.params[1]}
	f.queue.WriteBuffer(f.uniforms, 0, u.bytes())

	src, err := f.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Contents: pix,
		Usage:    wgpu.BufferUsageStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("input buffer: %w", err)
	}
	defer src.Release()
	dst, err := f.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("output buffer: %w", err)
	}
	defer dst.Release()
	staging, err := f.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("staging buffer: %w", err)
	}
	defer staging.Release()

	group, err := f.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: f.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: f.uniforms, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: src, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: dst, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bind group: %w", err)
	}
	defer group.Release()

	encoder, err := f.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(f.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(uint32((w+7)/8), uint32((h+7)/8), 1)
	pass.End()
	pass.Release()
	encoder.CopyBufferToBuffer(dst, 0, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	f.queue.Submit(cmd)

	done := make(chan wgpu.BufferMapAsyncStatus, 1)
	staging.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		done <- status
	})
	f.device.Poll(true, nil)
	if status := <-done; status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map staging buffer: %v", status)
	}
	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

// packRGBX widens RGB888 rows to the 32-bit texels the shader reads.
// The fourth byte is opaque and ignored by the shader transforms.
func packRGBX(buf *pixtone.Buffer) []byte {
	src := buf.Buffer()
	out := make([]byte, len(src)/3*4)
	for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
		out[j], out[j+1], out[j+2], out[j+3] = src[i], src[i+1], src[i+2], 255
	}
	return out
}

func unpackRGBX(pix []byte, w, h int) (*pixtone.Buffer, error) {
	rgb := make([]byte, w*h*3)
	for i, j := 0, 0; j < len(rgb); i, j = i+4, j+3 {
		rgb[j], rgb[j+1], rgb[j+2] = pix[i], pix[i+1], pix[i+2]
	}
	return pixtone.NewBufferFromPix(w, h, rgb)
}

// Cleanup releases the shader, pipeline and uniform buffer.
func (f *PointFilterGPU) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release()
}

func (f *PointFilterGPU) release() {
	if f.uniforms != nil {
		f.uniforms.Release()
		f.uniforms = nil
	}
	if f.layout != nil {
		f.layout.Release()
		f.layout = nil
	}
	if f.pipeline != nil {
		f.pipeline.Release()
		f.pipeline = nil
	}
	if f.module != nil {
		f.module.Release()
		f.module = nil
	}
}

var errGPUNotInitialized = errorString("filter not initialized")
