package encode

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// wgpuBuffer is the WebGPU implementation of the Buffer interface.
type wgpuBuffer struct {
	buf   *wgpu.Buffer
	size  uint64
	label string
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Raw() *wgpu.Buffer {
	return b.buf
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Label() string {
	return b.label
}

func (b *wgpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// wgpuBindGroup is the WebGPU implementation of the BindGroup interface.
type wgpuBindGroup struct {
	bg    *wgpu.BindGroup
	label string
}

var _ BindGroup = &wgpuBindGroup{}

func (g *wgpuBindGroup) Raw() *wgpu.BindGroup {
	return g.bg
}

func (g *wgpuBindGroup) Label() string {
	return g.label
}

func (g *wgpuBindGroup) Release() {
	if g.bg != nil {
		g.bg.Release()
		g.bg = nil
	}
}

// wgpuAllocator is the WebGPU implementation of the Allocator interface.
type wgpuAllocator struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

var _ Allocator = &wgpuAllocator{}

// NewWGPUAllocator creates an Allocator backed by a WebGPU device and queue.
//
// Parameters:
//   - device: the device to allocate on
//   - queue: the queue buffer writes are scheduled on
//
// Returns:
//   - Allocator: the allocator
func NewWGPUAllocator(device *wgpu.Device, queue *wgpu.Queue) Allocator {
	return &wgpuAllocator{device: device, queue: queue}
}

func (a *wgpuAllocator) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, size: size, label: label}, nil
}

func (a *wgpuAllocator) CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	buf, err := a.CreateBuffer(label, uint64(len(data)), usage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := a.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, err
	}
	return buf, nil
}

func (a *wgpuAllocator) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	raw := buf.Raw()
	if raw == nil {
		return errors.New("write to released buffer")
	}
	a.queue.WriteBuffer(raw, offset, data)
	return nil
}

func (a *wgpuAllocator) CreateBindGroup(label string, layout *wgpu.BindGroupLayout, entries []BindGroupEntry) (BindGroup, error) {
	converted := make([]wgpu.BindGroupEntry, 0, len(entries))
	for _, e := range entries {
		entry := wgpu.BindGroupEntry{
			Binding:     e.Binding,
			Offset:      e.Offset,
			Size:        e.Size,
			TextureView: e.TextureView,
			Sampler:     e.Sampler,
		}
		if e.Buffer != nil {
			entry.Buffer = e.Buffer.Raw()
			if entry.Size == 0 {
				entry.Size = e.Buffer.Size()
			}
		}
		converted = append(converted, entry)
	}
	bg, err := a.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: converted,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{bg: bg, label: label}, nil
}

// wgpuRenderPass is the WebGPU implementation of the RenderPass interface.
type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

var _ RenderPass = &wgpuRenderPass{}

// NewWGPURenderPass wraps an open WebGPU render pass encoder.
//
// Parameters:
//   - pass: the open pass encoder
//
// Returns:
//   - RenderPass: the wrapped pass
func NewWGPURenderPass(pass *wgpu.RenderPassEncoder) RenderPass {
	return &wgpuRenderPass{pass: pass}
}

func (r *wgpuRenderPass) SetPipeline(p pipeline.Pipeline) {
	if rp, ok := p.Pipeline().(*wgpu.RenderPipeline); ok && rp != nil {
		r.pass.SetPipeline(rp)
	}
}

func (r *wgpuRenderPass) SetBindGroup(index uint32, bg BindGroup, offsets []uint32) {
	r.pass.SetBindGroup(index, bg.Raw(), offsets)
}

func (r *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	r.pass.SetVertexBuffer(slot, buf.Raw(), offset, wgpu.WholeSize)
}

func (r *wgpuRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat, offset uint64) {
	r.pass.SetIndexBuffer(buf.Raw(), format, offset, wgpu.WholeSize)
}

func (r *wgpuRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (r *wgpuRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (r *wgpuRenderPass) DrawIndexedIndirect(buf Buffer, offset uint64) {
	r.pass.DrawIndexedIndirect(buf.Raw(), offset)
}

func (r *wgpuRenderPass) End() {
	r.pass.End()
}

// wgpuComputePass is the WebGPU implementation of the ComputePass interface.
type wgpuComputePass struct {
	pass *wgpu.ComputePassEncoder
}

var _ ComputePass = &wgpuComputePass{}

// NewWGPUComputePass wraps an open WebGPU compute pass encoder.
//
// Parameters:
//   - pass: the open pass encoder
//
// Returns:
//   - ComputePass: the wrapped pass
func NewWGPUComputePass(pass *wgpu.ComputePassEncoder) ComputePass {
	return &wgpuComputePass{pass: pass}
}

func (c *wgpuComputePass) SetPipeline(p pipeline.Pipeline) {
	if cp, ok := p.Pipeline().(*wgpu.ComputePipeline); ok && cp != nil {
		c.pass.SetPipeline(cp)
	}
}

func (c *wgpuComputePass) SetBindGroup(index uint32, bg BindGroup, offsets []uint32) {
	c.pass.SetBindGroup(index, bg.Raw(), offsets)
}

func (c *wgpuComputePass) DispatchWorkgroups(x, y, z uint32) {
	c.pass.DispatchWorkgroups(x, y, z)
}

func (c *wgpuComputePass) End() {
	c.pass.End()
}
