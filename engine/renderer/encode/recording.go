package encode

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// Command is one recorded pass command, formatted for inspection.
type Command struct {
	// Op is the command name, e.g. "SetPipeline" or "DrawIndexed".
	Op string
	// Detail describes the command arguments.
	Detail string
}

// RecordingBuffer is a Buffer that stores its contents in host memory.
// It backs headless frame recording and pass-ordering tests.
type RecordingBuffer struct {
	// Contents holds the bytes written so far.
	Contents []byte
	// Usage is the usage the buffer was created with.
	Usage wgpu.BufferUsage
	// Released reports whether Release was called.
	Released bool

	label string
}

var _ Buffer = &RecordingBuffer{}

func (b *RecordingBuffer) Raw() *wgpu.Buffer { return nil }

func (b *RecordingBuffer) Size() uint64 { return uint64(len(b.Contents)) }

func (b *RecordingBuffer) Label() string { return b.label }

func (b *RecordingBuffer) Release() { b.Released = true }

// RecordingBindGroup is a BindGroup that remembers its entries.
type RecordingBindGroup struct {
	// Entries holds the bindings the group was created with.
	Entries []BindGroupEntry
	// Released reports whether Release was called.
	Released bool

	label string
}

var _ BindGroup = &RecordingBindGroup{}

func (g *RecordingBindGroup) Raw() *wgpu.BindGroup { return nil }

func (g *RecordingBindGroup) Label() string { return g.label }

func (g *RecordingBindGroup) Release() { g.Released = true }

// RecordingAllocator is an Allocator that allocates host-memory buffers and
// remembers everything it created.
type RecordingAllocator struct {
	// Buffers lists every buffer created, in creation order.
	Buffers []*RecordingBuffer
	// BindGroups lists every bind group created, in creation order.
	BindGroups []*RecordingBindGroup
}

var _ Allocator = &RecordingAllocator{}

// NewRecordingAllocator creates an empty RecordingAllocator.
//
// Returns:
//   - *RecordingAllocator: the allocator
func NewRecordingAllocator() *RecordingAllocator {
	return &RecordingAllocator{}
}

func (a *RecordingAllocator) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	buf := &RecordingBuffer{Contents: make([]byte, size), Usage: usage, label: label}
	a.Buffers = append(a.Buffers, buf)
	return buf, nil
}

func (a *RecordingAllocator) CreateBufferInit(label string, data []byte, usage wgpu.BufferUsage) (Buffer, error) {
	buf := &RecordingBuffer{Contents: append([]byte(nil), data...), Usage: usage, label: label}
	a.Buffers = append(a.Buffers, buf)
	return buf, nil
}

func (a *RecordingAllocator) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	rb, ok := buf.(*RecordingBuffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this allocator", buf.Label())
	}
	if offset+uint64(len(data)) > uint64(len(rb.Contents)) {
		return fmt.Errorf("write of %d bytes at offset %d exceeds buffer %q size %d", len(data), offset, rb.label, len(rb.Contents))
	}
	copy(rb.Contents[offset:], data)
	return nil
}

func (a *RecordingAllocator) CreateBindGroup(label string, layout *wgpu.BindGroupLayout, entries []BindGroupEntry) (BindGroup, error) {
	bg := &RecordingBindGroup{Entries: append([]BindGroupEntry(nil), entries...), label: label}
	a.BindGroups = append(a.BindGroups, bg)
	return bg, nil
}

// BufferByLabel returns the most recently created buffer with the given
// label, or nil if none exists.
//
// Parameters:
//   - label: the buffer label to look up
//
// Returns:
//   - *RecordingBuffer: the buffer, or nil
func (a *RecordingAllocator) BufferByLabel(label string) *RecordingBuffer {
	for i := len(a.Buffers) - 1; i >= 0; i-- {
		if a.Buffers[i].label == label {
			return a.Buffers[i]
		}
	}
	return nil
}

// RecordingRenderPass is a RenderPass that logs every command.
type RecordingRenderPass struct {
	// Label is the label the pass was opened with.
	Label string
	// Commands holds the recorded commands in order.
	Commands []Command
	// Ended reports whether End was called.
	Ended bool
}

var _ RenderPass = &RecordingRenderPass{}

// NewRecordingRenderPass creates an empty RecordingRenderPass.
//
// Parameters:
//   - label: the pass label
//
// Returns:
//   - *RecordingRenderPass: the pass
func NewRecordingRenderPass(label string) *RecordingRenderPass {
	return &RecordingRenderPass{Label: label}
}

func (r *RecordingRenderPass) record(op, format string, args ...any) {
	r.Commands = append(r.Commands, Command{Op: op, Detail: fmt.Sprintf(format, args...)})
}

func (r *RecordingRenderPass) SetPipeline(p pipeline.Pipeline) {
	r.record("SetPipeline", "%s", p.PipelineKey())
}

func (r *RecordingRenderPass) SetBindGroup(index uint32, bg BindGroup, offsets []uint32) {
	r.record("SetBindGroup", "group=%d label=%s", index, bg.Label())
}

func (r *RecordingRenderPass) SetVertexBuffer(slot uint32, buf Buffer, offset uint64) {
	r.record("SetVertexBuffer", "slot=%d label=%s offset=%d", slot, buf.Label(), offset)
}

func (r *RecordingRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat, offset uint64) {
	r.record("SetIndexBuffer", "label=%s offset=%d", buf.Label(), offset)
}

func (r *RecordingRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	r.record("Draw", "vertices=%d instances=%d firstVertex=%d firstInstance=%d", vertexCount, instanceCount, firstVertex, firstInstance)
}

func (r *RecordingRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	r.record("DrawIndexed", "indices=%d instances=%d firstIndex=%d baseVertex=%d firstInstance=%d", indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (r *RecordingRenderPass) DrawIndexedIndirect(buf Buffer, offset uint64) {
	r.record("DrawIndexedIndirect", "label=%s offset=%d", buf.Label(), offset)
}

func (r *RecordingRenderPass) End() {
	r.Ended = true
}

// Pipelines returns the pipeline keys bound over the pass lifetime, in order.
//
// Returns:
//   - []string: the bound pipeline keys
func (r *RecordingRenderPass) Pipelines() []string {
	var keys []string
	for _, c := range r.Commands {
		if c.Op == "SetPipeline" {
			keys = append(keys, c.Detail)
		}
	}
	return keys
}

// DrawCount returns the number of draw commands of any kind in the pass.
//
// Returns:
//   - int: the draw command count
func (r *RecordingRenderPass) DrawCount() int {
	var n int
	for _, c := range r.Commands {
		switch c.Op {
		case "Draw", "DrawIndexed", "DrawIndexedIndirect":
			n++
		}
	}
	return n
}

// RecordingComputePass is a ComputePass that logs every command.
type RecordingComputePass struct {
	// Label is the label the pass was opened with.
	Label string
	// Commands holds the recorded commands in order.
	Commands []Command
	// Ended reports whether End was called.
	Ended bool
}

var _ ComputePass = &RecordingComputePass{}

// NewRecordingComputePass creates an empty RecordingComputePass.
//
// Parameters:
//   - label: the pass label
//
// Returns:
//   - *RecordingComputePass: the pass
func NewRecordingComputePass(label string) *RecordingComputePass {
	return &RecordingComputePass{Label: label}
}

func (c *RecordingComputePass) record(op, format string, args ...any) {
	c.Commands = append(c.Commands, Command{Op: op, Detail: fmt.Sprintf(format, args...)})
}

func (c *RecordingComputePass) SetPipeline(p pipeline.Pipeline) {
	c.record("SetPipeline", "%s", p.PipelineKey())
}

func (c *RecordingComputePass) SetBindGroup(index uint32, bg BindGroup, offsets []uint32) {
	c.record("SetBindGroup", "group=%d label=%s", index, bg.Label())
}

func (c *RecordingComputePass) DispatchWorkgroups(x, y, z uint32) {
	c.record("DispatchWorkgroups", "x=%d y=%d z=%d", x, y, z)
}

func (c *RecordingComputePass) End() {
	c.Ended = true
}
