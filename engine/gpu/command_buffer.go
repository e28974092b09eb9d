package gpu

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// copyCommand copies host memory into a device buffer at an offset.
type copyCommand struct {
	src    []byte
	dst    Buffer
	offset uint64
}

// commandBuffer is the implementation of the CommandBuffer interface.
type commandBuffer struct {
	mu       sync.Mutex
	commands []copyCommand
}

// CommandBuffer records device work for later submission.
// A command buffer is reused across frames: Reset discards the previous recording.
// Source memory referenced by a recorded copy must stay unchanged until the
// submission that carries it has signalled completion.
type CommandBuffer interface {
	// Reset discards every recorded command.
	Reset()

	// CopyToBuffer records a copy of src into dst starting at offset.
	//
	// Parameters:
	//   - src: the source bytes
	//   - dst: the destination buffer
	//   - offset: the byte offset into dst
	//
	// Returns:
	//   - error: an InvalidArgument error if the copy does not fit into dst
	CopyToBuffer(src []byte, dst Buffer, offset uint64) error

	// Len returns the number of recorded commands.
	//
	// Returns:
	//   - int: the command count
	Len() int
}

var _ CommandBuffer = &commandBuffer{}

func newCommandBuffer() *commandBuffer {
	return &commandBuffer{}
}

func (c *commandBuffer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = c.commands[:0]
}

func (c *commandBuffer) CopyToBuffer(src []byte, dst Buffer, offset uint64) error {
	if dst == nil {
		return status.Errorf(status.InvalidArgument, "copy into nil buffer")
	}
	if offset+uint64(len(src)) > dst.Size() {
		return status.Errorf(status.InvalidArgument, "copy of %d bytes at offset %d overflows buffer %q of %d bytes",
			len(src), offset, dst.Label(), dst.Size())
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, copyCommand{src: src, dst: dst, offset: offset})
	return nil
}

func (c *commandBuffer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// snapshot returns the recorded commands for submission.
func (c *commandBuffer) snapshot() []copyCommand {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]copyCommand, len(c.commands))
	copy(out, c.commands)
	return out
}
