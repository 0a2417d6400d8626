package vulkan

import "testing"

// Creation unwinds through Destroy when a later step fails, so Destroy
// must tolerate a buffer whose memory was never allocated or mapped.
func TestBufferDestroyPartialState(t *testing.T) {
	buffer := &VulkanBuffer{TotalSize: 64}

	buffer.Destroy()
	if buffer.TotalSize != 0 {
		t.Fatalf("expected size reset after destroy; got %d", buffer.TotalSize)
	}

	// A second destroy is a no-op, not a double free.
	buffer.Destroy()
}
