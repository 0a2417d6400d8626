package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestBytesToBytecode(t *testing.T) {
	// The SPIR-V magic number followed by a version word, little endian.
	code := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

	words := bytesToBytecode(code)
	if len(words) != 2 {
		t.Fatalf("expected 2 words; got %d", len(words))
	}
	if words[0] != 0x07230203 {
		t.Fatalf("expected magic 0x07230203; got 0x%08x", words[0])
	}
	if words[1] != 0x00010000 {
		t.Fatalf("expected version 0x00010000; got 0x%08x", words[1])
	}
}

func TestShaderModuleCreateInfoCodeSize(t *testing.T) {
	code := make([]byte, 16)

	// The binding declares CodeSize in bytes as uint64; the struct literal
	// below is exactly what NewShaderModule builds.
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    bytesToBytecode(code),
	}

	if info.CodeSize != uint64(len(code)) {
		t.Fatalf("expected code size %d; got %d", len(code), info.CodeSize)
	}
	if len(info.PCode) != len(code)/4 {
		t.Fatalf("expected %d words; got %d", len(code)/4, len(info.PCode))
	}
}
