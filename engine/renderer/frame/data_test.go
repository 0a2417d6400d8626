package frame

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/spaghettifunk/penumbra/engine/math"
)

func lightingAt(t *testing.T, b Buffer) LightingUniform {
	t.Helper()
	fb := b.(*fakeBuffer)
	return *(*LightingUniform)(unsafe.Pointer(&fb.data[0]))
}

func TestDefaultLightingSeeded(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	for _, fd := range fm.frames {
		got := lightingAt(t, fd.LightingBuffer())

		dir := got.LightDirection.ToVec3()
		if length := dir.Length(); length < 0.999 || length > 1.001 {
			t.Fatalf("slot %d: expected unit direction; got length %f", fd.Index(), length)
		}
		exp := math.NewVec3(-1, -1, -1).Normalized()
		if !dir.Compare(exp, 1e-6) {
			t.Fatalf("slot %d: expected direction %+v; got %+v", fd.Index(), exp, dir)
		}
		if got.LightDirection.W != 0 {
			t.Fatalf("slot %d: expected direction w 0; got %f", fd.Index(), got.LightDirection.W)
		}
		if !got.LightColor.Compare(math.NewVec4Create(1, 1, 0, 2), 1e-6) {
			t.Fatalf("slot %d: expected color (1, 1, 0) intensity 2; got %+v", fd.Index(), got.LightColor)
		}
		if !got.AmbientLight.Compare(math.NewVec4Create(0.1, 0.1, 0.1, 0.2), 1e-6) {
			t.Fatalf("slot %d: expected ambient (0.1, 0.1, 0.1) intensity 0.2; got %+v", fd.Index(), got.AmbientLight)
		}
	}
}

func TestSetCameraTransform(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	fd, err := fm.CurrentMutable()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	camera := CameraUniform{
		View:       math.NewMat4LookAt(math.NewVec3(0, 2, 5), math.NewVec3Zero(), math.NewVec3Up()),
		Projection: math.NewMat4Perspective(math.DegToRad(60), 16.0/9.0, 0.1, 100),
	}
	if err := fd.SetCameraTransform(camera); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	fb := fd.CameraBuffer().(*fakeBuffer)
	got := *(*CameraUniform)(unsafe.Pointer(&fb.data[0]))
	if got != camera {
		t.Fatalf("expected camera readback %+v; got %+v", camera, got)
	}
}

func TestSetInstanceTransformsReadback(t *testing.T) {
	dev := newFakeDevice(256)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 5))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	models := make([]ModelUniform, 5)
	for i := range models {
		fi := float32(i)
		models[i] = ModelUniform{Model: math.NewMat4Translation(math.NewVec3(fi, 2*fi, 3*fi))}
	}

	fd, err := fm.CurrentMutable()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := fd.SetInstanceTransforms(models); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	stride := fm.Stride()
	if stride != 256 {
		t.Fatalf("expected stride 256; got %d", stride)
	}

	fb := fd.ModelBuffer().(*fakeBuffer)
	for i := range models {
		got := *(*ModelUniform)(unsafe.Pointer(&fb.data[uint64(i)*stride]))
		if got != models[i] {
			t.Fatalf("record %d: expected %+v; got %+v", i, models[i], got)
		}
	}
}

func TestSetInstanceTransformsCapacity(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 5))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	fd, err := fm.CurrentMutable()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// Exactly at capacity is fine.
	if err := fd.SetInstanceTransforms(make([]ModelUniform, 5)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	// One over is rejected, not silently overrun.
	if err := fd.SetInstanceTransforms(make([]ModelUniform, 6)); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded; got %v", err)
	}
}

func TestSetLighting(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	fd, err := fm.CurrentMutable()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	lighting := LightingUniform{
		LightDirection: math.NewVec3(0, -1, 0).ToVec4(0),
		LightColor:     math.NewVec4Create(1, 0, 0, 3),
		AmbientLight:   math.NewVec4Create(0.2, 0.2, 0.2, 0.5),
	}
	if err := fd.SetLighting(lighting); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if got := lightingAt(t, fd.LightingBuffer()); got != lighting {
		t.Fatalf("expected lighting readback %+v; got %+v", lighting, got)
	}
}

func TestSlotStateMachine(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	fd := fm.Current()
	if fd.State() != SlotReady {
		t.Fatalf("expected fresh slot ready; got %s", fd.State())
	}

	// A ready slot never touches its fence.
	fence := fd.Fence().(*fakeFence)
	if err := fd.WaitReady(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if fence.waits != 0 {
		t.Fatalf("expected no fence waits on a ready slot; got %d", fence.waits)
	}

	if err := fd.MarkSubmitted(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if fd.State() != SlotInFlight {
		t.Fatalf("expected in-flight after submit; got %s", fd.State())
	}
	if fence.signaled {
		t.Fatalf("expected fence reset before submission")
	}

	// Every mutation is refused while in flight.
	if err := fd.SetCameraTransform(CameraUniform{}); !errors.Is(err, ErrSlotInFlight) {
		t.Fatalf("expected ErrSlotInFlight; got %v", err)
	}
	if err := fd.SetInstanceTransforms(make([]ModelUniform, 1)); !errors.Is(err, ErrSlotInFlight) {
		t.Fatalf("expected ErrSlotInFlight; got %v", err)
	}
	if err := fd.SetLighting(LightingUniform{}); !errors.Is(err, ErrSlotInFlight) {
		t.Fatalf("expected ErrSlotInFlight; got %v", err)
	}
	if err := fd.MarkSubmitted(); !errors.Is(err, ErrSlotInFlight) {
		t.Fatalf("expected ErrSlotInFlight; got %v", err)
	}
	if _, err := fm.CurrentMutable(); !errors.Is(err, ErrSlotInFlight) {
		t.Fatalf("expected ErrSlotInFlight; got %v", err)
	}

	if err := fd.WaitReady(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if fd.State() != SlotReady {
		t.Fatalf("expected ready after wait; got %s", fd.State())
	}
	if fence.waits != 1 {
		t.Fatalf("expected one fence wait; got %d", fence.waits)
	}

	// Back to ready, mutation works again.
	if err := fd.SetCameraTransform(CameraUniform{}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
