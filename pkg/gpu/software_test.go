package gpu

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestSoftwareBackend_CreateDevice(t *testing.T) {
	backend := NewSoftwareBackend()
	dev, err := backend.CreateDevice(DeviceOptions{})
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	defer dev.Release()

	if dev.FeatureLevel() != FeatureLevel11_1 {
		t.Errorf("feature level: got %s, want richest default", dev.FeatureLevel())
	}
}

func TestSoftwareTexture_HandleResolution(t *testing.T) {
	backend := NewSoftwareBackend()
	dev, err := backend.CreateDevice(DeviceOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Release()

	tex, err := dev.CreateSharedTexture(32, 16)
	if err != nil {
		t.Fatalf("CreateSharedTexture: %v", err)
	}

	handle := tex.SharedHandle()
	if handle == 0 {
		t.Fatal("expected non-zero shared handle")
	}

	resolved, ok := OpenSharedTexture(handle)
	if !ok {
		t.Fatal("live handle must resolve")
	}
	if resolved.Width() != 32 || resolved.Height() != 16 {
		t.Errorf("resolved size: %dx%d", resolved.Width(), resolved.Height())
	}

	tex.Release()
	if _, ok := OpenSharedTexture(handle); ok {
		t.Error("released handle must no longer resolve")
	}
}

func TestSoftwareTexture_ZeroSizeRejected(t *testing.T) {
	backend := NewSoftwareBackend()
	dev, _ := backend.CreateDevice(DeviceOptions{})
	defer dev.Release()

	if _, err := dev.CreateSharedTexture(0, 16); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("got %v, want ErrInvalidSize", err)
	}
}

func TestSoftwareTexture_DrawImageRoundTrip(t *testing.T) {
	backend := NewSoftwareBackend()
	dev, _ := backend.CreateDevice(DeviceOptions{})
	defer dev.Release()

	tex, err := dev.CreateSharedTexture(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	want := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGBA(x, y, want)
		}
	}

	soft := tex.(*SoftwareTexture)
	soft.Draw(src, nil)

	got := soft.Image().RGBAAt(2, 2)
	if got != want {
		t.Errorf("round trip: got %v, want %v (BGRA swizzle broken?)", got, want)
	}
}

func TestSoftwareTexture_DrawScalesToTextureSize(t *testing.T) {
	backend := NewSoftwareBackend()
	dev, _ := backend.CreateDevice(DeviceOptions{})
	defer dev.Release()

	tex, err := dev.CreateSharedTexture(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	// 2x2 solid source scaled up to 8x8.
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	want := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			src.SetRGBA(x, y, want)
		}
	}

	soft := tex.(*SoftwareTexture)
	soft.Draw(src, nil)

	for _, p := range []image.Point{{0, 0}, {4, 4}, {7, 7}} {
		if got := soft.Image().RGBAAt(p.X, p.Y); got != want {
			t.Errorf("pixel %v: got %v, want %v", p, got, want)
		}
	}
}

func TestRenderer_WithSoftwareBackend(t *testing.T) {
	r, err := New(NewSoftwareBackend(), 320, 240)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	handle := r.Handle()
	if _, ok := OpenSharedTexture(handle); !ok {
		t.Fatal("renderer handle must resolve through the software table")
	}

	if err := r.Resize(640, 360); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if _, ok := OpenSharedTexture(handle); ok {
		t.Error("old handle must be invalidated by resize")
	}
	if _, ok := OpenSharedTexture(r.Handle()); !ok {
		t.Error("new handle must resolve")
	}
}
