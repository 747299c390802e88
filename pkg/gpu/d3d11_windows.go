//go:build windows

package gpu

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Direct3D 11 backend using raw COM vtable calls, no CGO.

var (
	d3d11DLL = windows.NewLazySystemDLL("d3d11.dll")
	dxgiDLL  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory = dxgiDLL.NewProc("CreateDXGIFactory")
)

const (
	d3dDriverTypeUnknown  = 0
	d3dDriverTypeHardware = 1
	d3d11SDKVersion       = 7

	dxgiFormatB8G8R8A8Unorm = 87

	d3d11UsageDefault       = 0
	d3d11BindShaderResource = 0x8
	d3d11BindRenderTarget   = 0x20
	d3d11ResourceMiscShared = 0x2

	// COM vtable indices
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2

	dxgiFactoryEnumAdapters        = 7   // IDXGIFactory
	dxgiDeviceSetGPUThreadPriority = 10  // IDXGIDevice
	dxgiResourceGetSharedHandle    = 8   // IDXGIResource
	d3d11DeviceCreateTexture2D     = 5   // ID3D11Device
	d3d11ContextFlush              = 111 // ID3D11DeviceContext
)

// comGUID is a COM GUID (128-bit).
type comGUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidIDXGIDevice   = comGUID{0x54ec77fa, 0x1377, 0x44e6, [8]byte{0x8c, 0x32, 0x88, 0xfd, 0x5f, 0x44, 0xc8, 0x4c}}
	iidIDXGIFactory  = comGUID{0x7b7166ec, 0x21c7, 0x44ae, [8]byte{0xb2, 0x1a, 0xc9, 0xae, 0x32, 0x1a, 0xe3, 0x69}}
	iidIDXGIResource = comGUID{0x035f3ab4, 0x482e, 0x4e50, [8]byte{0xb4, 0x1f, 0x8a, 0x7f, 0x8b, 0xd8, 0x96, 0x0b}}
)

// comCall invokes a COM vtable method at the given index.
// obj is a pointer to a COM interface (pointer to pointer to vtable).
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))

	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(fnPtr, allArgs...)

	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comAddRef calls IUnknown::AddRef.
func comAddRef(obj uintptr) {
	if obj != 0 {
		comCall(obj, vtblAddRef)
	}
}

// comRelease calls IUnknown::Release.
func comRelease(obj uintptr) {
	if obj != 0 {
		comCall(obj, vtblRelease)
	}
}

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC (44 bytes).
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32 // DXGI_SAMPLE_DESC.Count
	SampleQuality  uint32 // DXGI_SAMPLE_DESC.Quality
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// isWindows10OrGreater reports whether the host is at least Windows 10 RTM.
// Adapter auto-selection with a hardware driver type is only reliable there;
// older hosts get an explicitly enumerated adapter.
func isWindows10OrGreater() bool {
	info := windows.RtlGetVersion()
	return info.MajorVersion >= 10
}

// D3D11Backend creates Direct3D 11 devices and inter-process shareable
// BGRA textures.
type D3D11Backend struct{}

// NewD3D11Backend creates the Direct3D 11 backend.
func NewD3D11Backend() *D3D11Backend { return &D3D11Backend{} }

// Name implements Backend.
func (*D3D11Backend) Name() string { return "d3d11" }

// CreateDevice implements Backend. On Windows 10 and later the default
// hardware adapter is selected automatically; on older hosts the first
// display adapter is enumerated through DXGI and passed explicitly (the
// driver type must then be UNKNOWN per the D3D11 contract).
func (*D3D11Backend) CreateDevice(opts DeviceOptions) (Device, error) {
	levels := opts.FeatureLevels
	if len(levels) == 0 {
		levels = DefaultFeatureLevels
	}
	rawLevels := make([]uint32, len(levels))
	for i, l := range levels {
		rawLevels[i] = uint32(l)
	}

	adapter := uintptr(0)
	driverType := uintptr(d3dDriverTypeUnknown)

	if isWindows10OrGreater() {
		driverType = d3dDriverTypeHardware
	} else {
		var factory uintptr
		hr, _, _ := procCreateDXGIFactory.Call(
			uintptr(unsafe.Pointer(&iidIDXGIFactory)),
			uintptr(unsafe.Pointer(&factory)),
		)
		if int32(hr) >= 0 && factory != 0 {
			comCall(factory, dxgiFactoryEnumAdapters, 0, uintptr(unsafe.Pointer(&adapter)))
			comRelease(factory)
		}
	}

	var device, context uintptr
	var granted uint32
	hr, _, _ := procD3D11CreateDevice.Call(
		adapter,    // pAdapter
		driverType, // DriverType
		0,          // Software
		0,          // Flags
		uintptr(unsafe.Pointer(&rawLevels[0])), // pFeatureLevels
		uintptr(len(rawLevels)),                // FeatureLevels
		uintptr(d3d11SDKVersion),               // SDKVersion
		uintptr(unsafe.Pointer(&device)),       // ppDevice
		uintptr(unsafe.Pointer(&granted)),      // pFeatureLevel
		uintptr(unsafe.Pointer(&context)),      // ppImmediateContext
	)
	if adapter != 0 {
		comRelease(adapter)
	}
	if int32(hr) < 0 {
		return nil, fmt.Errorf("D3D11CreateDevice: HRESULT 0x%08X", uint32(hr))
	}

	// Best-effort GPU scheduling hint; rejection is not an error.
	var dxgiDevice uintptr
	if _, err := comCall(device, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIDevice)),
		uintptr(unsafe.Pointer(&dxgiDevice))); err == nil && dxgiDevice != 0 {
		priority := ClampThreadPriority(opts.ThreadPriority)
		if _, err := comCall(dxgiDevice, dxgiDeviceSetGPUThreadPriority, uintptr(priority)); err != nil {
			Logger().Debug("SetGPUThreadPriority rejected", "priority", priority, "error", err)
		}
		comRelease(dxgiDevice)
	}

	return &d3d11Device{
		device:  device,
		context: context,
		level:   FeatureLevel(granted),
	}, nil
}

type d3d11Device struct {
	device  uintptr // ID3D11Device
	context uintptr // ID3D11DeviceContext
	level   FeatureLevel
}

func (d *d3d11Device) FeatureLevel() FeatureLevel { return d.level }

func (d *d3d11Device) CreateSharedTexture(width, height int32) (Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	desc := d3d11Texture2DDesc{
		Width:         uint32(width),
		Height:        uint32(height),
		MipLevels:     1,
		ArraySize:     1,
		Format:        dxgiFormatB8G8R8A8Unorm,
		SampleCount:   1,
		SampleQuality: 0,
		Usage:         d3d11UsageDefault,
		BindFlags:     d3d11BindRenderTarget | d3d11BindShaderResource,
		MiscFlags:     d3d11ResourceMiscShared,
	}

	var texture uintptr
	if _, err := comCall(d.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)),
		0, // no initial data
		uintptr(unsafe.Pointer(&texture))); err != nil {
		return nil, fmt.Errorf("ID3D11Device::CreateTexture2D: %w", err)
	}

	var resource uintptr
	if _, err := comCall(texture, vtblQueryInterface,
		uintptr(unsafe.Pointer(&iidIDXGIResource)),
		uintptr(unsafe.Pointer(&resource))); err != nil {
		comRelease(texture)
		return nil, fmt.Errorf("ID3D11Texture2D::QueryInterface(IDXGIResource): %w", err)
	}

	var handle uintptr
	_, err := comCall(resource, dxgiResourceGetSharedHandle,
		uintptr(unsafe.Pointer(&handle)))
	comRelease(resource)
	if err != nil {
		comRelease(texture)
		return nil, fmt.Errorf("IDXGIResource::GetSharedHandle: %w", err)
	}
	if handle == 0 {
		comRelease(texture)
		return nil, fmt.Errorf("IDXGIResource::GetSharedHandle: null handle")
	}

	// The handle's validity is tied to the texture's reference count, and
	// the compositor holds the handle across the process boundary. Retain
	// an extra reference so a release on our side cannot invalidate the
	// handle out from under a consumer still bound to it.
	comAddRef(texture)

	return &d3d11Texture{ptr: texture, handle: handle, width: width, height: height}, nil
}

func (d *d3d11Device) Flush() {
	if d.context != 0 {
		comCall(d.context, d3d11ContextFlush)
	}
}

func (d *d3d11Device) Release() {
	if d.context != 0 {
		comRelease(d.context)
		d.context = 0
	}
	if d.device != 0 {
		comRelease(d.device)
		d.device = 0
	}
}

type d3d11Texture struct {
	ptr    uintptr // ID3D11Texture2D
	handle uintptr
	width  int32
	height int32
}

func (t *d3d11Texture) Width() int32          { return t.width }
func (t *d3d11Texture) Height() int32         { return t.height }
func (t *d3d11Texture) SharedHandle() uintptr { return t.handle }

// Release drops the creation reference. The extra reference retained for
// the shared handle keeps the texture alive while a consumer is still bound
// to it; the driver reclaims it with the device.
func (t *d3d11Texture) Release() {
	if t.ptr != 0 {
		comRelease(t.ptr)
		t.ptr = 0
		t.handle = 0
	}
}

// NewPlatformBackend returns the preferred backend for this host.
func NewPlatformBackend() Backend { return NewD3D11Backend() }
