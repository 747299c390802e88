package video

import (
	"fmt"

	"github.com/go-drift/media/pkg/errors"
	"github.com/go-drift/media/pkg/platform"
)

// ChannelName is the method channel the framework side uses to drive video
// outputs.
const ChannelName = "media/video_output"

// Plugin exposes the manager over a method channel. Incoming calls create,
// resize, and dispose outputs; texture updates flow back to the framework
// as "VideoOutput.OnTextureUpdate" invocations.
type Plugin struct {
	manager *Manager
	channel *platform.MethodChannel
}

// NewPlugin wires the manager to the "media/video_output" channel.
func NewPlugin(manager *Manager) *Plugin {
	p := &Plugin{
		manager: manager,
		channel: platform.NewMethodChannel(ChannelName),
	}
	p.channel.SetHandler(p.handleMethodCall)
	return p
}

// Manager returns the plugin's output manager.
func (p *Plugin) Manager() *Manager { return p.manager }

// Close tears down every output owned by the plugin.
func (p *Plugin) Close() {
	p.manager.Close()
}

func (p *Plugin) handleMethodCall(method string, args any) (any, error) {
	params, _ := args.(map[string]any)

	switch method {
	case "VideoOutputManager.Create":
		return p.create(params)
	case "VideoOutputManager.Dispose":
		return p.dispose(params)
	case "VideoOutputManager.SetSurfaceSize":
		return p.setSurfaceSize(params)
	default:
		return nil, platform.ErrMethodNotFound
	}
}

func (p *Plugin) create(params map[string]any) (any, error) {
	player, err := argInt64(params, "handle")
	if err != nil {
		return nil, err
	}

	output, err := p.manager.Create(player, func(wid uintptr, width, height int32) {
		_, err := p.channel.Invoke("VideoOutput.OnTextureUpdate", map[string]any{
			"handle": player,
			"wid":    int64(wid),
			"width":  width,
			"height": height,
		})
		if err != nil {
			errors.Report(&errors.MediaError{
				Op:      "video.Plugin.textureUpdate",
				Kind:    errors.KindPlatform,
				Err:     err,
				Channel: ChannelName,
			})
		}
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{"viewId": output.ViewID()}, nil
}

func (p *Plugin) dispose(params map[string]any) (any, error) {
	player, err := argInt64(params, "handle")
	if err != nil {
		return nil, err
	}
	return nil, p.manager.Dispose(player)
}

func (p *Plugin) setSurfaceSize(params map[string]any) (any, error) {
	player, err := argInt64(params, "handle")
	if err != nil {
		return nil, err
	}
	width, err := argInt64(params, "width")
	if err != nil {
		return nil, err
	}
	height, err := argInt64(params, "height")
	if err != nil {
		return nil, err
	}
	return nil, p.manager.SetSurfaceSize(player, int32(width), int32(height))
}

// argInt64 extracts an integer argument. The JSON codec decodes numbers as
// float64, so both forms are accepted.
func argInt64(params map[string]any, key string) (int64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", platform.ErrInvalidArguments, key)
	}
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %q must be a number, got %T", platform.ErrInvalidArguments, key, v)
	}
}
