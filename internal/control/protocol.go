package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liuscraft/softmix/internal/mixer"
)

var (
	ErrUnknownAction = errors.New("control: unknown action")
	ErrUnknownStream = errors.New("control: unknown stream")
	ErrMissingField  = errors.New("control: missing field")
	ErrUnknownCurve  = errors.New("control: unknown fade curve")
)

// 协议中的动作名称
const (
	ActionPlay            = "play"
	ActionPlayEx          = "play_ex"
	ActionStop            = "stop"
	ActionPause           = "pause"
	ActionResume          = "resume"
	ActionRemove          = "remove"
	ActionStopAll         = "stop_all"
	ActionPauseAll        = "pause_all"
	ActionStartAll        = "start_all"
	ActionSetMasterVolume = "set_master_volume"
	ActionSetVolume       = "set_volume"
	ActionFade            = "fade"
	ActionStatus          = "status"
)

// 服务器推送的消息类型
const (
	TypeReply = "reply"
	TypeEvent = "event"

	EventStreamFinished = "stream_finished"
	EventBackendFailed  = "backend_failed"
)

// Request 客户端发送的一条 JSON 命令
type Request struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	Name   string `json:"name,omitempty"`

	Volume *float32 `json:"volume,omitempty"`
	Left   *float32 `json:"left,omitempty"`
	Right  *float32 `json:"right,omitempty"`
	Loop   bool     `json:"loop,omitempty"`

	// play_ex
	Duration float32  `json:"duration,omitempty"`
	FadeIn   *float32 `json:"fade_in,omitempty"`
	FadeOut  *float32 `json:"fade_out,omitempty"`
	Curve    string   `json:"curve,omitempty"`

	// fade
	To   float32 `json:"to,omitempty"`
	Hold bool    `json:"hold,omitempty"`
}

// Response 对请求的应答，或服务器主动推送的事件
type Response struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Playing      *bool                `json:"playing,omitempty"`
	MasterVolume *float32             `json:"master_volume,omitempty"`
	Streams      []mixer.StreamStatus `json:"streams,omitempty"`
	Stats        *mixer.Stats         `json:"stats,omitempty"`

	Event string `json:"event,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Controller 是控制协议用到的混音器操作，由 *mixer.Mixer 实现
type Controller interface {
	FindByName(name string) *mixer.Stream
	PlayByName(name string, volume float32, loop bool)
	PlayByNameWith(name string, p mixer.PlayParams)
	StopByName(name string)
	PauseByName(name string)
	ResumeByName(name string)
	RemoveByName(name string)
	StopAll()
	PauseAll()
	StartAll()
	IsPlayingByName(name string) bool
	SetMasterVolume(volume float32)
	MasterVolume() float32
	Volume(s *mixer.Stream) mixer.Volume
	SetVolumeByName(name string, v mixer.Volume)
	FadeByName(name string, p mixer.FadeParams) error
	Snapshot() []mixer.StreamStatus
	Stats() mixer.Stats
}

var _ Controller = (*mixer.Mixer)(nil)

// Dispatch 执行一条命令并生成应答
func Dispatch(ctrl Controller, req Request) Response {
	resp, err := dispatch(ctrl, req)
	resp.Type = TypeReply
	resp.ID = req.ID
	if err != nil {
		resp.OK = false
		resp.Error = err.Error()
		return resp
	}
	resp.OK = true
	return resp
}

func dispatch(ctrl Controller, req Request) (Response, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	switch action {
	case ActionStopAll:
		ctrl.StopAll()
		return Response{}, nil
	case ActionPauseAll:
		ctrl.PauseAll()
		return Response{}, nil
	case ActionStartAll:
		ctrl.StartAll()
		return Response{}, nil
	case ActionSetMasterVolume:
		if req.Volume == nil {
			return Response{}, fmt.Errorf("%w: volume", ErrMissingField)
		}
		ctrl.SetMasterVolume(*req.Volume)
		v := ctrl.MasterVolume()
		return Response{MasterVolume: &v}, nil
	case ActionStatus:
		return status(ctrl, req), nil
	case ActionPlay, ActionPlayEx, ActionStop, ActionPause, ActionResume,
		ActionRemove, ActionSetVolume, ActionFade:
	default:
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	// 以下动作都作用于单个已注册的流
	if req.Name == "" {
		return Response{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	s := ctrl.FindByName(req.Name)
	if s == nil {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownStream, req.Name)
	}

	switch action {
	case ActionPlay:
		volume := mixer.KeepVolume
		if req.Volume != nil {
			volume = *req.Volume
		}
		ctrl.PlayByName(req.Name, volume, req.Loop)
	case ActionPlayEx:
		p, err := playParams(req)
		if err != nil {
			return Response{}, err
		}
		ctrl.PlayByNameWith(req.Name, p)
	case ActionStop:
		ctrl.StopByName(req.Name)
	case ActionPause:
		ctrl.PauseByName(req.Name)
	case ActionResume:
		ctrl.ResumeByName(req.Name)
	case ActionRemove:
		ctrl.RemoveByName(req.Name)
	case ActionSetVolume:
		ctrl.SetVolumeByName(req.Name, mergeVolume(ctrl.Volume(s), req))
	case ActionFade:
		curve, ok := mixer.ParseFadeCurve(req.Curve)
		if !ok {
			return Response{}, fmt.Errorf("%w: %q", ErrUnknownCurve, req.Curve)
		}
		err := ctrl.FadeByName(req.Name, mixer.FadeParams{
			To:       req.To,
			Duration: req.Duration,
			Curve:    curve,
			Hold:     req.Hold,
		})
		if err != nil {
			return Response{}, err
		}
	}

	playing := ctrl.IsPlayingByName(req.Name)
	return Response{Playing: &playing, Name: req.Name}, nil
}

func playParams(req Request) (mixer.PlayParams, error) {
	p := mixer.DefaultPlayParams()
	p.Volume = mergeVolume(p.Volume, req)
	p.Duration = req.Duration
	p.Loop = req.Loop

	curve, ok := mixer.ParseFadeCurve(req.Curve)
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrUnknownCurve, req.Curve)
	}
	p.FadeCurve = curve

	if req.FadeIn != nil {
		p.Flags |= mixer.FlagFadeIn
		p.FadeIn = *req.FadeIn
	}
	if req.FadeOut != nil {
		p.Flags |= mixer.FlagFadeOut
		p.FadeOut = *req.FadeOut
	}
	return p, nil
}

// mergeVolume 用请求中给出的字段覆盖 v
func mergeVolume(v mixer.Volume, req Request) mixer.Volume {
	if req.Volume != nil {
		v.Global = max(0, *req.Volume)
	}
	if req.Left != nil {
		v.Left = max(0, *req.Left)
	}
	if req.Right != nil {
		v.Right = max(0, *req.Right)
	}
	return v
}

func status(ctrl Controller, req Request) Response {
	master := ctrl.MasterVolume()
	stats := ctrl.Stats()
	resp := Response{
		MasterVolume: &master,
		Streams:      ctrl.Snapshot(),
		Stats:        &stats,
	}
	if req.Name != "" {
		playing := ctrl.IsPlayingByName(req.Name)
		resp.Playing = &playing
		resp.Name = req.Name
	}
	return resp
}
