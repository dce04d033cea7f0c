package events

// EventType 事件类型
type EventType int

const (
	// EventTypeStreamFinished 音频流播放完毕（非循环流播放到结尾）
	EventTypeStreamFinished EventType = iota + 1
	// EventTypeBackendFailed 输出后端提交失败，投递循环已退出
	EventTypeBackendFailed
)

func (t EventType) String() string {
	switch t {
	case EventTypeStreamFinished:
		return "stream_finished"
	case EventTypeBackendFailed:
		return "backend_failed"
	default:
		return "unknown"
	}
}

// StreamFinished 音频流播放完毕事件
type StreamFinished struct {
	Name string
}

func (StreamFinished) Type() EventType { return EventTypeStreamFinished }

// BackendFailed 输出后端失败事件
type BackendFailed struct {
	Err error
}

func (BackendFailed) Type() EventType { return EventTypeBackendFailed }
