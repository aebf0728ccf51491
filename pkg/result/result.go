package result

// Event codes reported by asynchronous tasks.
const (
	EventStarted   = 1
	EventCompleted = 2
)

// Error codes for failures that did not come with a server status code.
const (
	CodeUnknown         = -1
	CodeClosed          = -2
	CodeTimeout         = -3
	CodeCanceled        = -4
	CodeInvalidArgument = -5
)

type Event struct {
	Message string
	Code    int
}

type Error struct {
	Message string
	Code    int
}

// Result is one notification produced by an asynchronous task. Any
// combination of event, debug, error and payload may be present.
type Result struct {
	UID     string
	Event   *Event
	Debug   string
	Error   *Error
	Payload string
}

type Callback func(Result)

func (r Result) IsEvent() bool {
	return r.Event != nil
}

func (r Result) IsDebug() bool {
	return r.Debug != ""
}

func (r Result) IsError() bool {
	return r.Error != nil
}

// Available reports whether the result carries a response payload.
func (r Result) Available() bool {
	return r.Payload != ""
}

func (r Result) IsResult() bool {
	return r.IsEvent() || r.IsDebug() || r.IsError() || r.Available()
}
