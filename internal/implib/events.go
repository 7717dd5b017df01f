package implib

import "time"

// Stage describes a generation phase.
type Stage string

const (
	// StageSelect is the export-table selection stage.
	StageSelect Stage = "select"
	// StageWriteDef is the definition file write stage.
	StageWriteDef Stage = "write-def"
	// StageResolve is the toolchain resolution stage.
	StageResolve Stage = "resolve"
	// StageTool is the external tool invocation stage.
	StageTool Stage = "tool"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the request is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is currently running.
	StatusWorking Status = "working"
	// StatusDone indicates the request finished.
	StatusDone Status = "done"
	// StatusError indicates the request failed.
	StatusError Status = "error"
)

// Event reports progress for one library (identified by its file
// stem, e.g. "python313t").
type Event struct {
	Stem    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emitStage(sink ProgressSink, stem string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stem: stem, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// Timings holds stage durations for one generation.
type Timings struct {
	stages map[Stage]time.Duration
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] = dur
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Total returns the sum of all recorded stage durations.
func (t Timings) Total() time.Duration {
	var total time.Duration
	for _, dur := range t.stages {
		total += dur
	}
	return total
}
