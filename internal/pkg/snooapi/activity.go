package snooapi

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

/*
 *   Snoo session levels and the activity snapshot pushed on the
 *   ActivityState.<serial> channel
 */

type Level string

const (
	LevelOnline          Level = "ONLINE"
	LevelBaseline        Level = "BASELINE"
	LevelWeaningBaseline Level = "WEANING_BASELINE"
	LevelOne             Level = "LEVEL1"
	LevelTwo             Level = "LEVEL2"
	LevelThree           Level = "LEVEL3"
	LevelFour            Level = "LEVEL4"

	// LevelNone is sent as a transition when there is nowhere to go
	LevelNone Level = "NONE"
)

var activeLevels = map[Level]bool{
	LevelBaseline:        true,
	LevelWeaningBaseline: true,
	LevelOne:             true,
	LevelTwo:             true,
	LevelThree:           true,
	LevelFour:            true,
}

// IsActive reports whether the level is a soothing level, ie. not ONLINE
// and not the NONE sentinel
func (l Level) IsActive() bool {
	return activeLevels[l]
}

func (l Level) String() string {
	return string(l)
}

type EventType string

const (
	EventActivity          EventType = "activity"
	EventCry               EventType = "cry"
	EventTimer             EventType = "timer"
	EventCommand           EventType = "command"
	EventSafetyClip        EventType = "safety_clip"
	EventStatusRequested   EventType = "status_requested"
	EventStickyWhiteNoise  EventType = "sticky_white_noise_updated"
	EventLongActivityPress EventType = "long_activity_press"
	EventPowerButtonPress  EventType = "power_button_press"
)

type Signal struct {
	RSSI     int `json:"rssi"`
	Strength int `json:"strength"`
}

// StateMachine is the device's view of the current soothing session
type StateMachine struct {
	State             Level
	Hold              bool
	UpTransition      Level
	DownTransition    Level
	SinceSessionStart time.Duration
	TimeLeft          time.Duration
	SessionID         string
	IsActiveSession   bool
	Weaning           bool
	StickyWhiteNoise  bool
	Audio             bool
}

// ActivityState is one activity snapshot
type ActivityState struct {
	StateMachine    StateMachine
	Event           EventType
	EventTime       time.Time
	LeftSafetyClip  bool
	RightSafetyClip bool
	RxSignal        Signal
	SystemState     string
	SwVersion       string
}

// Wire formats, as read from the channel
type stateMachineMarshal struct {
	UpTransition        Level  `json:"up_transition"`
	SinceSessionStartMs int64  `json:"since_session_start_ms"`
	StickyWhiteNoise    string `json:"sticky_white_noise"`
	Weaning             string `json:"weaning"`
	TimeLeft            int64  `json:"time_left"`
	SessionID           string `json:"session_id"`
	State               Level  `json:"state"`
	IsActiveSession     string `json:"is_active_session"`
	DownTransition      Level  `json:"down_transition"`
	Hold                string `json:"hold"`
	Audio               string `json:"audio"`
}

type activityStateMarshal struct {
	LeftSafetyClip  int                 `json:"left_safety_clip"`
	RxSignal        Signal              `json:"rx_signal"`
	RightSafetyClip int                 `json:"right_safety_clip"`
	SwVersion       string              `json:"sw_version"`
	EventTimeMs     int64               `json:"event_time_ms"`
	StateMachine    stateMachineMarshal `json:"state_machine"`
	SystemState     string              `json:"system_state"`
	Event           EventType           `json:"event"`
}

func onOff(s string) bool {
	switch s {
	case "on", "yes", "true":
		return true
	}

	return false
}

func millis(ms int64) time.Duration {
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (m *stateMachineMarshal) Unmarshal() StateMachine {
	up := m.UpTransition
	if up == "" {
		up = LevelNone
	}
	down := m.DownTransition
	if down == "" {
		down = LevelNone
	}

	return StateMachine{
		State:             m.State,
		Hold:              onOff(m.Hold),
		UpTransition:      up,
		DownTransition:    down,
		SinceSessionStart: millis(m.SinceSessionStartMs),
		TimeLeft:          time.Duration(m.TimeLeft) * time.Second,
		SessionID:         m.SessionID,
		IsActiveSession:   onOff(m.IsActiveSession),
		Weaning:           onOff(m.Weaning),
		StickyWhiteNoise:  onOff(m.StickyWhiteNoise),
		Audio:             onOff(m.Audio),
	}
}

func (m *activityStateMarshal) Unmarshal() ActivityState {
	v := ActivityState{
		StateMachine:    m.StateMachine.Unmarshal(),
		Event:           m.Event,
		LeftSafetyClip:  m.LeftSafetyClip != 0,
		RightSafetyClip: m.RightSafetyClip != 0,
		RxSignal:        m.RxSignal,
		SystemState:     m.SystemState,
		SwVersion:       m.SwVersion,
	}
	if m.EventTimeMs > 0 {
		v.EventTime = time.Unix(0, m.EventTimeMs*int64(time.Millisecond))
	}
	if v.StateMachine.TimeLeft < 0 {
		v.StateMachine.TimeLeft = 0
	}

	return v
}

// ParseActivityState decodes an activity snapshot from its JSON form
func ParseActivityState(data []byte) (*ActivityState, error) {
	m := activityStateMarshal{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parsing activity state")
	}

	if m.StateMachine.State == "" {
		return nil, errors.New("activity state has no state machine state")
	}

	v := m.Unmarshal()
	return &v, nil
}

// ActivityStateFromMessage decodes an activity snapshot from an already
// decoded JSON message, as delivered by the realtime channel
func ActivityStateFromMessage(msg interface{}) (*ActivityState, error) {
	switch v := msg.(type) {
	case []byte:
		return ParseActivityState(v)
	case string:
		return ParseActivityState([]byte(v))
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "re-encoding activity message")
	}

	return ParseActivityState(data)
}
