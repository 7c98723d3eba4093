package client

import (
	"encoding/json"

	"github.com/echoctl/echoctl/internal/core"
)

type deviceListResponse struct {
	Devices []core.Device `json:"devices"`
}

// PlayerState is the playback state of a single device.
type PlayerState struct {
	State    string          `json:"state"`
	InfoText *PlayerInfoText `json:"infoText"`
	Provider *PlayerProvider `json:"provider"`
	Volume   *PlayerVolume   `json:"volume"`
}

type PlayerInfoText struct {
	Title    string `json:"title"`
	SubText1 string `json:"subText1"`
	SubText2 string `json:"subText2"`
}

type PlayerProvider struct {
	ProviderName string `json:"providerName"`
}

type PlayerVolume struct {
	Volume int  `json:"volume"`
	Muted  bool `json:"muted"`
}

type playerStateResponse struct {
	PlayerInfo *PlayerState `json:"playerInfo"`
}

// MediaState is the media session state of a single device.
type MediaState struct {
	CurrentState  string `json:"currentState"`
	ProgressMS    int64  `json:"progressSeconds"`
	MediaLengthMS int64  `json:"mediaLength"`
	Muted         bool   `json:"muted"`
	VolumePercent int    `json:"volume"`
	ContentID     string `json:"contentId"`
	ProviderID    string `json:"providerId"`
}

// WakeWord associates a device with its configured trigger word.
type WakeWord struct {
	Active        bool   `json:"active"`
	DeviceSerial  string `json:"deviceSerialNumber"`
	DeviceType    string `json:"deviceType"`
	MidFieldState string `json:"midFieldState"`
	WakeWord      string `json:"wakeWord"`
}

type wakeWordsResponse struct {
	WakeWords []WakeWord `json:"wakeWords"`
}

// Notification is a timer, alarm or reminder set on a device.
type Notification struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	DeviceSerial  string `json:"deviceSerialNumber"`
	DeviceType    string `json:"deviceType"`
	AlarmTime     int64  `json:"alarmTime"`
	OriginalTime  string `json:"originalTime"`
	OriginalDate  string `json:"originalDate"`
	ReminderLabel string `json:"reminderLabel"`
	RemainingTime int64  `json:"remainingTime"`
	TriggerTime   int64  `json:"triggerTime"`
	CreatedDate   int64  `json:"createdDate"`
	Recurring     string `json:"recurringPattern"`
}

type notificationsResponse struct {
	Notifications []Notification `json:"notifications"`
}

// Activity is one record of the customer interaction history.
type Activity struct {
	ID               string `json:"id"`
	ActivityStatus   string `json:"activityStatus"`
	CreationTime     int64  `json:"creationTimestamp"`
	Description      string `json:"description"`
	RegisteredSerial string `json:"registeredDeviceSerialNumber"`
	RegisteredType   string `json:"registeredDeviceType"`
}

// Description decodes into summary and response text.
type activityDescription struct {
	Summary          string `json:"summary"`
	FirstUtteranceID string `json:"firstUtteranceId"`
	FirstStreamID    string `json:"firstStreamId"`
}

type activitiesResponse struct {
	Activities []Activity `json:"activities"`
}

// Summary extracts the spoken summary from the activity description
// blob, which is itself JSON encoded as a string.
func (a *Activity) Summary() string {
	if a.Description == "" {
		return ""
	}
	var desc activityDescription
	if err := json.Unmarshal([]byte(a.Description), &desc); err != nil {
		return ""
	}
	return desc.Summary
}

// DoNotDisturbState is the do-not-disturb setting of a single device.
type DoNotDisturbState struct {
	DeviceSerial string `json:"deviceSerialNumber"`
	DeviceType   string `json:"deviceType"`
	Enabled      bool   `json:"enabled"`
}

type doNotDisturbResponse struct {
	DoNotDisturbDeviceStatusList []DoNotDisturbState `json:"doNotDisturbDeviceStatusList"`
}

// Routine is a stored automation with its trigger utterances.
type Routine struct {
	AutomationID string           `json:"automationId"`
	Name         string           `json:"name"`
	Status       string           `json:"status"`
	Sequence     json.RawMessage  `json:"sequence"`
	Triggers     []RoutineTrigger `json:"triggers"`
}

type RoutineTrigger struct {
	Payload *RoutineTriggerPayload `json:"payload"`
}

type RoutineTriggerPayload struct {
	Utterance string `json:"utterance"`
}

// Utterances returns the non-empty trigger utterances of the routine.
func (r *Routine) Utterances() []string {
	var out []string
	for _, t := range r.Triggers {
		if t.Payload != nil && t.Payload.Utterance != "" {
			out = append(out, t.Payload.Utterance)
		}
	}
	return out
}

type startRoutineRequest struct {
	BehaviorID   string `json:"behaviorId"`
	SequenceJSON string `json:"sequenceJson"`
	Status       string `json:"status"`
}

type notificationVolumeRequest struct {
	DeviceSerial    string `json:"deviceSerialNumber"`
	DeviceType      string `json:"deviceType"`
	SoftwareVersion string `json:"softwareVersion"`
	VolumeLevel     int    `json:"volumeLevel"`
}

type behaviorPreviewRequest struct {
	BehaviorID   string `json:"behaviorId"`
	SequenceJSON string `json:"sequenceJson"`
	Status       string `json:"status"`
}
