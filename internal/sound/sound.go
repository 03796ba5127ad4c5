// Package sound abstracts the audio cues the client fires on realtime
// events. The UI shell provides a real player; this core only decides
// when a cue should play.
package sound

type Cue string

const (
	CueNotification Cue = "notification"
	CueMuteOn       Cue = "mute-on"
	CueMuteOff      Cue = "mute-off"
	CueCallOn       Cue = "call-on"
	CueCallOff      Cue = "call-off"
)

type Player interface {
	Play(cue Cue)
}

// NopPlayer discards every cue, for headless runs.
type NopPlayer struct{}

func (NopPlayer) Play(Cue) {}
