package resource

import (
	"github.com/pinebranch/brrengine/instrument"
	"github.com/pinebranch/brrengine/sample"
	"github.com/pinebranch/brrengine/status"
	"github.com/pinebranch/brrengine/voice"
	"github.com/pinebranch/brrengine/zseq"
)

// channelState is one ZSEQ channel's voice plus its note/parameter playlist
// pair and the bookkeeping Tick needs to pace them.
type channelState struct {
	voice  *voice.Voice
	params *voice.Parameters

	currentInstrument uint8

	note     *zseq.NotePlaylist
	noteDone bool
	noteRest uint16

	param     *zseq.ParameterPlaylist
	paramDone bool
	paramRest uint16

	holdPending bool
	holdRemain  uint16
}

// Driver is the sequence-to-voice glue described in zsequence.h's usage
// comment: one voice per channel, fed by that channel's note and parameter
// playlists, with a master playlist layered on top. It has no invariants of
// its own beyond the base voice contract — never touch a Driver (or the
// voices underneath it) from two goroutines at once.
type Driver struct {
	manager *Manager

	payload  *zseq.Payload
	channels []*channelState

	master     *zseq.MasterPlaylist
	masterDone bool
	masterRest uint16
	tempo      uint8

	lastStatus status.Status
}

// NewDriver builds a Driver for payload: one voice per channel (via
// newVoice), instruments and samples resolved from manager by the resource
// ids payload.InstrumentIDs() and the splits they contain.
func NewDriver(payload *zseq.Payload, manager *Manager, newVoice func() *voice.Voice) status.Result[*Driver] {
	d := &Driver{manager: manager, payload: payload, tempo: payload.StartTempo()}

	for i := 0; i < int(payload.Channels()); i++ {
		block := payload.ChannelBlock(i)
		cs := &channelState{
			voice:             newVoice(),
			params:            &voice.Parameters{Volume: 1, Pan: 0},
			currentInstrument: block.StartInstrument,
		}
		cs.voice.ArmParameters(cs.params)
		cs.voice.ArmSample(nil)

		channelIndex := i
		noteRes := zseq.NewNotePlaylist(payload, block.NoteOffset, zseq.NoteCallbacks{
			Rest: func(ticks uint16) { d.channels[channelIndex].noteRest = ticks },
			Articulate: func(noteOffset int16, velocity float64, holdDuration, totalDuration uint16) {
				d.articulate(d.channels[channelIndex], noteOffset, velocity, holdDuration, totalDuration)
			},
		})
		if !noteRes.Ok() {
			return status.Err[*Driver](noteRes.Status())
		}
		cs.note = noteRes.Unwrap()

		paramRes := zseq.NewParameterPlaylist(payload, block.ParamOffset, zseq.ParameterCallbacks{
			Rest:         func(ticks uint16) { d.channels[channelIndex].paramRest = ticks },
			Volume:       func(v float64, _ uint16) { cs.params.Volume = v },
			Pan:          func(v float64, _ uint16) { cs.params.Pan = v },
			PitchShift:   func(v float64, _ uint16) { cs.voice.SetPitchShift(v) },
			VibratoRange: func(v float64, _ uint16) { cs.voice.SetVibratoRange(v) },
			Instrument:   func(idx uint8, _ uint16) { cs.currentInstrument = idx },
		})
		if !paramRes.Ok() {
			noteRes.Unwrap().Close()
			return status.Err[*Driver](paramRes.Status())
		}
		cs.param = paramRes.Unwrap()

		d.channels = append(d.channels, cs)
	}

	masterRes := zseq.NewMasterPlaylist(payload, payload.MasterOffset(), zseq.MasterCallbacks{
		Rest:       func(ticks uint16) { d.masterRest = ticks },
		Volume:     func(v float64, _ uint16) { d.broadcast(func(cs *channelState) { cs.params.Volume = v }) },
		Pan:        func(v float64, _ uint16) { d.broadcast(func(cs *channelState) { cs.params.Pan = v }) },
		PitchShift: func(v float64, _ uint16) { d.broadcast(func(cs *channelState) { cs.voice.SetPitchShift(v) }) },
		Tempo:      func(t uint8, _ uint16) { d.tempo = t },
	})
	if !masterRes.Ok() {
		d.closeChannels()
		return status.Err[*Driver](masterRes.Status())
	}
	d.master = masterRes.Unwrap()

	return status.From(d)
}

func (d *Driver) broadcast(f func(cs *channelState)) {
	for _, cs := range d.channels {
		f(cs)
	}
}

// articulate resolves the sounding instrument's split for noteOffset,
// resolves that split's sample, and (re)arms and plays the channel's voice.
// Resolving the sample pointer through the manager only for the duration of
// this call is safe: resourcemanager.h's own ResourceEntry comment notes a
// resource's address is stable for the lifetime of its mapping, so the
// voice can hold the bare pointer afterward without a live handle.
func (d *Driver) articulate(cs *channelState, noteOffset int16, velocity float64, holdDuration, totalDuration uint16) {
	instID := d.instrumentID(cs.currentInstrument)
	instHandle := Get[*instrument.Instrument](d.manager, MapID(instID))
	if !instHandle.Ok() {
		d.lastStatus = instHandle.Status()
		return
	}
	inst := instHandle.Unwrap().Value()
	instHandle.Unwrap().Release()

	split := inst.Characteristics(noteOffset)
	sampleHandle := Get[*sample.Sample](d.manager, MapID(split.SampleID))
	if !sampleHandle.Ok() {
		d.lastStatus = sampleHandle.Status()
		return
	}
	s := sampleHandle.Unwrap().Value()
	sampleHandle.Unwrap().Release()

	cs.voice.Stop()
	cs.voice.ArmSample(s)
	if split.Characteristic != nil {
		loopSpec := split.Characteristic.Loop
		loopInfo, st := sample.NewLoopInfo(loopSpec.Mode, loopSpec.Begin, loopSpec.Length, len(s.Layer(0)), s.Levels())
		if !st.IsOK() {
			d.lastStatus = st
			return
		}
		cs.voice.ArmLoop(&loopInfo)
		cs.voice.ArmEnvelope(&split.Characteristic.Envelope)
	} else {
		cs.voice.ArmLoop(nil)
		cs.voice.ArmEnvelope(nil)
	}
	cs.voice.ArmParameters(cs.params)

	semitones := float64(noteOffset - split.BaseOffset)
	if st := cs.voice.Play(semitones, velocity); !st.IsOK() {
		d.lastStatus = st
	}

	cs.holdPending = true
	cs.holdRemain = holdDuration
	_ = totalDuration // unused: the hold length comes from holdDuration
}

func (d *Driver) instrumentID(index uint8) uint64 {
	ids := d.payload.InstrumentIDs()
	if int(index) >= len(ids) {
		return 0
	}
	return ids[index]
}

// Voices returns each channel's voice, in channel order, so a renderer can
// pull PCM from them directly once Tick has advanced the sequence.
func (d *Driver) Voices() []*voice.Voice {
	voices := make([]*voice.Voice, len(d.channels))
	for i, cs := range d.channels {
		voices[i] = cs.voice
	}
	return voices
}

// Tempo reports the most recently set tempo value.
func (d *Driver) Tempo() uint8 { return d.tempo }

// Status exposes the most recent articulation or playlist error, if any.
func (d *Driver) Status() status.Status { return d.lastStatus }

// Tick advances the sequence by n ticks, driving each channel's note and
// parameter playlists and the master playlist, and releasing any voice
// whose hold duration has elapsed.
func (d *Driver) Tick(n uint16) status.Status {
	for i := uint16(0); i < n; i++ {
		if !d.masterDone {
			if d.masterRest == 0 {
				done, st := d.master.Advance()
				if !st.IsOK() {
					return st
				}
				d.masterDone = done
			} else {
				d.masterRest--
			}
		}

		for _, cs := range d.channels {
			if !cs.noteDone {
				if cs.noteRest == 0 {
					done, st := cs.note.Advance()
					if !st.IsOK() {
						return st
					}
					cs.noteDone = done
				} else {
					cs.noteRest--
				}
			}
			if !cs.paramDone {
				if cs.paramRest == 0 {
					done, st := cs.param.Advance()
					if !st.IsOK() {
						return st
					}
					cs.paramDone = done
				} else {
					cs.paramRest--
				}
			}
			if cs.holdPending {
				if cs.holdRemain == 0 {
					cs.voice.Release()
					cs.holdPending = false
				} else {
					cs.holdRemain--
				}
			}
		}
	}
	return status.Ok()
}

// Done reports whether every playlist (master and all channels) has run to
// completion.
func (d *Driver) Done() bool {
	if !d.masterDone {
		return false
	}
	for _, cs := range d.channels {
		if !cs.noteDone || !cs.paramDone {
			return false
		}
	}
	return true
}

func (d *Driver) closeChannels() {
	for _, cs := range d.channels {
		cs.note.Close()
		cs.param.Close()
	}
}

// Close releases this driver's playlist references on its payload.
func (d *Driver) Close() {
	d.closeChannels()
	d.master.Close()
}
