package transcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/RyanBlaney/sonido-align/logging"
	"github.com/RyanBlaney/sonido-align/pianoroll"
	"gitlab.com/gomidi/midi/v2/smf"
)

const drumChannel = 9

var (
	ErrUnsupportedTimeFormat = errors.New("transcode: only metric (ticks per quarter) time formats are supported")
	ErrNoNotes               = errors.New("transcode: no complete notes found")
)

// Score is the note content of a Standard MIDI File.
type Score struct {
	Events          []pianoroll.NoteEvent `json:"events"`
	Tracks          int                   `json:"tracks"`
	TicksPerQuarter int                   `json:"ticks_per_quarter"`
	TempoChanges    int                   `json:"tempo_changes"`
	Duration        float64               `json:"duration"` // seconds, end of the last note
	Dropped         int                   `json:"dropped"`  // note starts with no matching end
}

// DecoderConfig holds MIDI decoding options.
type DecoderConfig struct {
	SkipDrums bool `json:"skip_drums"` // ignore channel 10
	// Channels restricts decoding to these zero-based channels; empty means all.
	Channels []uint8 `json:"channels,omitempty"`
}

func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		SkipDrums: false,
	}
}

// Decoder converts Standard MIDI Files to note events.
type Decoder struct {
	config *DecoderConfig
}

func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeMIDI reads an SMF from r with the default configuration.
func DecodeMIDI(r io.Reader) ([]pianoroll.NoteEvent, error) {
	score, err := NewDecoder(nil).DecodeReader(r)
	if err != nil {
		return nil, err
	}
	return score.Events, nil
}

// DecodeMIDIFile reads the SMF at path with the default configuration.
func DecodeMIDIFile(path string) ([]pianoroll.NoteEvent, error) {
	score, err := NewDecoder(nil).DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return score.Events, nil
}

func (d *Decoder) DecodeFile(filename string) (*Score, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "midi_decoder",
		"function":  "DecodeFile",
		"file":      filename,
	})

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open MIDI file")
		return nil, fmt.Errorf("failed to open MIDI file: %w", err)
	}
	defer f.Close()

	return d.decode(f, logger)
}

func (d *Decoder) DecodeBytes(data []byte) (*Score, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "midi_decoder",
		"function":  "DecodeBytes",
		"size":      len(data),
	})
	return d.decode(bytes.NewReader(data), logger)
}

func (d *Decoder) DecodeReader(reader io.Reader) (*Score, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "midi_decoder",
		"function":  "DecodeReader",
	})
	return d.decode(reader, logger)
}

type noteKey struct {
	channel, key uint8
}

type openNote struct {
	tick     int64
	velocity uint8
}

type tickNote struct {
	pitch      int
	velocity   int
	start, end int64
}

func (d *Decoder) decode(r io.Reader, logger logging.Logger) (*Score, error) {
	logger.Debug("Starting MIDI decode")

	mf, err := smf.ReadFrom(r)
	if err != nil {
		logger.Error(err, "Failed to parse MIDI data")
		return nil, fmt.Errorf("failed to parse MIDI data: %w", err)
	}

	tpq, ok := mf.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrUnsupportedTimeFormat
	}

	var (
		notes   []tickNote
		dropped int
	)
	for ti, track := range mf.Tracks {
		open := make(map[noteKey][]openNote)
		var tick int64

		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				if !d.accepts(ch) {
					continue
				}
				k := noteKey{ch, key}
				open[k] = append(open[k], openNote{tick: tick, velocity: vel})
			case msg.GetNoteEnd(&ch, &key):
				k := noteKey{ch, key}
				pending := open[k]
				if len(pending) == 0 {
					continue
				}
				n := pending[0]
				open[k] = pending[1:]
				notes = append(notes, tickNote{
					pitch:    int(key),
					velocity: int(n.velocity),
					start:    n.tick,
					end:      tick,
				})
			}
		}

		for k, pending := range open {
			if len(pending) == 0 {
				continue
			}
			dropped += len(pending)
			logger.Warn("Dropping notes without a matching note end", logging.Fields{
				"track":   ti,
				"channel": k.channel,
				"key":     k.key,
				"count":   len(pending),
			})
		}
	}

	if len(notes) == 0 {
		return nil, ErrNoNotes
	}

	score := &Score{
		Events:          make([]pianoroll.NoteEvent, 0, len(notes)),
		Tracks:          len(mf.Tracks),
		TicksPerQuarter: int(tpq),
		TempoChanges:    len(mf.TempoChanges()),
		Dropped:         dropped,
	}
	for _, n := range notes {
		on := seconds(mf, n.start)
		off := seconds(mf, n.end)
		score.Events = append(score.Events, pianoroll.NoteEvent{
			Pitch:    n.pitch,
			Onset:    on,
			Velocity: n.velocity,
			Duration: off - on,
		})
		score.Duration = max(score.Duration, off)
	}

	sort.SliceStable(score.Events, func(i, j int) bool {
		if score.Events[i].Onset != score.Events[j].Onset {
			return score.Events[i].Onset < score.Events[j].Onset
		}
		return score.Events[i].Pitch < score.Events[j].Pitch
	})

	logger.Debug("MIDI decode completed", logging.Fields{
		"notes":         len(score.Events),
		"tracks":        score.Tracks,
		"tempo_changes": score.TempoChanges,
		"dropped":       dropped,
		"duration":      score.Duration,
	})
	return score, nil
}

// seconds converts an absolute tick using the file's tempo map. Time before
// the first tempo event runs at 120 BPM.
func seconds(mf *smf.SMF, tick int64) float64 {
	return float64(mf.TimeAt(tick)) / 1e6
}

func (d *Decoder) accepts(channel uint8) bool {
	if d.config.SkipDrums && channel == drumChannel {
		return false
	}
	if len(d.config.Channels) > 0 {
		return slices.Contains(d.config.Channels, channel)
	}
	return true
}
