// Command tlgplay renders a ZSEQ sequence to a WAV file through the engine's
// resource manager, voice bank, and sequence driver — a demo harness that
// exercises the whole stack the way a real playback host would.
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/pinebranch/brrengine/brr"
	"github.com/pinebranch/brrengine/instrument"
	"github.com/pinebranch/brrengine/resource"
	"github.com/pinebranch/brrengine/sample"
	"github.com/pinebranch/brrengine/voice"
	"github.com/pinebranch/brrengine/wav"
	"github.com/pinebranch/brrengine/zseq"
)

// ResourceFile names a resource manager id and the file that feeds it.
type ResourceFile struct {
	ID   uint64 `yaml:"id"`
	Path string `yaml:"path"`
}

// Config is tlgplay's session description: the sink format, the ZSEQ to
// play, and the instrument/sample files that back the resource ids the ZSEQ
// references.
type Config struct {
	SampleRate     uint32  `yaml:"sample_rate"`
	SamplesPerTick uint32  `yaml:"samples_per_tick"`
	MaxTicks       uint32  `yaml:"max_ticks"`
	VibratoHz      float64 `yaml:"vibrato_hz"`

	ZSEQPath   string `yaml:"zseq"`
	OutputPath string `yaml:"output"`

	Instruments []ResourceFile `yaml:"instruments"`
	Samples     []ResourceFile `yaml:"samples"`
}

// applyDefaults fills in a usable session when the config omits the render
// pacing fields — samples_per_tick and max_ticks have no single "correct"
// value the way a sample rate does, so tlgplay picks conservative ones
// rather than refusing to run.
func applyDefaults(cfg *Config) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 32000
	}
	if cfg.SamplesPerTick == 0 {
		cfg.SamplesPerTick = cfg.SampleRate / 60
	}
	if cfg.MaxTicks == 0 {
		// Bounds a REPEAT/JUMP sequence that never reaches STOP; without
		// this a malformed or intentionally looping ZSEQ renders forever.
		cfg.MaxTicks = 100000
	}
}

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to the session YAML config.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - render a ZSEQ sequence to a WAV file.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: tlgplay -c session.yaml\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "-c/--config is required")
		pflag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatal("reading config", "path", *configPath, "err", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		log.Fatal("parsing config", "path", *configPath, "err", err)
	}
	applyDefaults(&cfg)

	if err := render(&cfg); err != nil {
		log.Fatal("render failed", "err", err)
	}
}

func loadInstruments(manager *resource.Manager, files []ResourceFile) error {
	for _, f := range files {
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("reading instrument %s: %w", f.Path, err)
		}
		instRes := instrument.Deserialize(bytes.NewReader(raw))
		if !instRes.Ok() {
			return fmt.Errorf("parsing instrument %s: %s", f.Path, instRes.Status().Error())
		}
		if st := manager.Register(resource.MapID(f.ID), instRes.Unwrap(), 0, resource.DefaultPool); !st.IsOK() {
			return fmt.Errorf("registering instrument %d (%s): %s", f.ID, f.Path, st.Error())
		}
	}
	return nil
}

func loadSamples(manager *resource.Manager, files []ResourceFile) error {
	for _, f := range files {
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			return fmt.Errorf("reading sample %s: %w", f.Path, err)
		}
		fileRes := brr.Deserialize(bytes.NewReader(raw))
		if !fileRes.Ok() {
			return fmt.Errorf("parsing BRR sample %s: %s", f.Path, fileRes.Status().Error())
		}
		brrFile := fileRes.Unwrap()
		decoded := brr.DecodeTrimmed(brrFile)
		samp := sample.New(decoded, uint32(brrFile.SamplingRate), false)
		if st := manager.Register(resource.MapID(f.ID), samp, samp.ByteUsage(), resource.DefaultPool); !st.IsOK() {
			return fmt.Errorf("registering sample %d (%s): %s", f.ID, f.Path, st.Error())
		}
	}
	return nil
}

func clampInt16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func render(cfg *Config) error {
	zseqRaw, err := os.ReadFile(cfg.ZSEQPath)
	if err != nil {
		return fmt.Errorf("reading ZSEQ %s: %w", cfg.ZSEQPath, err)
	}
	payloadRes := zseq.Deserialize(bytes.NewReader(zseqRaw))
	if !payloadRes.Ok() {
		return fmt.Errorf("parsing ZSEQ %s: %s", cfg.ZSEQPath, payloadRes.Status().Error())
	}
	payload := payloadRes.Unwrap()
	defer payload.Close()

	manager := resource.NewManager()
	if err := loadInstruments(manager, cfg.Instruments); err != nil {
		return err
	}
	if err := loadSamples(manager, cfg.Samples); err != nil {
		return err
	}

	cyclesPerSample := cfg.VibratoHz / float64(cfg.SampleRate)
	driverRes := resource.NewDriver(payload, manager, func() *voice.Voice {
		return voice.New(cfg.SampleRate, voice.Oscillator{CyclesPerSample: cyclesPerSample})
	})
	if !driverRes.Ok() {
		return fmt.Errorf("building driver: %s", driverRes.Status().Error())
	}
	driver := driverRes.Unwrap()
	defer driver.Close()

	frameCount := int(cfg.SamplesPerTick)
	var mix []int16
	var sampleClock uint64
	lastLog := time.Now()

	var tick uint32
	for ; !driver.Done() && tick < cfg.MaxTicks; tick++ {
		if st := driver.Tick(1); !st.IsOK() {
			return fmt.Errorf("tick %d: %s", tick, st.Error())
		}

		accum := make([]int32, 2*frameCount)
		buf := make([]int16, 2*frameCount)
		for _, vo := range driver.Voices() {
			if st := vo.Provide(buf, frameCount, sampleClock); !st.IsOK() {
				log.Error("voice render error", "tick", tick, "err", st.Error())
				continue
			}
			for i, v := range buf {
				accum[i] += int32(v)
			}
		}
		sampleClock += uint64(frameCount)

		for _, v := range accum {
			mix = append(mix, clampInt16(v))
		}

		if time.Since(lastLog) > time.Second {
			ts, _ := strftime.Format("%Y-%m-%d %H:%M:%S", time.Now())
			log.Info("rendering", "tick", tick, "time", ts)
			lastLog = time.Now()
		}
	}
	if tick >= cfg.MaxTicks {
		log.Warn("render stopped at max_ticks without the sequence reaching STOP", "max_ticks", cfg.MaxTicks)
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", cfg.OutputPath, err)
	}
	defer out.Close()

	if st := wav.WriteStereo(out, cfg.SampleRate, mix); !st.IsOK() {
		return fmt.Errorf("writing %s: %s", cfg.OutputPath, st.Error())
	}

	log.Info("render complete", "ticks", tick, "frames", len(mix)/2, "output", cfg.OutputPath)
	return nil
}
