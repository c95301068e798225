// Command brrtool encodes and decodes BRR files and dumps the headers of
// ZSEQ and INST resource files, for offline inspection of assets destined
// for the engine's resource manager.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/pinebranch/brrengine/brr"
	"github.com/pinebranch/brrengine/instrument"
	"github.com/pinebranch/brrengine/zseq"
)

func main() {
	var encode = pflag.BoolP("encode", "e", false, "Encode a raw signed 16-bit little-endian mono PCM file to BRR.")
	var decode = pflag.BoolP("decode", "x", false, "Decode a BRR file to raw signed 16-bit little-endian mono PCM.")
	var dumpZseq = pflag.BoolP("dump-zseq", "z", false, "Print a ZSEQ file's header fields.")
	var dumpInst = pflag.BoolP("dump-inst", "n", false, "Print an INST file's split table.")
	var input = pflag.StringP("input", "i", "", "Input file path.")
	var output = pflag.StringP("output", "o", "", "Output file path (required for -e/-x).")
	var sampleRate = pflag.UintP("sample-rate", "r", 32000, "Sampling rate to stamp on an encoded BRR file.")
	var pyramidHint = pflag.BoolP("pyramid-hint", "p", false, "Set the pyramid hint flag on an encoded BRR file.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - BRR/ZSEQ/INST asset inspection tool.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: brrtool (-e|-x|-z|-n) -i input [-o output] [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	actions := 0
	for _, set := range []bool{*encode, *decode, *dumpZseq, *dumpInst} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -e, -x, -z, -n must be given")
		pflag.Usage()
		os.Exit(1)
	}
	if *input == "" {
		fmt.Fprintln(os.Stderr, "-i/--input is required")
		pflag.Usage()
		os.Exit(1)
	}

	var err error
	switch {
	case *encode:
		err = runEncode(*input, *output, uint16(*sampleRate), *pyramidHint)
	case *decode:
		err = runDecode(*input, *output)
	case *dumpZseq:
		err = runDumpZSEQ(*input)
	case *dumpInst:
		err = runDumpInst(*input)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runEncode(input, output string, sampleRate uint16, pyramidHint bool) error {
	if output == "" {
		return fmt.Errorf("-o/--output is required for -e")
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	if len(raw)%2 != 0 {
		return fmt.Errorf("%s has an odd byte count, not valid 16-bit PCM", input)
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	f := brr.File{
		SamplingRate: sampleRate,
		PyramidHint:  pyramidHint,
		SampleCount:  uint32(len(samples)),
		Data:         brr.Encode(samples),
	}

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer out.Close()

	if st := brr.Serialize(out, f); !st.IsOK() {
		return fmt.Errorf("encoding %s: %s", output, st.Error())
	}
	fmt.Printf("wrote %s: %d samples, %d BRR bytes\n", output, f.SampleCount, len(f.Data))
	return nil
}

func runDecode(input, output string) error {
	if output == "" {
		return fmt.Errorf("-o/--output is required for -x")
	}
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer in.Close()

	fileRes := brr.Deserialize(in)
	if !fileRes.Ok() {
		return fmt.Errorf("decoding %s: %s", input, fileRes.Status().Error())
	}
	f := fileRes.Unwrap()
	samples := brr.DecodeTrimmed(f)

	raw := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(s))
	}
	if err := os.WriteFile(output, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("wrote %s: %d samples at %d Hz (pyramid hint: %v)\n", output, len(samples), f.SamplingRate, f.PyramidHint)
	return nil
}

func runDumpZSEQ(input string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer in.Close()

	payloadRes := zseq.Deserialize(in)
	if !payloadRes.Ok() {
		return fmt.Errorf("parsing %s: %s", input, payloadRes.Status().Error())
	}
	payload := payloadRes.Unwrap()
	defer payload.Close()

	fmt.Printf("instruments: %v\n", payload.InstrumentIDs())
	fmt.Printf("start tempo: %d\n", payload.StartTempo())
	fmt.Printf("channels: %d\n", payload.Channels())
	for i := 0; i < int(payload.Channels()); i++ {
		block := payload.ChannelBlock(i)
		fmt.Printf("  channel %d: priority=%d routing=%d start_instrument=%d note_offset=%d param_offset=%d\n",
			i, payload.ChannelPriority(i), payload.ChannelRouting(i), block.StartInstrument, block.NoteOffset, block.ParamOffset)
	}
	fmt.Printf("master offset: %d\n", payload.MasterOffset())
	return nil
}

func runDumpInst(input string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("opening %s: %w", input, err)
	}
	defer in.Close()

	instRes := instrument.Deserialize(in)
	if !instRes.Ok() {
		return fmt.Errorf("parsing %s: %s", input, instRes.Status().Error())
	}
	inst := instRes.Unwrap()

	for i, split := range inst.Splits() {
		if split.Characteristic == nil {
			fmt.Printf("split %d: sample=%d base_offset=%d (no loop/envelope override)\n", i, split.SampleID, split.BaseOffset)
			continue
		}
		fmt.Printf("split %d: sample=%d base_offset=%d loop=%+v envelope=%+v\n",
			i, split.SampleID, split.BaseOffset, split.Characteristic.Loop, split.Characteristic.Envelope)
	}
	return nil
}
