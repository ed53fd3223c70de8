// Command specgen renders an NSynth-style dataset into training material:
// one 4-channel spectrogram PNG per note plus a data.csv carrying the 14
// attribute columns the trainer conditions on.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/image/draw"
	"k8s.io/klog/v2"

	"specdiff/dataset"
	"specdiff/spectro"
)

var (
	flagExamples  = flag.String("examples", "nsynth/examples.json", "NSynth examples JSON describing the notes.")
	flagAudio     = flag.String("audio", "nsynth/audio", "Directory with one WAV per note.")
	flagOut       = flag.String("out", "data/specs", "Output directory for the PNGs and data.csv.")
	flagImageSize = flag.Int("image-size", 64, "Square output size; 0 keeps the native spectrogram size.")
	flagWindow    = flag.Int("window", 1024, "STFT window size in samples.")
	flagHop       = flag.Int("hop", 256, "STFT hop size in samples.")
	flagWorkers   = flag.Int("workers", 0, "Concurrent renderers; 0 = NumCPU-1.")
	flagLimit     = flag.Int("limit", 0, "Render at most this many notes; 0 = all.")
)

// note mirrors one entry of the NSynth examples JSON.
type note struct {
	Pitch            int   `json:"pitch"`
	Velocity         int   `json:"velocity"`
	InstrumentSource int   `json:"instrument_source"`
	InstrumentFamily int   `json:"instrument_family"`
	Qualities        []int `json:"qualities"`
}

// labels flattens a note into conditioning-vector order: pitch, velocity,
// source, family, then the ten quality flags.
func (n note) labels() []float32 {
	row := make([]float32, dataset.NumAttributes)
	row[0] = float32(n.Pitch)
	row[1] = float32(n.Velocity)
	row[2] = float32(n.InstrumentSource)
	row[3] = float32(n.InstrumentFamily)
	for i, q := range n.Qualities {
		row[4+i] = float32(q)
	}
	return row
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if err := run(); err != nil {
		klog.Fatalf("Fatal error: %+v", err)
	}
}

func run() error {
	notes, err := readExamples(*flagExamples)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(notes))
	for name, n := range notes {
		if len(n.Qualities) != 10 {
			klog.Warningf("skipping %s: expected 10 quality flags, got %d", name, len(n.Qualities))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if *flagLimit > 0 && len(names) > *flagLimit {
		names = names[:*flagLimit]
	}
	if len(names) == 0 {
		return fmt.Errorf("no renderable notes in %s", *flagExamples)
	}

	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	stftCfg := spectro.STFTConfig{WindowSize: *flagWindow, Hop: *flagHop}

	w := *flagWorkers
	if w <= 0 {
		w = runtime.NumCPU() - 1
		if w < 2 {
			w = 2
		}
	}

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(names)),
		mpb.PrependDecorators(
			decor.Name("Rendering: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	type result struct {
		name string
		err  error
	}
	jobs := make(chan string, len(names))
	results := make(chan result, len(names))

	var wg sync.WaitGroup
	for i := 0; i < w; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- result{name: name, err: renderNote(name, stftCfg)}
			}
		}()
	}
	for _, name := range names {
		jobs <- name
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	failed := make(map[string]bool)
	for r := range results {
		bar.Increment()
		if r.err != nil {
			failed[r.name] = true
			klog.Errorf("%s: %v", r.name, r.err)
		}
	}
	p.Wait()

	csvPath := filepath.Join(*flagOut, "data.csv")
	if err := writeCSV(csvPath, names, notes, failed); err != nil {
		return err
	}
	klog.Infof("rendered %d spectrograms (%d failed), wrote %s", len(names)-len(failed), len(failed), csvPath)
	return nil
}

func readExamples(path string) (map[string]note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	var notes map[string]note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse examples %s: %w", path, err)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("examples %s: no notes", path)
	}
	return notes, nil
}

// renderNote turns one note's WAV into a spectrogram PNG in the output dir.
func renderNote(name string, cfg spectro.STFTConfig) error {
	clip, err := spectro.ReadWAV(filepath.Join(*flagAudio, name+".wav"))
	if err != nil {
		return err
	}
	img, err := spectro.Render(clip, cfg, spectro.RenderConfig{})
	if err != nil {
		return err
	}

	out := image.Image(img)
	if size := *flagImageSize; size > 0 {
		if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
			dst := image.NewNRGBA(image.Rect(0, 0, size, size))
			draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
			out = dst
		}
	}

	f, err := os.Create(filepath.Join(*flagOut, name+".png"))
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeCSV emits the annotations file: a header of file plus the attribute
// names, then one row per successfully rendered note.
func writeCSV(path string, names []string, notes map[string]note, failed map[string]bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"file"}, dataset.AttributeNames[:]...)); err != nil {
		return err
	}
	for _, name := range names {
		if failed[name] {
			continue
		}
		rec := make([]string, 0, dataset.NumAttributes+1)
		rec = append(rec, name+".png")
		for _, v := range notes[name].labels() {
			rec = append(rec, strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
