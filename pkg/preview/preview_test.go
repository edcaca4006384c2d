package preview

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/nomadaudio/engine/pkg/samplepool"
)

func writeChunk(buf *bytes.Buffer, id string, body []byte) {
	buf.WriteString(id)
	binary.Write(buf, binary.LittleEndian, uint32(len(body)))
	buf.Write(body)
	if len(body)%2 == 1 {
		buf.WriteByte(0)
	}
}

func pcmFmtBody(channels, rate, bits uint16) []byte {
	body := make([]byte, 16)
	binary.LittleEndian.PutUint16(body[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(body[2:4], channels)
	binary.LittleEndian.PutUint32(body[4:8], uint32(rate))
	byteRate := uint32(rate) * uint32(channels) * uint32(bits) / 8
	binary.LittleEndian.PutUint32(body[8:12], byteRate)
	binary.LittleEndian.PutUint16(body[12:14], channels*bits/8)
	binary.LittleEndian.PutUint16(body[14:16], bits)
	return body
}

// buildTestWAV writes a stereo 16-bit PCM sine tone of numFrames at rate and
// returns its path.
func buildTestWAV(t *testing.T, numFrames, rate int, channels int) string {
	t.Helper()
	data := make([]byte, numFrames*channels*2)
	for i := 0; i < numFrames; i++ {
		v := int16(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(data[(i*channels+c)*2:], uint16(v))
		}
	}

	var chunks bytes.Buffer
	chunks.WriteString("WAVE")
	writeChunk(&chunks, "fmt ", pcmFmtBody(uint16(channels), uint16(rate), 16))
	writeChunk(&chunks, "data", data)

	var file bytes.Buffer
	file.WriteString("RIFF")
	binary.Write(&file, binary.LittleEndian, uint32(chunks.Len()))
	file.Write(chunks.Bytes())

	path := filepath.Join(t.TempDir(), "preview.wav")
	if err := os.WriteFile(path, file.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestPlayThenProcessProducesNonSilentOutput(t *testing.T) {
	e := New(samplepool.New())
	e.SetOutputSampleRate(48000)
	path := buildTestWAV(t, 48000, 48000, 2)

	if err := e.Play(path, 0, 0); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !e.IsPlaying() {
		t.Fatal("IsPlaying() = false right after Play")
	}

	// Render past the 20ms fade-in (~960 frames at 48kHz) before checking
	// for non-silent output.
	out := make([]float32, 2000*2)
	e.Process(out, 2000)

	anyNonZero := false
	for _, v := range out[1000:] {
		if v != 0 {
			anyNonZero = true
			break
		}
	}
	if !anyNonZero {
		t.Fatal("expected non-silent output after fade-in window")
	}
}

func TestFadeInRampsFromZero(t *testing.T) {
	e := New(samplepool.New())
	e.SetOutputSampleRate(48000)
	path := buildTestWAV(t, 48000, 48000, 2)
	if err := e.Play(path, 0, 0); err != nil {
		t.Fatalf("Play: %v", err)
	}

	out := make([]float32, 10*2)
	e.Process(out, 10)
	if out[0] != 0 {
		t.Errorf("first frame should be silent (fade-in starts at 0), got %f", out[0])
	}
}

func TestStopTriggersFadeOutThenReleasesVoice(t *testing.T) {
	e := New(samplepool.New())
	e.SetOutputSampleRate(48000)
	path := buildTestWAV(t, 48000, 48000, 2)
	if err := e.Play(path, 0, 0); err != nil {
		t.Fatalf("Play: %v", err)
	}

	// Clear the fade-in first so Stop's fade-out is the only thing fading.
	warm := make([]float32, 4000*2)
	e.Process(warm, 2000)

	e.Stop()

	completed := false
	e.SetOnComplete(func(p string) {
		completed = true
		if p != path {
			t.Errorf("onComplete path = %q, want %q", p, path)
		}
	})

	// 50ms fade-out at 48kHz is 2400 frames; process well past that.
	out := make([]float32, 6000*2)
	e.Process(out, 3000)

	if e.IsPlaying() {
		t.Fatal("expected voice released after fade-out completes")
	}
	if !completed {
		t.Fatal("onComplete callback was not invoked")
	}
}

func TestMaxSecondsCapStopsPlayback(t *testing.T) {
	e := New(samplepool.New())
	e.SetOutputSampleRate(48000)
	path := buildTestWAV(t, 48000*2, 48000, 2) // 2 second file

	if err := e.Play(path, 0, 0.01); err != nil { // 10ms cap
		t.Fatalf("Play: %v", err)
	}

	// One block advances elapsedSeconds past the cap and starts the fade-out;
	// enough subsequent processing finishes the fade-out and releases the voice.
	out := make([]float32, 10000*2)
	e.Process(out, 500)
	e.Process(out, 4000)

	if e.IsPlaying() {
		t.Fatal("expected playback to stop once maxSeconds elapsed and fade-out completed")
	}
}

func TestPlayReplacesActiveVoice(t *testing.T) {
	e := New(samplepool.New())
	e.SetOutputSampleRate(48000)
	pathA := buildTestWAV(t, 48000, 48000, 2)

	if err := e.Play(pathA, 0, 0); err != nil {
		t.Fatalf("Play A: %v", err)
	}

	pathB := filepath.Join(t.TempDir(), "other.wav")
	mustCopy(t, pathA, pathB)

	if err := e.Play(pathB, 0, 0); err != nil {
		t.Fatalf("Play B: %v", err)
	}
	if !e.IsPlaying() {
		t.Fatal("expected a voice to be active after replacing")
	}
}

func TestForceStereoDownmixesMultichannel(t *testing.T) {
	// 4-channel interleaved: L R C LFE, one frame.
	data := []float32{0.4, 0.2, 0.3, 0.1}
	out, channels := forceStereo(data, 4)
	if channels != 2 {
		t.Fatalf("channels = %d, want 2", channels)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	wantL := float32(0.4 + 0.3*0.7071 + 0.1*0.5)
	wantR := float32(0.2 + 0.3*0.7071 + 0.1*0.5)
	if diff := out[0] - wantL; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("left = %f, want %f", out[0], wantL)
	}
	if diff := out[1] - wantR; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("right = %f, want %f", out[1], wantR)
	}
}

func TestForceStereoDuplicatesMono(t *testing.T) {
	out, channels := forceStereo([]float32{0.5, -0.5}, 1)
	if channels != 2 {
		t.Fatalf("channels = %d, want 2", channels)
	}
	want := []float32{0.5, 0.5, -0.5, -0.5}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("out[%d] = %f, want %f", i, out[i], v)
		}
	}
}

func mustCopy(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
