package fabric

import (
	"bytes"
	"encoding/binary"
	"image/jpeg"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestPreprocess(t *testing.T) {
	im := NewImage(2, 2)
	im.SetRGB(0, 0, [3]uint8{200, 100, 50})
	im.SetRGB(1, 0, [3]uint8{10, 20, 30})
	im.SetRGB(0, 1, [3]uint8{0, 0, 0})
	im.SetRGB(1, 1, [3]uint8{255, 255, 255})

	opts := PreprocessOptions{
		Dims: [2]int{2, 2},
		MeanBGR: [3]float32{104, 117, 123},
		Scale: 1,
	}
	out := im.Preprocess(opts)
	if len(out) != 12 {
		t.Fatalf("got %d values; want 12", len(out))
	}

	check := func(channel, i, j int, want float32) {
		got := out[channel*4+j*2+i]
		if got != want {
			t.Errorf("channel %d pixel (%d,%d) = %v; want %v", channel, i, j, got, want)
		}
	}
	// pixel (0,0) RGB (200,100,50): B plane 50-104, G plane 100-117, R plane 200-123
	check(0, 0, 0, 50-104)
	check(1, 0, 0, 100-117)
	check(2, 0, 0, 200-123)
	// pixel (1,1) RGB (255,255,255)
	check(0, 1, 1, 255-104)
	check(1, 1, 1, 255-117)
	check(2, 1, 1, 255-123)
}

func TestPreprocessResizesAndScales(t *testing.T) {
	// uniform image, so resizing cannot change any sample
	im := NewImage(10, 6)
	im.FillRectangle(0, 0, 10, 6, [3]uint8{50, 60, 70})

	out := im.Preprocess(PreprocessOptions{
		Dims: [2]int{4, 4},
		MeanBGR: [3]float32{0, 0, 0},
		Scale: 0.5,
	})
	if len(out) != 3*4*4 {
		t.Fatalf("got %d values; want %d", len(out), 3*4*4)
	}
	for idx, v := range out {
		var want float32
		switch idx / 16 {
		case 0:
			want = 70 * 0.5
		case 1:
			want = 60 * 0.5
		case 2:
			want = 50 * 0.5
		}
		if v != want {
			t.Fatalf("value %d = %v; want %v", idx, v, want)
		}
	}
}

func TestDefaultPreprocess(t *testing.T) {
	opts := DefaultPreprocess()
	if opts.Dims != [2]int{224, 224} {
		t.Errorf("dims = %v", opts.Dims)
	}
	if opts.MeanBGR != [3]float32{104, 117, 123} {
		t.Errorf("mean = %v", opts.MeanBGR)
	}
	if opts.Scale != 1 {
		t.Errorf("scale = %v", opts.Scale)
	}
}

func TestFloat32Bytes(t *testing.T) {
	vals := []float32{0, 1, -2.5}
	out := Float32Bytes(vals)
	if len(out) != 12 {
		t.Fatalf("got %d bytes; want 12", len(out))
	}
	for i, v := range vals {
		got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		if got != v {
			t.Errorf("value %d = %v; want %v", i, got, v)
		}
	}
}

func TestLoadImage(t *testing.T) {
	dir, err := ioutil.TempDir("", "image-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	src := NewImage(8, 6)
	src.FillRectangle(0, 0, 8, 6, [3]uint8{30, 40, 50})

	pngFname := filepath.Join(dir, "im.png")
	if err := ioutil.WriteFile(pngFname, src.AsPNG(), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src.AsImage(), nil); err != nil {
		t.Fatal(err)
	}
	jpgFname := filepath.Join(dir, "im.jpg")
	if err := ioutil.WriteFile(jpgFname, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	// both formats the classify inputs come in must decode
	for _, fname := range []string{pngFname, jpgFname} {
		im, err := LoadImage(fname)
		if err != nil {
			t.Fatalf("LoadImage(%s): %v", fname, err)
		}
		if im.Width != 8 || im.Height != 6 {
			t.Errorf("LoadImage(%s) dims = %dx%d; want 8x6", fname, im.Width, im.Height)
		}
	}

	if _, err := LoadImage(filepath.Join(dir, "nope.png")); err == nil {
		t.Errorf("LoadImage on missing file should fail")
	}
}

func TestResize(t *testing.T) {
	im := NewImage(4, 4)
	im.FillRectangle(0, 0, 2, 4, [3]uint8{255, 0, 0})
	im.FillRectangle(2, 0, 4, 4, [3]uint8{0, 0, 255})
	out := im.Resize(2, 2)
	if out.Width != 2 || out.Height != 2 {
		t.Fatalf("resize dims = %dx%d", out.Width, out.Height)
	}
	if out.GetRGB(0, 0) != [3]uint8{255, 0, 0} {
		t.Errorf("left half = %v", out.GetRGB(0, 0))
	}
	if out.GetRGB(1, 1) != [3]uint8{0, 0, 255} {
		t.Errorf("right half = %v", out.GetRGB(1, 1))
	}
}
