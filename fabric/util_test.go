package fabric

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestClip(t *testing.T) {
	check := func(x, lo, hi, want int) {
		if got := Clip(x, lo, hi); got != want {
			t.Errorf("Clip(%d, %d, %d) = %d; want %d", x, lo, hi, got, want)
		}
	}
	check(5, 0, 10, 5)
	check(-3, 0, 10, 0)
	check(200, 0, 255, 200)
	check(300, 0, 255, 255)
}

func TestExt(t *testing.T) {
	check := func(fname string, want string) {
		if got := Ext(fname); got != want {
			t.Errorf("Ext(%s) = %s; want %s", fname, got, want)
		}
	}
	check("deploy.prototxt", "prototxt")
	check("model.caffemodel", "caffemodel")
	check("/some/dir/cat.jpg", "jpg")
	check("noext", "")
}

func TestParseInt(t *testing.T) {
	if got := ParseInt("42"); got != 42 {
		t.Errorf("ParseInt(42) = %d", got)
	}
	if got := ParseInt("-7"); got != -7 {
		t.Errorf("ParseInt(-7) = %d", got)
	}
}

func TestJSONFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "util-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fname := filepath.Join(dir, "options.json")

	options := map[string]interface{}{
		"dsp": 96.0,
		"usedeephi": true,
	}
	if err := WriteJSONFile(fname, options); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := ReadJSONFile(fname, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["dsp"] != 96.0 || decoded["usedeephi"] != true {
		t.Errorf("round trip = %v; want %v", decoded, options)
	}

	if err := ReadJSONFile(filepath.Join(dir, "missing.json"), &decoded); err == nil {
		t.Errorf("ReadJSONFile on missing file should fail")
	}
}

func TestCopyFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "util-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "src.caffemodel")
	dst := filepath.Join(dir, "dst.caffemodel")
	if err := ioutil.WriteFile(src, []byte("weights"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	bytes, err := ioutil.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes) != "weights" {
		t.Errorf("copied contents = %s; want weights", string(bytes))
	}

	if !FileExists(dst) {
		t.Errorf("FileExists(%s) = false after copy", dst)
	}
	if FileExists(filepath.Join(dir, "nope")) {
		t.Errorf("FileExists on missing file = true")
	}
}

func TestGetImageDimsFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "util-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	im := NewImage(320, 240)
	fname := filepath.Join(dir, "im.png")
	if err := ioutil.WriteFile(fname, im.AsPNG(), 0644); err != nil {
		t.Fatal(err)
	}
	dims, err := GetImageDimsFromFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if dims != [2]int{320, 240} {
		t.Errorf("dims = %v; want [320 240]", dims)
	}

	bad := filepath.Join(dir, "not-an-image.txt")
	if err := ioutil.WriteFile(bad, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := GetImageDimsFromFile(bad); err == nil {
		t.Errorf("GetImageDimsFromFile on text file should fail")
	}
}
