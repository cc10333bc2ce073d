package color

import "testing"

func TestParseNamed(t *testing.T) {
	c := Parse("Red")
	if c != (RGB{255, 0, 0}) {
		t.Fatalf("expected red, got %v", c)
	}
}

func TestParseHex(t *testing.T) {
	c := Parse("#00FF80")
	if c != (RGB{0x00, 0xFF, 0x80}) {
		t.Fatalf("unexpected parse result: %v", c)
	}
}

func TestParseRGBExpr(t *testing.T) {
	c := Parse("rgb(10, 20, 300)")
	if c != (RGB{10, 20, 255}) {
		t.Fatalf("expected clamp to 255, got %v", c)
	}
}

func TestParseInvalidDefaultsWhite(t *testing.T) {
	c := Parse("not-a-color")
	if c != (RGB{255, 255, 255}) {
		t.Fatalf("expected white fallback, got %v", c)
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	c := FromMIDI(64, 32, 127)
	r, g, b := c.ToMIDI()
	if r != 64 || g != 32 || b != 127 {
		t.Fatalf("round trip mismatch: %d %d %d", r, g, b)
	}
}

func TestNearest(t *testing.T) {
	name, _ := Nearest(RGB{250, 5, 5}, Named)
	if name != "red" {
		t.Fatalf("expected nearest to be red, got %s", name)
	}
}
