package multibase

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		[]byte("the quick brown fox jumps over the lazy dog"),
	}
	for _, data := range cases {
		encoded := Encode(data)
		if len(encoded) == 0 || encoded[0] != Base58btcPrefix {
			t.Fatalf("Encode(%v) = %q, want leading %q", data, encoded, string(Base58btcPrefix))
		}
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%q): %v", encoded, err)
		}
		if string(decoded) != string(data) {
			t.Fatalf("round trip mismatch: got %v, want %v", decoded, data)
		}
	}
}

func TestDecodeRejectsUnsupportedPrefix(t *testing.T) {
	if _, err := Decode("mabc123"); err == nil {
		t.Fatal("expected error for non-base58btc prefix")
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}
