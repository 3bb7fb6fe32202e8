package ledger

import (
	"errors"
	"regexp"
	"testing"
)

var base32Alphabet = regexp.MustCompile(`^[A-Z2-7]+$`)

func TestApplicationAddressKnownVectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		appID uint64
		want  string
	}{
		{0, "6X7XJO6FX3SHUK2OUL46QBQDSNO67RAFK6O73KJD4IVOMTSOIYANOIVWNU"},
		{1, "WCS6TVPJRBSARHLN2326LRU5BYVJZUKI2VJ53CAWKYYHDE455ZGKANWMGM"},
		{77, "PCYUFPA2ZTOYWTP43MX2MOX2OWAIAXUDNC2WFCXAGMRUZ3DYD6BWFDL5YM"},
		{3004419219, "DAMCNXMEQYNZLI42A4ZFVCY2DQH4HYY4WKJLU5OLXS6RCQKAHNVDIQGFAU"},
		{^uint64(0), "Y4XJFWY5NN4SWADFF5DPMVKURDRRM62FVVFTKJLGMWYLBKMK533YJNAPIU"},
	}

	for _, tt := range tests {
		if got := ApplicationAddress(tt.appID); got != tt.want {
			t.Errorf("ApplicationAddress(%d) = %s, want %s", tt.appID, got, tt.want)
		}
	}
}

func TestApplicationAddressDeterministic(t *testing.T) {
	t.Parallel()

	for _, id := range []uint64{0, 42, 1 << 40, ^uint64(0)} {
		a, b := ApplicationAddress(id), ApplicationAddress(id)
		if a != b {
			t.Errorf("ApplicationAddress(%d) not deterministic: %s vs %s", id, a, b)
		}
		if len(a) != AddressLen {
			t.Errorf("len(ApplicationAddress(%d)) = %d, want %d", id, len(a), AddressLen)
		}
		if !base32Alphabet.MatchString(a) {
			t.Errorf("ApplicationAddress(%d) = %q has characters outside A-Z2-7", id, a)
		}
		if !IsValidAddress(a) {
			t.Errorf("ApplicationAddress(%d) does not round-trip through DecodeAddress", id)
		}
	}
}

func TestEncodeAddress(t *testing.T) {
	t.Parallel()

	zero := make([]byte, 32)
	got, err := EncodeAddress(zero)
	if err != nil {
		t.Fatalf("EncodeAddress: %v", err)
	}
	if want := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ"; got != want {
		t.Errorf("EncodeAddress(zero) = %s, want %s", got, want)
	}

	seq := make([]byte, 32)
	for i := range seq {
		seq[i] = byte(i)
	}
	got, err = EncodeAddress(seq)
	if err != nil {
		t.Fatalf("EncodeAddress: %v", err)
	}
	if want := "AAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQTCQKRMFYYDENBWHA5DYP7MUPJQE"; got != want {
		t.Errorf("EncodeAddress(0..31) = %s, want %s", got, want)
	}
}

func TestEncodeAddressRejectsBadLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 31, 33, 64} {
		if _, err := EncodeAddress(make([]byte, n)); !errors.Is(err, ErrInvalidKeyLength) {
			t.Errorf("EncodeAddress(%d bytes) err = %v, want ErrInvalidKeyLength", n, err)
		}
	}
}

func TestDecodeAddress(t *testing.T) {
	t.Parallel()

	valid := "PCYUFPA2ZTOYWTP43MX2MOX2OWAIAXUDNC2WFCXAGMRUZ3DYD6BWFDL5YM"
	// last character flipped: still valid base-32, wrong checksum
	corrupt := valid[:57] + "A"

	tests := []struct {
		name    string
		addr    string
		wantErr error
	}{
		{"valid", valid, nil},
		{"too short", valid[:40], ErrInvalidAddress},
		{"bad alphabet", valid[:57] + "1", ErrInvalidAddress},
		{"checksum", corrupt, ErrChecksumMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pub, err := DecodeAddress(tt.addr)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("DecodeAddress err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && len(pub) != PublicKeyLen {
				t.Errorf("len(pub) = %d, want %d", len(pub), PublicKeyLen)
			}
		})
	}
}
