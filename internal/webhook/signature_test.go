package webhook

import (
	"strings"
	"testing"
)

// Known vector: HMAC-SHA1("s3cr3t", "foo=bar").
const knownSignature = "303ae8ce15477fc4c92188df5bd5f9dfa2d4aaba"

func TestVerifyHMACSignature(t *testing.T) {
	body := []byte("foo=bar")
	secret := "s3cr3t"

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		wantErr   bool
	}{
		{
			name:      "valid plain hex",
			body:      body,
			signature: knownSignature,
			secret:    secret,
		},
		{
			name:      "valid sha1 prefix",
			body:      body,
			signature: "sha1=" + knownSignature,
			secret:    secret,
		},
		{
			name:      "single character mutation rejected",
			body:      body,
			signature: "0" + knownSignature[1:],
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "wrong secret rejected",
			body:      body,
			signature: knownSignature,
			secret:    "other",
			wantErr:   true,
		},
		{
			name:      "tampered body rejected",
			body:      []byte("foo=baz"),
			signature: knownSignature,
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "empty signature rejected",
			body:      body,
			signature: "",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "empty secret rejected",
			body:      body,
			signature: knownSignature,
			secret:    "",
			wantErr:   true,
		},
		{
			name:      "invalid hex rejected",
			body:      body,
			signature: "not-hex!",
			secret:    secret,
			wantErr:   true,
		},
		{
			name:      "truncated signature rejected",
			body:      body,
			signature: knownSignature[:20],
			secret:    secret,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyHMACSignature(tt.body, tt.signature, tt.secret)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerifyHMACSignatureGenericErrors(t *testing.T) {
	err := verifyHMACSignature([]byte("foo=bar"), "deadbeef", "s3cr3t")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "deadbeef") || strings.Contains(err.Error(), "s3cr3t") {
		t.Errorf("error leaks signature material: %v", err)
	}
}

func TestComputeExpectedSignature(t *testing.T) {
	got := computeExpectedSignature([]byte("foo=bar"), "s3cr3t")
	if got != knownSignature {
		t.Errorf("expected %s, got %s", knownSignature, got)
	}
}
