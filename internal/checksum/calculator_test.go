package checksum

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	emptyHex    = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	emptyBase64 = "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="
	abcHex      = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
)

func digestOf(t *testing.T, content string) Digest {
	t.Helper()
	d, err := New().Reader(strings.NewReader(content))
	require.NoError(t, err)
	return d
}

func TestSHA256_KnownDigests(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantHex string
	}{
		{"empty", "", emptyHex},
		{"abc", "abc", abcHex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := digestOf(t, tt.content)
			assert.Equal(t, tt.wantHex, d.Hex())
			assert.Equal(t, int64(len(tt.content)), d.Size)
		})
	}
}

func TestDigest_Base64(t *testing.T) {
	assert.Equal(t, emptyBase64, digestOf(t, "").Base64())
}

func TestSHA256_SeekerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Mall_Customers.csv")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d, err := New().Seeker(f)
	require.NoError(t, err)
	assert.Equal(t, abcHex, d.Hex())
	assert.Equal(t, int64(3), d.Size)
}

func TestSHA256_SeekerRewinds(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	_, err := r.Seek(2, 0)
	require.NoError(t, err)

	d, err := New().Seeker(r)
	require.NoError(t, err)
	assert.Equal(t, abcHex, d.Hex(), "hashes from the start regardless of position")

	rest := new(bytes.Buffer)
	_, err = rest.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", rest.String())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestSHA256_ReaderError(t *testing.T) {
	_, err := New().Reader(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}
