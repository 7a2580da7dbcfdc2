package svndiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/svncore/delta"
)

func TestEncodeApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name, source, target string
	}{
		{"identical", "hello world", "hello world"},
		{"append", "hello", "hello world"},
		{"prepend", "world", "hello world"},
		{"middle-edit", "the quick brown fox", "the slow brown fox"},
		{"empty-source", "", "new content"},
		{"empty-target", "some content", ""},
		{"both-empty", "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := Encode([]byte(c.source), []byte(c.target))
			require.NoError(t, w.Validate())
			got, err := w.Apply([]byte(c.source))
			require.NoError(t, err)
			assert.Equal(t, c.target, string(got))
		})
	}
}

func TestChecksumVerification(t *testing.T) {
	data := []byte("revision content")
	sum := Checksum(data)
	assert.NoError(t, VerifyChecksum(data, sum))
	assert.NoError(t, VerifyChecksum(data, "")) // no checksum supplied: ok

	err := VerifyChecksum(data, "0000000000000000000000000000000000000000")
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindBadChecksum))
}

func TestSinkStreamsWindowsAndVerifiesResult(t *testing.T) {
	source := []byte("the quick brown fox jumps over the lazy dog")
	target := []byte("the quick red fox jumps over the lazy dog, twice")
	windows := EncodeStream(source, target, 4)

	var out bytes.Buffer
	sink := NewSink(source, &out)
	for _, w := range windows {
		require.NoError(t, sink.PushWindow(w))
	}
	got, err := sink.Finish(Checksum(target))
	require.NoError(t, err)
	assert.Equal(t, Checksum(target), got)
	assert.Equal(t, string(target), out.String())
}

func TestSinkRejectsBadResultChecksum(t *testing.T) {
	source := []byte("abc")
	target := []byte("abcdef")
	windows := EncodeStream(source, target, 1024)

	var out bytes.Buffer
	sink := NewSink(source, &out)
	for _, w := range windows {
		require.NoError(t, sink.PushWindow(w))
	}
	_, err := sink.Finish("not-a-real-checksum")
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindBadChecksum))
}

func TestApplyAllRejectsEmptyWindowList(t *testing.T) {
	_, _, err := ApplyAll([]byte("x"), nil)
	require.Error(t, err)
	assert.True(t, delta.Is(err, delta.KindProtocolViolation))
}

func TestWindowValidateCatchesOutOfBoundsCopyFromTarget(t *testing.T) {
	w := &Window{
		TargetViewLength: 5,
		Ops: []Op{
			{Kind: OpCopyFromTarget, Offset: 0, Length: 5}, // nothing produced yet
		},
	}
	err := w.Validate()
	require.Error(t, err)
}

func TestEncodeStreamTerminatesWithNilWindow(t *testing.T) {
	windows := EncodeStream([]byte("short"), []byte("a much longer replacement body here"), 8)
	require.NotEmpty(t, windows)
	assert.Nil(t, windows[len(windows)-1])
}
