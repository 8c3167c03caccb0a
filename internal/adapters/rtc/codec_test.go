package rtc

import (
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCodecsAssignsPayloadTypes(t *testing.T) {
	t.Parallel()
	out, err := normalizeCodecs([]core.RTPCodecCapability{
		{MimeType: "audio/opus", ClockRate: 48000, Channels: 2, PreferredPayloadType: 96},
		{MimeType: "video/VP8", ClockRate: 90000},
		{MimeType: "video/H264", ClockRate: 90000},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, domain.KindAudio, out[0].Kind)
	require.EqualValues(t, 96, out[0].PreferredPayloadType)
	require.Equal(t, domain.KindVideo, out[1].Kind)
	require.EqualValues(t, 97, out[1].PreferredPayloadType)
	require.EqualValues(t, 98, out[2].PreferredPayloadType)
}

func TestNormalizeCodecsRejects(t *testing.T) {
	t.Parallel()
	cases := map[string][]core.RTPCodecCapability{
		"empty":        nil,
		"duplicate pt": {{MimeType: "audio/opus", ClockRate: 48000, PreferredPayloadType: 100}, {MimeType: "video/VP8", ClockRate: 90000, PreferredPayloadType: 100}},
		"bad mime":     {{MimeType: "opus", ClockRate: 48000}},
		"kind clash":   {{Kind: domain.KindVideo, MimeType: "audio/opus", ClockRate: 48000}},
		"no clock":     {{MimeType: "video/VP8"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := normalizeCodecs(in)
			require.ErrorIs(t, err, core.ErrInvalid)
		})
	}
}

func TestMatchCodec(t *testing.T) {
	t.Parallel()
	opus := core.RTPCodecCapability{MimeType: "audio/opus", ClockRate: 48000, Channels: 2}
	caps := core.RTPCapabilities{Codecs: []core.RTPCodecCapability{
		{MimeType: "video/vp8", ClockRate: 90000},
		{MimeType: "AUDIO/OPUS", ClockRate: 48000, Channels: 2, PreferredPayloadType: 111},
	}}

	got, ok := matchCodec(opus, caps)
	require.True(t, ok)
	require.EqualValues(t, 111, got.PreferredPayloadType)

	_, ok = matchCodec(opus, core.RTPCapabilities{Codecs: []core.RTPCodecCapability{{MimeType: "audio/opus", ClockRate: 48000, Channels: 1}}})
	require.False(t, ok)
	_, ok = matchCodec(opus, core.RTPCapabilities{Codecs: []core.RTPCodecCapability{{MimeType: "audio/opus", ClockRate: 16000, Channels: 2}}})
	require.False(t, ok)

	vp8 := core.RTPCodecCapability{MimeType: "video/VP8", ClockRate: 90000}
	_, ok = matchCodec(vp8, caps)
	require.True(t, ok)
}

func TestFindCodec(t *testing.T) {
	t.Parallel()
	router := []core.RTPCodecCapability{
		{Kind: domain.KindAudio, MimeType: "audio/opus", ClockRate: 48000, Channels: 2, PreferredPayloadType: 111},
		{Kind: domain.KindVideo, MimeType: "video/VP8", ClockRate: 90000, PreferredPayloadType: 96},
	}
	got, ok := findCodec(router, domain.KindAudio, core.RTPCodecParameters{MimeType: "audio/opus", PayloadType: 111})
	require.True(t, ok)
	require.Equal(t, "audio/opus", got.MimeType)

	// Unknown payload type still resolves by mime and clock rate.
	got, ok = findCodec(router, domain.KindVideo, core.RTPCodecParameters{MimeType: "video/vp8", PayloadType: 120, ClockRate: 90000})
	require.True(t, ok)
	require.EqualValues(t, 96, got.PreferredPayloadType)

	_, ok = findCodec(router, domain.KindAudio, core.RTPCodecParameters{MimeType: "video/VP8", PayloadType: 96})
	require.False(t, ok)
}

func TestToWebRTCCodecVideoFeedback(t *testing.T) {
	t.Parallel()
	v := toWebRTCCodec(core.RTPCodecCapability{Kind: domain.KindVideo, MimeType: "video/VP8", ClockRate: 90000, PreferredPayloadType: 96})
	require.EqualValues(t, 96, v.PayloadType)
	require.Len(t, v.RTCPFeedback, 3)

	a := toWebRTCCodec(core.RTPCodecCapability{Kind: domain.KindAudio, MimeType: "audio/opus", ClockRate: 48000})
	require.Empty(t, a.RTCPFeedback)
}

func TestDTLSParameters(t *testing.T) {
	t.Parallel()
	_, err := dtlsTo(core.DTLSParameters{Role: "client"})
	require.ErrorIs(t, err, core.ErrInvalid)

	fp := []core.DTLSFingerprint{{Algorithm: "sha-256", Value: "AB:CD"}}
	_, err = dtlsTo(core.DTLSParameters{Role: "sideways", Fingerprints: fp})
	require.ErrorIs(t, err, core.ErrInvalid)

	p, err := dtlsTo(core.DTLSParameters{Role: "Server", Fingerprints: fp})
	require.NoError(t, err)
	require.Equal(t, "server", p.Role.String())
	require.Equal(t, fp, dtlsFrom(p).Fingerprints)
}

func TestCandidatesRejectUnknownProtocol(t *testing.T) {
	t.Parallel()
	_, err := candidatesTo([]core.ICECandidate{{Foundation: "1", Address: "10.0.0.1", Protocol: "sctp", Port: 4000, Type: "host"}})
	require.ErrorIs(t, err, core.ErrInvalid)

	out, err := candidatesTo([]core.ICECandidate{{Foundation: "1", Priority: 10, Address: "10.0.0.1", Protocol: "udp", Port: 4000, Type: "host"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "host", out[0].Typ.String())
}
