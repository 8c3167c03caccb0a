package rtc

import (
	"fmt"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/pion/webrtc/v4"
)

const firstDynamicPayloadType = 96

func codecType(kind domain.MediaKind) webrtc.RTPCodecType {
	if kind == domain.KindVideo {
		return webrtc.RTPCodecTypeVideo
	}
	return webrtc.RTPCodecTypeAudio
}

func kindOfMime(mime string) (domain.MediaKind, bool) {
	top, _, ok := strings.Cut(mime, "/")
	if !ok {
		return "", false
	}
	kind, err := domain.ParseMediaKind(top)
	return kind, err == nil
}

// normalizeCodecs fills in kinds and payload types so every codec of a
// router has a distinct payload type.
func normalizeCodecs(in []core.RTPCodecCapability) ([]core.RTPCodecCapability, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: empty codec list", core.ErrInvalid)
	}
	used := make(map[uint8]bool, len(in))
	for _, c := range in {
		if c.PreferredPayloadType != 0 {
			if used[c.PreferredPayloadType] {
				return nil, fmt.Errorf("%w: payload type %d used twice", core.ErrInvalid, c.PreferredPayloadType)
			}
			used[c.PreferredPayloadType] = true
		}
	}
	next := uint8(firstDynamicPayloadType)
	out := make([]core.RTPCodecCapability, 0, len(in))
	for _, c := range in {
		kind, ok := kindOfMime(c.MimeType)
		if !ok || (c.Kind != "" && c.Kind != kind) {
			return nil, fmt.Errorf("%w: codec %q", core.ErrInvalid, c.MimeType)
		}
		if c.ClockRate == 0 {
			return nil, fmt.Errorf("%w: codec %q has no clock rate", core.ErrInvalid, c.MimeType)
		}
		c.Kind = kind
		if c.PreferredPayloadType == 0 {
			for used[next] {
				next++
			}
			c.PreferredPayloadType = next
			used[next] = true
		}
		out = append(out, c)
	}
	return out, nil
}

// matchCodec finds the entry of caps able to decode want.
func matchCodec(want core.RTPCodecCapability, caps core.RTPCapabilities) (core.RTPCodecCapability, bool) {
	for _, c := range caps.Codecs {
		if !strings.EqualFold(c.MimeType, want.MimeType) || c.ClockRate != want.ClockRate {
			continue
		}
		if want.Channels > 1 && c.Channels != want.Channels {
			continue
		}
		return c, true
	}
	return core.RTPCodecCapability{}, false
}

// findCodec resolves a client codec by payload type first, mime second.
func findCodec(router []core.RTPCodecCapability, kind domain.MediaKind, c core.RTPCodecParameters) (core.RTPCodecCapability, bool) {
	for _, rc := range router {
		if rc.Kind == kind && rc.PreferredPayloadType == c.PayloadType && strings.EqualFold(rc.MimeType, c.MimeType) {
			return rc, true
		}
	}
	for _, rc := range router {
		if rc.Kind == kind && strings.EqualFold(rc.MimeType, c.MimeType) && rc.ClockRate == c.ClockRate {
			return rc, true
		}
	}
	return core.RTPCodecCapability{}, false
}

func toWebRTCCodec(c core.RTPCodecCapability) webrtc.RTPCodecParameters {
	var feedback []webrtc.RTCPFeedback
	if c.Kind == domain.KindVideo {
		feedback = []webrtc.RTCPFeedback{
			{Type: "nack"},
			{Type: "nack", Parameter: "pli"},
			{Type: "ccm", Parameter: "fir"},
		}
	}
	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:     c.MimeType,
			ClockRate:    c.ClockRate,
			Channels:     c.Channels,
			SDPFmtpLine:  c.SDPFmtpLine,
			RTCPFeedback: feedback,
		},
		PayloadType: webrtc.PayloadType(c.PreferredPayloadType),
	}
}

func toCodecParameters(c core.RTPCodecCapability) core.RTPCodecParameters {
	return core.RTPCodecParameters{
		MimeType:    c.MimeType,
		PayloadType: c.PreferredPayloadType,
		ClockRate:   c.ClockRate,
		Channels:    c.Channels,
		SDPFmtpLine: c.SDPFmtpLine,
	}
}

func iceParamsFrom(p webrtc.ICEParameters) core.ICEParameters {
	return core.ICEParameters{UsernameFragment: p.UsernameFragment, Password: p.Password, ICELite: p.ICELite}
}

func iceParamsTo(p core.ICEParameters) webrtc.ICEParameters {
	return webrtc.ICEParameters{UsernameFragment: p.UsernameFragment, Password: p.Password, ICELite: p.ICELite}
}

func candidatesFrom(in []webrtc.ICECandidate) []core.ICECandidate {
	out := make([]core.ICECandidate, 0, len(in))
	for _, c := range in {
		out = append(out, core.ICECandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
			TCPType:    c.TCPType,
		})
	}
	return out
}

func candidatesTo(in []core.ICECandidate) ([]webrtc.ICECandidate, error) {
	out := make([]webrtc.ICECandidate, 0, len(in))
	for _, c := range in {
		proto, err := webrtc.NewICEProtocol(c.Protocol)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalid, err)
		}
		typ, err := webrtc.NewICECandidateType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalid, err)
		}
		out = append(out, webrtc.ICECandidate{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Address,
			Protocol:   proto,
			Port:       c.Port,
			Typ:        typ,
			TCPType:    c.TCPType,
		})
	}
	return out, nil
}

func dtlsFrom(p webrtc.DTLSParameters) core.DTLSParameters {
	out := core.DTLSParameters{Role: p.Role.String(), Fingerprints: make([]core.DTLSFingerprint, 0, len(p.Fingerprints))}
	for _, f := range p.Fingerprints {
		out.Fingerprints = append(out.Fingerprints, core.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return out
}

func dtlsTo(p core.DTLSParameters) (webrtc.DTLSParameters, error) {
	if len(p.Fingerprints) == 0 {
		return webrtc.DTLSParameters{}, fmt.Errorf("%w: no dtls fingerprints", core.ErrInvalid)
	}
	var role webrtc.DTLSRole
	switch strings.ToLower(p.Role) {
	case "", "auto":
		role = webrtc.DTLSRoleAuto
	case "client":
		role = webrtc.DTLSRoleClient
	case "server":
		role = webrtc.DTLSRoleServer
	default:
		return webrtc.DTLSParameters{}, fmt.Errorf("%w: dtls role %q", core.ErrInvalid, p.Role)
	}
	out := webrtc.DTLSParameters{Role: role}
	for _, f := range p.Fingerprints {
		out.Fingerprints = append(out.Fingerprints, webrtc.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return out, nil
}
